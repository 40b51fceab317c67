package security

import (
	"fmt"
	"regexp"
	"strings"
)

// rule is one entry of the ordered validation table. check receives the
// normalized command and its lowercased first token; a non-empty explanation
// means the rule matched and the command is denied.
type rule struct {
	name  string
	check func(v *Validator, normalized, first string) string
}

// Rule names recorded on deny verdicts.
const (
	RuleEmpty       = "empty-command"
	RuleMultiline   = "multi-line"
	RuleSeparator   = "command-chaining"
	RuleRedirection = "redirection"
	RuleObfuscation = "obfuscated-payload"
	RuleBlacklist   = "blacklisted-executable"
)

// separatorTokens are multi-statement and pipe tokens. Longer tokens are
// listed first so the explanation names the most specific match.
var separatorTokens = []string{"&&", "||", ";", "|"}

// redirectionTokens can overwrite arbitrary files or feed unexpected input.
var redirectionTokens = []string{">>", ">", "<"}

// obfuscationTokens are shell constructs used to smuggle a second command
// past a textual filter: escapes, variable expansion, substitution, grouping,
// and nested interpreters.
var obfuscationTokens = []string{
	"$(",
	"`",
	"^",
	"%",
	"{",
	"}",
	"[",
	"]",
	"..",
	"cmd /c",
	"cmd.exe /c",
	"powershell -c",
	"powershell -command",
}

var (
	// base64Blob matches long base64-alphabet runs, the shape of an encoded
	// payload rather than a normal argument.
	base64Blob = regexp.MustCompile(`\b[a-zA-Z0-9+/]{40,}={0,2}\b`)

	// hexRun matches long hexadecimal runs, with or without a 0x prefix.
	hexRun = regexp.MustCompile(`\b(?:0x)?[a-fA-F0-9]{32,}\b`)

	// encodedFlag matches PowerShell-style encoded command flags.
	encodedFlag = regexp.MustCompile(`(?i)(^|\s)-e(nc|ncodedcommand|c)(\s|$)`)
)

// blacklistVerbs are destructive or irreversible tools. Matching is on the
// invoked program only, case-insensitive, with path prefixes and common
// executable extensions stripped.
var blacklistVerbs = []string{
	// deletion
	"del", "erase", "rd", "rmdir", "rm", "shred",
	// disk and filesystem destruction
	"format", "fdisk", "mkfs", "dd", "diskpart", "bcdedit", "cipher",
	"vssadmin", "fsutil",
	// machine and process control
	"shutdown", "reboot", "halt", "poweroff", "taskkill", "wmic",
	// account deletion
	"userdel", "groupdel", "deluser", "delgroup",
	// remote code fetch and nested interpreters
	"curl", "wget", "certutil", "powershell", "pwsh",
	// ownership takeover
	"takeown",
}

// blacklistPrefixes catch families like mkfs.ext4.
var blacklistPrefixes = []string{"mkfs.", "format."}

// blacklistVerbArgs deny specific verb+argument shapes whose bare verb is
// otherwise acceptable (the verb alone is handled by the risk classifier).
var blacklistVerbArgs = [][2]string{
	{"reg", "delete"},
	{"netsh", "advfirewall"},
	{"sc", "stop"},
	{"sc", "delete"},
	{"sc", "config"},
	{"systemctl", "stop"},
	{"systemctl", "disable"},
	{"launchctl", "unload"},
}

// readOnlyVerbs may take the allowlist fast path. They never skip the
// structural rules, which are syntactic rather than semantic.
var readOnlyVerbs = []string{
	"dir", "type", "echo", "where", "whoami", "hostname", "ipconfig",
	"ping", "systeminfo", "tasklist", "ver", "vol", "tree",
	"ls", "cat", "pwd", "which", "uname", "date", "uptime", "df", "free",
	"ifconfig", "ps", "id", "env", "printenv",
}

// validationRules is the ordered rule table. The first deny wins and its
// explanation is recorded on the verdict.
var validationRules = []rule{
	{name: RuleSeparator, check: checkSeparators},
	{name: RuleRedirection, check: checkRedirection},
	{name: RuleObfuscation, check: checkObfuscation},
	{name: RuleBlacklist, check: checkBlacklist},
}

func checkSeparators(_ *Validator, normalized, _ string) string {
	for _, token := range separatorTokens {
		if strings.Contains(normalized, token) {
			return fmt.Sprintf("contains command separator %q: only a single command is allowed", token)
		}
	}
	return ""
}

func checkRedirection(_ *Validator, normalized, _ string) string {
	for _, token := range redirectionTokens {
		if strings.Contains(normalized, token) {
			return fmt.Sprintf("contains redirection operator %q", token)
		}
	}
	return ""
}

func checkObfuscation(_ *Validator, normalized, _ string) string {
	lowered := strings.ToLower(normalized)
	for _, token := range obfuscationTokens {
		if strings.Contains(lowered, token) {
			return fmt.Sprintf("contains obfuscation token %q", token)
		}
	}
	if base64Blob.MatchString(normalized) {
		return "contains a base64-style encoded blob"
	}
	if hexRun.MatchString(normalized) {
		return "contains a long hexadecimal run"
	}
	if encodedFlag.MatchString(normalized) {
		return "contains an encoded-command flag"
	}
	return ""
}

func checkBlacklist(v *Validator, normalized, first string) string {
	for _, verb := range v.blacklist {
		if first == verb {
			return fmt.Sprintf("invoked program %q is blacklisted as destructive or irreversible", verb)
		}
	}
	for _, prefix := range blacklistPrefixes {
		if strings.HasPrefix(first, prefix) {
			return fmt.Sprintf("invoked program %q is blacklisted as destructive or irreversible", first)
		}
	}

	fields := strings.Fields(strings.ToLower(normalized))
	if len(fields) >= 2 {
		for _, pair := range blacklistVerbArgs {
			if first == pair[0] && fields[1] == pair[1] {
				return fmt.Sprintf("%q %q is blacklisted as destructive or irreversible", pair[0], pair[1])
			}
		}
	}
	return ""
}

// firstToken extracts the invoked program from a normalized command:
// lowercased, path prefix removed (both separators), common executable
// extensions stripped.
func firstToken(normalized string) string {
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return ""
	}
	token := strings.ToLower(fields[0])
	if i := strings.LastIndexAny(token, `/\`); i >= 0 {
		token = token[i+1:]
	}
	for _, ext := range []string{".exe", ".com", ".bat", ".cmd"} {
		token = strings.TrimSuffix(token, ext)
	}
	return token
}

// normalizeCommand collapses runs of whitespace into single spaces and trims
// the ends. Newlines are checked before normalization so they are never
// silently flattened into something that passes.
func normalizeCommand(command string) string {
	return strings.Join(strings.Fields(command), " ")
}
