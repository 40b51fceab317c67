package security

import (
	"fmt"
	"strings"
)

// Tier is the ordered risk classification of a validated command.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

// String returns the tier name used in prompts and log records.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "LOW"
	case TierMedium:
		return "MEDIUM"
	case TierHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Classification is a risk tier with the rationale behind it.
type Classification struct {
	Tier   Tier
	Reason string
}

// highVerbs touch accounts, services, security settings, the registry, or
// other state beyond the current user's files. HIGH is the sole trigger for
// mandatory re-authentication.
var highVerbs = []string{
	"net", "sc", "schtasks", "reg", "icacls", "netsh", "gpupdate",
	"chmod", "chown", "systemctl", "service", "ufw", "iptables",
	"useradd", "usermod", "groupadd", "adduser", "passwd", "sudo", "runas",
	"crontab", "mount", "umount",
}

// highPathKeywords pull any command that references them up to HIGH, read-only
// or not: a query against a system path is still a system-scope operation.
var highPathKeywords = []string{
	"system32", `c:\windows`, "program files", "programdata", "boot",
	"/etc", "/usr", "/boot", "/sys", "/var",
}

// mediumVerbs mutate filesystem state, environment, or installed software
// within the current user's reach.
var mediumVerbs = []string{
	"copy", "cp", "move", "mv", "ren", "rename", "mkdir", "md", "touch",
	"xcopy", "robocopy", "setx", "assoc", "ftype", "ln", "tar", "zip",
	"unzip", "git", "npm", "pip", "go", "apt", "apt-get", "yum", "dnf",
	"brew", "choco", "winget", "make",
}

// Classifier maps an ALLOW-verdict command to a risk tier. Classification is
// rule-based on the verb and argument shape; ties break toward the higher
// tier.
type Classifier struct {
	validator *Validator
	high      map[string]bool
	medium    map[string]bool
}

// NewClassifier builds a classifier sharing the validator's read-only
// allowlist for the LOW tier.
func NewClassifier(validator *Validator) *Classifier {
	c := &Classifier{
		validator: validator,
		high:      make(map[string]bool, len(highVerbs)),
		medium:    make(map[string]bool, len(mediumVerbs)),
	}
	for _, verb := range highVerbs {
		c.high[verb] = true
	}
	for _, verb := range mediumVerbs {
		c.medium[verb] = true
	}
	return c
}

// Classify assigns a tier to a normalized, validated command.
func (c *Classifier) Classify(normalized string) Classification {
	lowered := strings.ToLower(normalized)
	first := firstToken(normalized)

	for _, keyword := range highPathKeywords {
		if strings.Contains(lowered, keyword) {
			return Classification{
				Tier:   TierHigh,
				Reason: fmt.Sprintf("references system path %q", keyword),
			}
		}
	}
	if c.high[first] {
		return Classification{
			Tier:   TierHigh,
			Reason: fmt.Sprintf("%q affects accounts, services, or security settings", first),
		}
	}
	if c.validator.ReadOnly(first) {
		return Classification{
			Tier:   TierLow,
			Reason: fmt.Sprintf("%q is a read-only query", first),
		}
	}
	if c.medium[first] {
		return Classification{
			Tier:   TierMedium,
			Reason: fmt.Sprintf("%q mutates local state", first),
		}
	}
	// Unknown verbs break upward, not down to LOW.
	return Classification{
		Tier:   TierMedium,
		Reason: fmt.Sprintf("%q is not a known read-only verb", first),
	}
}
