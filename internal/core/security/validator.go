package security

import "strings"

// Outcome is the final word of the pattern validator.
type Outcome string

const (
	OutcomeAllow Outcome = "ALLOW"
	OutcomeDeny  Outcome = "DENY"
)

// Verdict is a structured validation result. On DENY, Rule names the matched
// rule and Explanation says which token triggered it; both are shown to the
// user and logged. Normalized is the whitespace-collapsed command to run on
// ALLOW.
type Verdict struct {
	Outcome     Outcome
	Rule        string
	Explanation string
	Normalized  string
}

// Allowed reports whether the command may proceed to classification.
func (v Verdict) Allowed() bool {
	return v.Outcome == OutcomeAllow
}

// Validator applies the ordered denylist and structural rules to a single
// command string. A DENY is final for that request; there is no rewrite or
// retry path.
type Validator struct {
	blacklist []string
	allowlist map[string]bool
}

// NewValidator builds a validator from the built-in tables extended by the
// given policy.
func NewValidator(policy *Policy) *Validator {
	if policy == nil {
		policy = DefaultPolicy()
	}

	v := &Validator{
		blacklist: make([]string, 0, len(blacklistVerbs)+len(policy.ExtraBlacklist)),
		allowlist: make(map[string]bool, len(readOnlyVerbs)+len(policy.ExtraAllowlist)),
	}
	v.blacklist = append(v.blacklist, blacklistVerbs...)
	for _, verb := range policy.ExtraBlacklist {
		v.blacklist = append(v.blacklist, strings.ToLower(strings.TrimSpace(verb)))
	}
	for _, verb := range readOnlyVerbs {
		v.allowlist[verb] = true
	}
	for _, verb := range policy.ExtraAllowlist {
		v.allowlist[strings.ToLower(strings.TrimSpace(verb))] = true
	}
	return v
}

// ReadOnly reports whether the invoked program is on the read-only
// allowlist. Used by the classifier for the LOW tier.
func (v *Validator) ReadOnly(first string) bool {
	return v.allowlist[first]
}

// Validate runs the rule table against a raw command string. Rules apply in
// order and the first deny short-circuits. Malformed input (empty, embedded
// newlines) is denied, never allowed by accident.
func (v *Validator) Validate(raw string) Verdict {
	if strings.ContainsAny(raw, "\r\n") {
		return Verdict{
			Outcome:     OutcomeDeny,
			Rule:        RuleMultiline,
			Explanation: "contains a line break: only a single-line command is allowed",
			Normalized:  normalizeCommand(raw),
		}
	}

	normalized := normalizeCommand(raw)
	if normalized == "" {
		return Verdict{
			Outcome:     OutcomeDeny,
			Rule:        RuleEmpty,
			Explanation: "empty command",
		}
	}

	first := firstToken(normalized)
	for _, r := range validationRules {
		// The allowlist fast path skips only the blacklist rule; the
		// structural rules above it are syntactic and always apply.
		if r.name == RuleBlacklist && v.allowlist[first] {
			break
		}
		if explanation := r.check(v, normalized, first); explanation != "" {
			return Verdict{
				Outcome:     OutcomeDeny,
				Rule:        r.name,
				Explanation: explanation,
				Normalized:  normalized,
			}
		}
	}

	return Verdict{
		Outcome:    OutcomeAllow,
		Normalized: normalized,
	}
}
