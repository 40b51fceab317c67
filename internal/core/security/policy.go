package security

// Policy holds the user-tunable parts of the validation and classification
// rule set. The built-in tables cover the common destructive tools; these
// lists extend them without recompiling.
type Policy struct {
	// ExtraBlacklist adds verbs to the built-in blacklist.
	ExtraBlacklist []string `mapstructure:"extra_blacklist"`

	// ExtraAllowlist adds verbs to the read-only allowlist fast path.
	// Allowlisted verbs still go through the structural rules.
	ExtraAllowlist []string `mapstructure:"extra_allowlist"`
}

// DefaultPolicy returns an empty policy: built-in tables only.
func DefaultPolicy() *Policy {
	return &Policy{}
}
