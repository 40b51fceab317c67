package core

import (
	"time"

	"github.com/google/uuid"
)

// MaxAuthAttempts is the number of consecutive failed password checks that
// locks the session.
const MaxAuthAttempts = 3

// Stats counts per-session request outcomes for the status display.
type Stats struct {
	TotalInputs int
	Executed    int
	Blocked     int
	Failed      int
	APIErrors   int
	HighRisk    int
	DryRuns     int
}

// Session is the process-local state created after a successful login and
// passed explicitly to every state-machine operation. It owns the decrypted
// API key (memory only), the lock flag, the failed-attempt counter, and the
// privacy and dry-run modes. There is no ambient global copy of any of this.
type Session struct {
	ID        string
	StartedAt time.Time

	// Locked blocks everything except help/status/unlock/exit.
	Locked bool

	// Privacy redacts prompts, commands, and output in audit records.
	Privacy bool

	// DryRun renders commands and their tier without executing them.
	DryRun bool

	// PreferredModel pins a model; empty means automatic fallback order.
	PreferredModel string

	// LastModel is the model that produced the most recent command.
	LastModel string

	History []string
	Stats   Stats

	apiKey     string
	failedAuth int
}

// NewSession starts a session holding the decrypted API key.
func NewSession(apiKey string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		LastModel: "none",
		apiKey:    apiKey,
	}
}

// APIKey returns the decrypted API key, or empty when locked.
func (s *Session) APIKey() string {
	if s.Locked {
		return ""
	}
	return s.apiKey
}

// Lock locks the session and drops the decrypted API key from memory.
func (s *Session) Lock() {
	s.Locked = true
	s.apiKey = ""
}

// Unlock clears the lock and restores the decrypted API key. The caller is
// responsible for having verified the password first.
func (s *Session) Unlock(apiKey string) {
	s.Locked = false
	s.apiKey = apiKey
	s.ResetAuthFailures()
}

// SetAPIKey replaces the in-memory API key after a key rotation.
func (s *Session) SetAPIKey(apiKey string) {
	s.apiKey = apiKey
}

// RecordAuthFailure counts one failed password check and reports whether the
// session just reached the lockout threshold. Reaching it locks the session.
func (s *Session) RecordAuthFailure() bool {
	s.failedAuth++
	if s.failedAuth >= MaxAuthAttempts {
		s.Lock()
		return true
	}
	return false
}

// ResetAuthFailures clears the counter. Called on any successful check.
func (s *Session) ResetAuthFailures() {
	s.failedAuth = 0
}

// FailedAuthAttempts returns the current consecutive-failure count.
func (s *Session) FailedAuthAttempts() int {
	return s.failedAuth
}

// Uptime is the elapsed wall time since the session started.
func (s *Session) Uptime() time.Duration {
	return time.Since(s.StartedAt)
}
