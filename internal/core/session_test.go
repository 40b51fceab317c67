package core

import "testing"

func TestNewSession(t *testing.T) {
	sess := NewSession("sk-or-v1-test")

	if sess.ID == "" {
		t.Error("Expected a session ID")
	}
	if sess.Locked {
		t.Error("New session must start unlocked")
	}
	if sess.APIKey() != "sk-or-v1-test" {
		t.Errorf("Expected API key, got %q", sess.APIKey())
	}
}

func TestSessionLockClearsAPIKey(t *testing.T) {
	sess := NewSession("sk-or-v1-test")

	sess.Lock()
	if !sess.Locked {
		t.Error("Expected session locked")
	}
	if sess.APIKey() != "" {
		t.Error("Locked session must not expose the API key")
	}

	sess.Unlock("sk-or-v1-test")
	if sess.Locked {
		t.Error("Expected session unlocked")
	}
	if sess.APIKey() != "sk-or-v1-test" {
		t.Error("Unlock must restore the API key")
	}
}

func TestSessionAuthFailureCounter(t *testing.T) {
	sess := NewSession("sk-or-v1-test")

	if locked := sess.RecordAuthFailure(); locked {
		t.Error("First failure must not lock")
	}
	if locked := sess.RecordAuthFailure(); locked {
		t.Error("Second failure must not lock")
	}

	sess.ResetAuthFailures()
	if sess.FailedAuthAttempts() != 0 {
		t.Error("Expected counter reset")
	}

	sess.RecordAuthFailure()
	sess.RecordAuthFailure()
	if locked := sess.RecordAuthFailure(); !locked {
		t.Error("Third consecutive failure must lock")
	}
	if !sess.Locked {
		t.Error("Expected session locked at threshold")
	}
}

func TestSessionUnlockResetsCounter(t *testing.T) {
	sess := NewSession("sk-or-v1-test")

	sess.RecordAuthFailure()
	sess.RecordAuthFailure()
	sess.RecordAuthFailure()
	if !sess.Locked {
		t.Fatal("Expected session locked")
	}

	sess.Unlock("sk-or-v1-test")
	if sess.FailedAuthAttempts() != 0 {
		t.Error("Unlock must clear the failed-attempt counter")
	}
}
