package vault

import (
	"errors"
	"testing"
)

func TestInitializeAndUnlock(t *testing.T) {
	rec, err := Initialize("correct horse battery", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := rec.Validate(); err != nil {
		t.Fatalf("New record failed validation: %v", err)
	}

	key, err := Unlock(rec, "correct horse battery")
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if key != "sk-or-v1-test-key-123456" {
		t.Errorf("Expected original API key, got %q", key)
	}
}

func TestInitializeWeakPassword(t *testing.T) {
	_, err := Initialize("short", "sk-or-v1-test-key-123456")
	if err == nil {
		t.Fatal("Expected weak password error")
	}
	var weak *WeakPasswordError
	if !errors.As(err, &weak) {
		t.Errorf("Expected WeakPasswordError, got %T: %v", err, err)
	}
}

func TestInitializeDistinctSalts(t *testing.T) {
	rec, err := Initialize("correct horse battery", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if string(rec.PasswordSalt) == string(rec.KeySalt) {
		t.Error("Password salt and key salt must differ")
	}
}

func TestVerify(t *testing.T) {
	rec, err := Initialize("correct horse battery", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	t.Run("correct password", func(t *testing.T) {
		if !Verify(rec, "correct horse battery") {
			t.Error("Expected verification to succeed")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if Verify(rec, "wrong password!") {
			t.Error("Expected verification to fail")
		}
	})

	t.Run("corrupt record", func(t *testing.T) {
		bad := *rec
		bad.PasswordSalt = bad.PasswordSalt[:8]
		if Verify(&bad, "correct horse battery") {
			t.Error("Expected verification of corrupt record to fail")
		}
	})
}

func TestUnlockWrongPassword(t *testing.T) {
	rec, err := Initialize("correct horse battery", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	key, err := Unlock(rec, "not the password")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Expected ErrPasswordMismatch, got %v", err)
	}
	if key != "" {
		t.Errorf("Expected empty plaintext on failure, got %q", key)
	}
}

func TestUnlockTamperedCiphertext(t *testing.T) {
	rec, err := Initialize("correct horse battery", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Flip one ciphertext byte past the nonce: the password still verifies
	// but the GCM tag must reject the payload.
	rec.EncryptedAPIKey[len(rec.EncryptedAPIKey)-1] ^= 0xff

	_, err = Unlock(rec, "correct horse battery")
	if !errors.Is(err, ErrRecordCorrupt) {
		t.Errorf("Expected ErrRecordCorrupt for tampered ciphertext, got %v", err)
	}
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Expected ErrDecryptionFailed in chain, got %v", err)
	}
}

func TestRotate(t *testing.T) {
	rec, err := Initialize("old password here", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	t.Run("wrong old password", func(t *testing.T) {
		if _, err := Rotate(rec, "bad old password", "new password here"); err == nil {
			t.Error("Expected rotation with wrong password to fail")
		}
	})

	t.Run("successful rotation", func(t *testing.T) {
		next, err := Rotate(rec, "old password here", "new password here")
		if err != nil {
			t.Fatalf("Rotate failed: %v", err)
		}

		// Fully consistent with the new password.
		key, err := Unlock(next, "new password here")
		if err != nil {
			t.Fatalf("Unlock with new password failed: %v", err)
		}
		if key != "sk-or-v1-test-key-123456" {
			t.Errorf("API key changed across rotation: %q", key)
		}

		// And never a mixed state: old password fully rejected.
		if Verify(next, "old password here") {
			t.Error("Old password still verifies after rotation")
		}
		if _, err := Unlock(next, "old password here"); err == nil {
			t.Error("Old password still unlocks after rotation")
		}

		// Original record untouched (atomicity is replace-whole-record).
		if _, err := Unlock(rec, "old password here"); err != nil {
			t.Errorf("Original record damaged by rotation: %v", err)
		}
	})

	t.Run("weak new password", func(t *testing.T) {
		if _, err := Rotate(rec, "old password here", "tiny"); err == nil {
			t.Error("Expected weak new password to fail rotation")
		}
	})
}

func TestRotateAPIKey(t *testing.T) {
	rec, err := Initialize("correct horse battery", "sk-or-v1-old-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	next, err := RotateAPIKey(rec, "correct horse battery", "sk-or-v1-new-key-654321")
	if err != nil {
		t.Fatalf("RotateAPIKey failed: %v", err)
	}

	key, err := Unlock(next, "correct horse battery")
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if key != "sk-or-v1-new-key-654321" {
		t.Errorf("Expected new API key, got %q", key)
	}

	if _, err := RotateAPIKey(rec, "wrong password!!", "sk-or-v1-x"); err == nil {
		t.Error("Expected RotateAPIKey with wrong password to fail")
	}
}

func TestRecordValidate(t *testing.T) {
	rec, err := Initialize("correct horse battery", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(r *Record)
	}{
		{"short password salt", func(r *Record) { r.PasswordSalt = r.PasswordSalt[:4] }},
		{"short key salt", func(r *Record) { r.KeySalt = nil }},
		{"short hash", func(r *Record) { r.PasswordHash = r.PasswordHash[:16] }},
		{"low iterations", func(r *Record) { r.KDFIterations = 1000 }},
		{"truncated ciphertext", func(r *Record) { r.EncryptedAPIKey = r.EncryptedAPIKey[:8] }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := *rec
			tc.mutate(&bad)
			if err := bad.Validate(); !errors.Is(err, ErrRecordCorrupt) {
				t.Errorf("Expected ErrRecordCorrupt, got %v", err)
			}
			if _, err := Unlock(&bad, "correct horse battery"); err == nil {
				t.Error("Expected unlock of invalid record to be refused")
			}
		})
	}
}
