// Package vault implements the encrypted credential store: a password hash
// for authentication and a separately keyed, authenticated encryption of the
// API key. The record is useless without the password even if the backing
// file is copied off the machine.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLength is the byte length of both the password salt and the key salt.
	SaltLength = 16

	// KeyLength is the AES-256 key length.
	KeyLength = 32

	// Iterations is the PBKDF2 iteration count used for new records.
	Iterations = 200000

	// MinIterations is the lowest iteration count accepted on load. Records
	// below this are treated as corrupt rather than silently honored.
	MinIterations = 100000

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
)

var (
	// ErrDecryptionFailed indicates the GCM tag did not verify: wrong
	// password, or a corrupted/tampered record.
	ErrDecryptionFailed = errors.New("vault: decryption failed")

	// ErrPasswordMismatch indicates a failed password verification.
	ErrPasswordMismatch = errors.New("vault: password mismatch")

	// ErrRecordCorrupt indicates a structurally invalid record (bad salt
	// lengths, weak KDF parameters, truncated ciphertext). Unlocking such a
	// record is refused.
	ErrRecordCorrupt = errors.New("vault: credential record corrupt")
)

// WeakPasswordError reports a password that fails the minimum-entropy policy.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return "vault: weak password: " + e.Reason
}

// Record is the persisted credential entity. The plaintext password and
// plaintext API key never appear in it: the password is stored as a PBKDF2
// hash and the API key as an AES-256-GCM ciphertext under a key derived from
// the same password with a distinct salt.
type Record struct {
	EncryptedAPIKey []byte `json:"encrypted_api_key"`
	PasswordHash    []byte `json:"password_hash"`
	PasswordSalt    []byte `json:"password_salt"`
	KeySalt         []byte `json:"key_salt"`
	KDFIterations   int    `json:"kdf_iterations"`
}

// Validate checks the structural invariants of a loaded record. A record
// that fails validation must never be used for verification or unlocking.
func (r *Record) Validate() error {
	if r == nil {
		return ErrRecordCorrupt
	}
	if len(r.PasswordSalt) != SaltLength || len(r.KeySalt) != SaltLength {
		return fmt.Errorf("%w: unexpected salt length", ErrRecordCorrupt)
	}
	if len(r.PasswordHash) != KeyLength {
		return fmt.Errorf("%w: unexpected hash length", ErrRecordCorrupt)
	}
	if r.KDFIterations < MinIterations {
		return fmt.Errorf("%w: iteration count below minimum", ErrRecordCorrupt)
	}
	// GCM nonce + at least the tag.
	if len(r.EncryptedAPIKey) < 12+16 {
		return fmt.Errorf("%w: ciphertext too short", ErrRecordCorrupt)
	}
	return nil
}

// CheckPassword applies the minimum-entropy policy for new passwords.
func CheckPassword(password string) error {
	if len(password) < MinPasswordLength {
		return &WeakPasswordError{Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// Initialize builds a fresh record from a password and an API key. It derives
// the password hash and the encryption key from distinct random salts, and
// seals the API key with AES-256-GCM so tampering is detectable.
func Initialize(password, apiKey string) (*Record, error) {
	if err := CheckPassword(password); err != nil {
		return nil, err
	}

	passwordSalt, err := randomBytes(SaltLength)
	if err != nil {
		return nil, err
	}
	keySalt, err := randomBytes(SaltLength)
	if err != nil {
		return nil, err
	}

	hash := deriveKey(password, passwordSalt, Iterations)
	encKey := deriveKey(password, keySalt, Iterations)

	ciphertext, err := seal(encKey, []byte(apiKey))
	if err != nil {
		return nil, err
	}

	return &Record{
		EncryptedAPIKey: ciphertext,
		PasswordHash:    hash,
		PasswordSalt:    passwordSalt,
		KeySalt:         keySalt,
		KDFIterations:   Iterations,
	}, nil
}

// Verify recomputes the password hash with the stored salt and parameters and
// compares it in constant time. It is the authoritative check for lockout
// counting; it never reveals which byte differed.
func Verify(rec *Record, password string) bool {
	if rec.Validate() != nil {
		return false
	}
	computed := deriveKey(password, rec.PasswordSalt, rec.KDFIterations)
	return subtle.ConstantTimeCompare(computed, rec.PasswordHash) == 1
}

// Unlock decrypts the stored API key. The password is always verified first;
// a GCM failure after a successful verification means the record itself is
// damaged (ErrRecordCorrupt), which is distinct from a wrong password
// (ErrPasswordMismatch). This ordering avoids exposing the decryption step as
// an oracle for password guessing.
func Unlock(rec *Record, password string) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	if !Verify(rec, password) {
		return "", ErrPasswordMismatch
	}
	encKey := deriveKey(password, rec.KeySalt, rec.KDFIterations)
	plaintext, err := open(encKey, rec.EncryptedAPIKey)
	if err != nil {
		// Verification succeeded but the ciphertext did not authenticate:
		// the record is in a damaged or mixed state.
		return "", fmt.Errorf("%w: %w", ErrRecordCorrupt, ErrDecryptionFailed)
	}
	return string(plaintext), nil
}

// Rotate re-keys the record to a new password. It verifies the old password,
// recovers the API key, and returns a complete replacement record with fresh
// salts, hash, and ciphertext. The caller persists the returned record with
// an atomic replace so no mixed state (hash from one password, ciphertext
// from another) can ever be observed.
func Rotate(rec *Record, oldPassword, newPassword string) (*Record, error) {
	apiKey, err := Unlock(rec, oldPassword)
	if err != nil {
		return nil, err
	}
	return Initialize(newPassword, apiKey)
}

// RotateAPIKey replaces the stored API key under the same password, with the
// same all-or-nothing discipline as Rotate.
func RotateAPIKey(rec *Record, password, newAPIKey string) (*Record, error) {
	if _, err := Unlock(rec, password); err != nil {
		return nil, err
	}
	return Initialize(password, newAPIKey)
}

func deriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, KeyLength, sha256.New)
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("vault: failed to read random bytes: %w", err)
	}
	return buf, nil
}

// seal encrypts plaintext with AES-256-GCM, prepending the random nonce to
// the returned ciphertext.
func seal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to create GCM: %w", err)
	}
	nonce, err := randomBytes(gcm.NonceSize())
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a nonce-prefixed AES-256-GCM ciphertext.
func open(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to create GCM: %w", err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrDecryptionFailed
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
