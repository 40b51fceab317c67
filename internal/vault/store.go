package vault

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// CredentialFileName is the credential record file inside the config dir.
	CredentialFileName = "credentials.json"

	credentialFileMode = 0600
)

// ErrNoRecord indicates no credential file exists yet (first run).
var ErrNoRecord = errors.New("vault: no credential record")

// Store persists a single credential record as restricted-permission JSON.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a credential record file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and validates the credential record. A structurally invalid
// record is reported as corrupt, never partially used.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("vault: failed to read credential file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save writes the record atomically: a temporary file in the same directory
// is written, synced, and renamed over the target, so a crash never leaves a
// half-written record. File permissions are restricted to the owning user;
// on filesystems without per-user permissions this is best-effort.
func (s *Store) Save(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: failed to marshal record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("vault: failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("vault: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	// Permission restriction is best-effort; some filesystems reject it.
	_ = tmp.Chmod(credentialFileMode)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("vault: failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("vault: failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("vault: failed to replace credential file: %w", err)
	}
	return nil
}

// Erase overwrites the credential file with random bytes before unlinking it.
// On copy-on-write or flash-backed filesystems the overwrite may land on new
// blocks, so physical unrecoverability cannot be guaranteed; this is a
// best-effort scrub, not a forensic wipe.
func (s *Store) Erase() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("vault: failed to stat credential file: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY, credentialFileMode)
	if err != nil {
		return fmt.Errorf("vault: failed to open credential file for erase: %w", err)
	}

	noise := make([]byte, info.Size())
	if _, err := rand.Read(noise); err == nil {
		if _, werr := f.WriteAt(noise, 0); werr == nil {
			_ = f.Sync()
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("vault: failed to close credential file: %w", err)
	}

	if err := os.Remove(s.path); err != nil {
		return fmt.Errorf("vault: failed to remove credential file: %w", err)
	}
	return nil
}
