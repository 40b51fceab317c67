package vault

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), CredentialFileName))
}

func TestStoreSaveLoad(t *testing.T) {
	store := newTestStore(t)

	rec, err := Initialize("correct horse battery", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if store.Exists() {
		t.Error("Store should not exist before first save")
	}

	if err := store.Save(rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !store.Exists() {
		t.Error("Store should exist after save")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	key, err := Unlock(loaded, "correct horse battery")
	if err != nil {
		t.Fatalf("Unlock of loaded record failed: %v", err)
	}
	if key != "sk-or-v1-test-key-123456" {
		t.Errorf("Expected original API key, got %q", key)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load(); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord, got %v", err)
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0600); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrRecordCorrupt) {
		t.Errorf("Expected ErrRecordCorrupt, got %v", err)
	}
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)

	rec, err := Initialize("correct horse battery", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
}

func TestStoreErase(t *testing.T) {
	store := newTestStore(t)

	rec, err := Initialize("correct horse battery", "sk-or-v1-test-key-123456")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Erase(); err != nil {
		t.Fatalf("Erase failed: %v", err)
	}
	if store.Exists() {
		t.Error("Credential file should be gone after erase")
	}

	// Erasing a missing file is not an error.
	if err := store.Erase(); err != nil {
		t.Errorf("Erase of missing file should succeed, got %v", err)
	}
}
