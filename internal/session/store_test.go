package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if _, ok := store.Get("missing"); ok {
		t.Error("expected missing key to report ok=false")
	}

	if err := store.Set("token", "abc"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	v, ok := store.Get("token")
	if !ok || v != "abc" {
		t.Errorf("Get() = (%q, %v), want (\"abc\", true)", v, ok)
	}

	if err := store.Remove("token"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, ok := store.Get("token"); ok {
		t.Error("expected removed key to report ok=false")
	}

	// Removing a missing key is not an error.
	if err := store.Remove("token"); err != nil {
		t.Errorf("Remove() of missing key error: %v", err)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if err := store.Set("jwt_access_token", "tok123"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Set(ActiveBackendKey, "jwt"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() reopen error: %v", err)
	}
	v, ok := reopened.Get("jwt_access_token")
	if !ok || v != "tok123" {
		t.Errorf("Get() after reopen = (%q, %v), want (\"tok123\", true)", v, ok)
	}

	if err := reopened.Remove(ActiveBackendKey); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, ok := reopened.Get(ActiveBackendKey); ok {
		t.Error("expected removed key to be gone")
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-created.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if _, ok := store.Get("anything"); ok {
		t.Error("expected empty store for missing file")
	}
	// The file is only created on first write.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file at %s before first write", path)
	}
}

func TestFileStore_TokenFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if err := store.Set("k", "v"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session file mode = %o, want 0600", perm)
	}
}
