package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZeroState(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.yaml"))

	state := store.Load()
	if state.CurrentClusterID != "" || state.LoggedOut || state.DemoMode {
		t.Errorf("Expected zero state for missing file, got %+v", state)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	store := NewStore(path)

	saved := State{CurrentClusterID: "c-42", LoggedOut: true}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	loaded := store.Load()
	if loaded != saved {
		t.Errorf("Expected %+v after reload, got %+v", saved, loaded)
	}

	// Session files can carry cluster identifiers for private
	// infrastructure; keep them owner-only like kubeconfigs.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat session file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Expected permissions 0600, got %o", perm)
	}
}

func TestLoadCorruptFileReturnsZeroState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte("{{{{not yaml"), 0600); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	state := NewStore(path).Load()
	if state != (State{}) {
		t.Errorf("Expected zero state for corrupt file, got %+v", state)
	}
}

func TestSaveCreatesStateDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.yaml")
	store := NewStore(path)

	if err := store.Save(State{CurrentClusterID: "c-1"}); err != nil {
		t.Fatalf("Failed to save into missing directory: %v", err)
	}

	if got := store.Load().CurrentClusterID; got != "c-1" {
		t.Errorf("Expected cluster id 'c-1', got '%s'", got)
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	store := NewStore(path)

	if err := store.Save(State{CurrentClusterID: "c-1"}); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Failed to clear session: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected session file to be removed")
	}

	// Clearing an already-missing session must be a no-op.
	if err := store.Clear(); err != nil {
		t.Errorf("Expected Clear on missing file to succeed, got %v", err)
	}
}
