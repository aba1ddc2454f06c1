// Package session persists the connection session between runs: which
// cluster was active last, and whether the user explicitly signed out.
// It is the only mutable state the client owns — everything else lives in
// the registry.
package session

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// State is the persisted session. It is read once at startup and written
// only by the connect and disconnect transitions; no other component
// touches it, so there are no write conflicts to coordinate.
type State struct {
	// CurrentClusterID is the last-connected cluster's registry id, or
	// empty when no session exists.
	CurrentClusterID string `json:"current_cluster_id,omitempty"`
	// LoggedOut suppresses automatic session restore exactly once after an
	// explicit disconnect, then clears itself. Without it, startup would
	// immediately restore the session the user just chose to leave.
	LoggedOut bool `json:"logged_out,omitempty"`
	// DemoMode marks a demo/sample-data session; connecting to a real
	// cluster clears it.
	DemoMode bool `json:"demo_mode,omitempty"`
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path, conventionally
// <state-dir>/session.yaml.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted session. A missing file is a fresh install, not
// an error: it yields the zero state. A corrupt file is treated the same
// way — losing a remembered session is recoverable, refusing to start over
// it is not.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return State{}
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return State{}
	}
	return state
}

// Save writes the session atomically (temp file + rename) with 0600
// permissions, so a crash mid-write never leaves a truncated session behind.
func (s *Store) Save(state State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set session file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp session file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Clear removes the session file entirely. Used by explicit sign-out flows
// that want a clean slate rather than a zeroed file.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
