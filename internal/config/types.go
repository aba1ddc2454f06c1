package config

import (
	"path/filepath"
	"time"
)

// Config holds the client-side settings: where the registry backend lives,
// how long to wait for it, and where session state is kept. Cluster records
// themselves live in the registry, never in this file.
type Config struct {
	// BackendURL is the cluster registry's base URL.
	BackendURL string `yaml:"backendUrl" json:"backendUrl"`
	// RequestTimeout bounds every registry request, in seconds.
	RequestTimeout int `yaml:"requestTimeout,omitempty" json:"requestTimeout"`
	// ProbeTimeout bounds the accessibility probe during session restore,
	// in seconds. Kept short so a torn-down cluster turns into a selection
	// prompt instead of a long hang.
	ProbeTimeout int `yaml:"probeTimeout,omitempty" json:"probeTimeout"`
	// StateDir is where the session file lives. Defaults to ~/.clusterctl.
	StateDir string `yaml:"stateDir,omitempty" json:"stateDir"`
}

// SessionPath returns the session file location under the state directory.
func (c *Config) SessionPath() string {
	return filepath.Join(c.StateDir, "session.yaml")
}

// RequestTimeoutDuration returns the request timeout as a time.Duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// ProbeTimeoutDuration returns the probe timeout as a time.Duration.
func (c *Config) ProbeTimeoutDuration() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Second
}
