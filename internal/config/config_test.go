package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
backendUrl: "http://registry.internal:9090"
requestTimeout: 30
probeTimeout: 3
stateDir: "/var/lib/clusterctl"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.BackendURL != "http://registry.internal:9090" {
		t.Errorf("Expected backend URL 'http://registry.internal:9090', got '%s'", cfg.BackendURL)
	}
	if cfg.RequestTimeout != 30 {
		t.Errorf("Expected request timeout 30, got %d", cfg.RequestTimeout)
	}
	if cfg.SessionPath() != filepath.Join("/var/lib/clusterctl", "session.yaml") {
		t.Errorf("Unexpected session path: %s", cfg.SessionPath())
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "minimal.yaml")
	if err := os.WriteFile(configPath, []byte("backendUrl: http://localhost:8080\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.RequestTimeout != 15 {
		t.Errorf("Expected default request timeout 15, got %d", cfg.RequestTimeout)
	}
	if cfg.ProbeTimeout != 5 {
		t.Errorf("Expected default probe timeout 5, got %d", cfg.ProbeTimeout)
	}
	if cfg.StateDir == "" {
		t.Error("Expected a default state directory")
	}
}

func TestLoadConfigExplicitPathMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Error("Expected error for missing explicit config file, got nil")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  &Config{BackendURL: "http://localhost:8080"},
			wantErr: false,
		},
		{
			name:    "https backend",
			config:  &Config{BackendURL: "https://registry.example.com"},
			wantErr: false,
		},
		{
			name:    "bad scheme",
			config:  &Config{BackendURL: "ftp://registry.example.com"},
			wantErr: true,
		},
		{
			name:    "no host",
			config:  &Config{BackendURL: "http://"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			config:  &Config{BackendURL: "http://localhost:8080", RequestTimeout: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
