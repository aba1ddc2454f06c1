package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// LoadConfig reads the client configuration from a YAML file. With an empty
// path it probes the standard locations; a tool this small must also work
// with no config file at all, in which case it returns pure defaults
// (local backend, short timeouts).
func LoadConfig(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = findDefaultConfigPath()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			cfg := &Config{}
			setDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	setDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// findDefaultConfigPath looks for the config file in standard locations:
// current directory, ~/.clusterctl, then the XDG config directory.
func findDefaultConfigPath() string {
	if _, err := os.Stat("./clusterctl.yaml"); err == nil {
		return "./clusterctl.yaml"
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".clusterctl", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" && homeDir != "" {
		configDir = filepath.Join(homeDir, ".config")
	}
	if configDir != "" {
		configPath := filepath.Join(configDir, "clusterctl", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	if homeDir != "" {
		return filepath.Join(homeDir, ".clusterctl", "config.yaml")
	}
	return "./clusterctl.yaml"
}

// validateConfig catches configuration mistakes before they turn into
// confusing network errors later.
func validateConfig(cfg *Config) error {
	parsed, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return fmt.Errorf("backendUrl is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backendUrl must use http or https, got %q", cfg.BackendURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("backendUrl has no host: %q", cfg.BackendURL)
	}

	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("requestTimeout must not be negative, got %d", cfg.RequestTimeout)
	}
	if cfg.ProbeTimeout < 0 {
		return fmt.Errorf("probeTimeout must not be negative, got %d", cfg.ProbeTimeout)
	}

	return nil
}

// setDefaults fills in reasonable default values for missing configuration.
func setDefaults(cfg *Config) {
	if cfg.BackendURL == "" {
		cfg.BackendURL = "http://localhost:8080"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 15
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5
	}
	if cfg.StateDir == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			cfg.StateDir = filepath.Join(homeDir, ".clusterctl")
		} else {
			cfg.StateDir = ".clusterctl"
		}
	}
}
