package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// newConfigCmd creates the config command for managing tool configuration
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage clusterctl configuration",
		Long: `The config command helps you set up and inspect the configuration file
that tells clusterctl where the registry backend lives.

clusterctl works without any configuration (it then talks to a backend on
http://localhost:8080), so these commands only matter when your registry
runs somewhere else or you want to tune timeouts.

Examples:
  clusterctl config init      # Create a starter configuration file
  clusterctl config show      # Display the effective configuration
  clusterctl config validate  # Check configuration and registry reachability
  clusterctl config path      # Show where the config file is located`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigValidateCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' subcommand
func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new configuration file",
		Long: `Create a starter configuration file with all available settings and
explanatory comments. Edit it afterwards to point at your registry
backend, then check the result with 'clusterctl config validate'.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := getConfigInitPath()
			if err != nil {
				return fmt.Errorf("failed to determine config path: %w", err)
			}

			// Don't silently overwrite an existing file
			if _, err := os.Stat(configPath); err == nil {
				overwrite, _ := cmd.Flags().GetBool("force")
				if !overwrite {
					return fmt.Errorf("configuration file already exists at %s\nUse --force to overwrite", configPath)
				}
				fmt.Printf("⚠️  Overwriting existing configuration file at %s\n", configPath)
			}

			configDir := filepath.Dir(configPath)
			if err := os.MkdirAll(configDir, 0755); err != nil {
				return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
			}

			if err := os.WriteFile(configPath, []byte(generateSampleConfig()), 0644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			fmt.Printf("✅ Configuration file created at: %s\n\n", configPath)
			fmt.Println("Next steps:")
			fmt.Println("1. Edit the file and set backendUrl to your registry")
			fmt.Println("2. Check it: clusterctl config validate")
			fmt.Println("3. List your clusters: clusterctl clusters list")

			return nil
		},
	}

	cmd.Flags().Bool("force", false, "overwrite existing configuration file")
	return cmd
}

// newConfigShowCmd creates the 'config show' subcommand
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Show the configuration clusterctl is actually running with, after
defaults and the --backend override have been applied. Useful for
checking which registry a command will talk to.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("clusterctl Configuration\n")
			fmt.Printf("========================\n\n")

			fmt.Printf("Registry backend:  %s\n", appConfig.BackendURL)
			fmt.Printf("Request timeout:   %d seconds\n", appConfig.RequestTimeout)
			fmt.Printf("Probe timeout:     %d seconds\n", appConfig.ProbeTimeout)
			fmt.Printf("State directory:   %s\n", appConfig.StateDir)
			fmt.Printf("Session file:      %s\n", appConfig.SessionPath())

			return nil
		},
	}
}

// newConfigValidateCmd creates the 'config validate' subcommand
func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and test registry reachability",
		Long: `Check the configuration file for problems and verify that the configured
registry backend answers its health endpoint.

Configuration syntax and value validation happens during startup, so
reaching this command at all means the file parsed. What remains is the
part a parser cannot check: whether the backend is actually there.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Validating clusterctl configuration...")
			fmt.Println()

			fmt.Printf("✅ Configuration is valid\n")
			fmt.Printf("✅ Registry backend: %s\n", appConfig.BackendURL)

			fmt.Println("\nTesting registry reachability...")

			if err := registryClient.CheckHealth(cmd.Context()); err != nil {
				fmt.Printf("❌ Registry is not reachable: %v\n", err)
				fmt.Println("\nTroubleshooting tips:")
				fmt.Println("- Verify the backend URL and port")
				fmt.Println("- Check that the registry service is running")
				fmt.Println("- Try overriding with --backend or CLUSTERCTL_BACKEND")
				return nil
			}

			fmt.Println("✅ Registry is healthy")
			fmt.Println("\nYour configuration is working. You can now use:")
			fmt.Println("- clusterctl clusters list    # View registered clusters")
			fmt.Println("- clusterctl register         # Register a new cluster")
			fmt.Println("- clusterctl status           # Show the current session")

			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' subcommand
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file location",

		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := findConfigPath()

			if configPath == "" {
				fmt.Println("No configuration file found (running with defaults).")
				fmt.Println("\nclusterctl looks for configuration in these locations (in order):")
				fmt.Println("1. ./clusterctl.yaml (current directory)")
				if homeDir, err := os.UserHomeDir(); err == nil {
					fmt.Printf("2. %s/.clusterctl/config.yaml (user home directory)\n", homeDir)

					if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
						fmt.Printf("3. %s/clusterctl/config.yaml (XDG config directory)\n", xdgConfig)
					} else {
						fmt.Printf("3. %s/.config/clusterctl/config.yaml (XDG config directory)\n", homeDir)
					}
				}
				fmt.Println("\nRun 'clusterctl config init' to create a configuration file.")
				return nil
			}

			fmt.Printf("Configuration file: %s\n", configPath)
			if info, err := os.Stat(configPath); err == nil {
				fmt.Printf("Last modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
				fmt.Printf("File size: %d bytes\n", info.Size())
			}

			return nil
		},
	}
}

// getConfigInitPath determines where to create a new configuration file
func getConfigInitPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".clusterctl", "config.yaml"), nil
}

// findConfigPath attempts to locate the current configuration file
func findConfigPath() string {
	if _, err := os.Stat("./clusterctl.yaml"); err == nil {
		return "./clusterctl.yaml"
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(homeDir, ".clusterctl", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = filepath.Join(homeDir, ".config")
	}

	path = filepath.Join(configDir, "clusterctl", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}

	return ""
}

// generateSampleConfig creates a sample configuration file content
func generateSampleConfig() string {
	return `# clusterctl configuration
# This file tells clusterctl where the cluster registry backend lives.

# Base URL of the registry backend (required)
backendUrl: "http://localhost:8080"

# How long to wait for registry requests, in seconds
requestTimeout: 15

# How long the session-restore accessibility probe may take, in seconds.
# Keep this short: when a remembered cluster is gone, you want a selection
# prompt, not a hang.
probeTimeout: 5

# Where the session file is kept (defaults to ~/.clusterctl)
# stateDir: "~/.clusterctl"

# Any setting can also come from the environment with a CLUSTERCTL_ prefix,
# e.g. CLUSTERCTL_BACKEND=http://registry.internal:9090
`
}
