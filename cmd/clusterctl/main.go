package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kubilitics/clusterctl/internal/config"
	"github.com/kubilitics/clusterctl/internal/connection"
	"github.com/kubilitics/clusterctl/internal/registry"
	"github.com/kubilitics/clusterctl/internal/session"
)

// Global variables to hold our core components
// These are initialized once in PersistentPreRunE and reused across commands
var (
	appConfig      *config.Config
	registryClient *registry.Client
	sessionStore   *session.Store
	connManager    *connection.Manager
	log            = logrus.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clusterctl",
	Short: "Cluster connection manager for the Kubilitics registry",
	Long: `clusterctl manages which Kubernetes cluster you are connected to through
a Kubilitics cluster registry backend.

With clusterctl, you can:
- List clusters registered with the backend and contexts it has discovered
- Register new clusters from a kubeconfig file (with safe handling of
  multi-context documents)
- Connect to a cluster and have the session remembered across runs
- Restore or cleanly drop the remembered session
- Probe a cluster's API server directly when the registry's view is in doubt

Examples:
  clusterctl clusters list                   # Show registered clusters
  clusterctl clusters discovered             # Show unregistered kubeconfig contexts
  clusterctl register --file ~/.kube/config  # Register a cluster from a kubeconfig
  clusterctl connect prod                    # Connect by cluster id or context name
  clusterctl status                          # Show (and restore) the current session
  clusterctl disconnect                      # Sign out; next run will not auto-restore

Configuration:
  clusterctl looks for configuration in these locations (in order):
  1. ./clusterctl.yaml (current directory)
  2. ~/.clusterctl/config.yaml (user home directory)
  3. $XDG_CONFIG_HOME/clusterctl/config.yaml (XDG config directory)

  Without a config file it talks to http://localhost:8080. Use
  'clusterctl config init' to create a configuration file.`,

	// PersistentPreRunE wires the core components before any command runs:
	// configuration, registry client, session store, connection manager.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			log.SetLevel(logrus.DebugLevel)
		}

		cfg, err := config.LoadConfig(viper.GetString("config"))
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if backend := viper.GetString("backend"); backend != "" {
			cfg.BackendURL = backend
		}
		appConfig = cfg

		entry := logrus.NewEntry(log)
		registryClient = registry.NewClient(cfg.BackendURL, cfg.RequestTimeoutDuration(), entry)
		sessionStore = session.NewStore(cfg.SessionPath())
		connManager = connection.NewManager(registryClient, sessionStore, cfg.ProbeTimeoutDuration(), entry)

		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags that apply to all commands
	rootCmd.PersistentFlags().String("config", "", "config file path (default: auto-detect)")
	rootCmd.PersistentFlags().String("backend", "", "registry backend URL (overrides config file)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().String("output", "table", "output format (table, json, yaml)")

	// Bind flags to viper for configuration management. Binding failures
	// indicate a fundamental setup problem, hence the panics.
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("failed to bind config flag: %v", err))
	}
	if err := viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend")); err != nil {
		panic(fmt.Sprintf("failed to bind backend flag: %v", err))
	}
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind verbose flag: %v", err))
	}
	if err := viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")); err != nil {
		panic(fmt.Sprintf("failed to bind output flag: %v", err))
	}

	// Build the complete command tree
	rootCmd.AddCommand(newClustersCmd())
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newDisconnectCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newProbeCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	// Allow overrides like CLUSTERCTL_BACKEND and CLUSTERCTL_VERBOSE
	viper.SetEnvPrefix("CLUSTERCTL")
	viper.AutomaticEnv()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not read config file: %v\n", err)
		}
	}
}
