package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"

	"github.com/kubilitics/clusterctl/internal/registry"
)

// newClustersCmd creates the clusters command and all its subcommands
func newClustersCmd() *cobra.Command {
	clustersCmd := &cobra.Command{
		Use:   "clusters",
		Short: "View and manage registry cluster records",
		Long: `The clusters command shows what the registry backend knows: clusters that
have been registered, and kubeconfig contexts it has discovered but that
nobody has registered yet.

Examples:
  clusterctl clusters list                 # Show registered clusters and their status
  clusterctl clusters discovered           # Show unregistered contexts the registry can see
  clusterctl clusters test                 # Check that the registry backend itself is up
  clusterctl clusters remove <cluster-id>  # Delete a cluster record
  clusterctl clusters list --output=json   # Machine-readable output`,
	}

	clustersCmd.AddCommand(newClustersListCmd())
	clustersCmd.AddCommand(newClustersDiscoveredCmd())
	clustersCmd.AddCommand(newClustersTestCmd())
	clustersCmd.AddCommand(newClustersRemoveCmd())

	return clustersCmd
}

// newClustersListCmd creates the 'clusters list' subcommand
func newClustersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered clusters and their status",
		Long: `Display all clusters registered with the backend, including each one's
connectivity status at last observation, its kubeconfig context, and
whether the registry currently treats it as the active context.

A failing registry is reported but does not abort the command: the last
known collections (if any) are still shown, and manual registration via
'clusterctl register' remains available as a recovery route.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connManager.Refresh(cmd.Context()); err != nil {
				// Non-blocking notice, per the error policy: an unreachable
				// registry must not leave the user without a next step.
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}

			clusters := connManager.Registered()
			if len(clusters) == 0 {
				fmt.Println("No clusters registered. Add one with 'clusterctl register --file <kubeconfig>'.")
				return nil
			}

			return outputClusters(clusters)
		},
	}
}

// newClustersDiscoveredCmd creates the 'clusters discovered' subcommand
func newClustersDiscoveredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discovered",
		Short: "List kubeconfig contexts the registry sees but has not registered",
		Long: `Display contexts visible in the registry host's kubeconfig that are not
registered yet. These can be promoted to registered clusters with
'clusterctl connect <context>' without uploading any file content — the
registry re-reads the kubeconfig it discovered them in.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connManager.Refresh(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}

			discovered := connManager.Discovered()
			if len(discovered) == 0 {
				fmt.Println("No unregistered contexts discovered.")
				return nil
			}

			return outputClusters(discovered)
		},
	}
}

// newClustersTestCmd creates the 'clusters test' subcommand
func newClustersTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test connectivity to the registry backend",
		Long: `Check that the registry backend answers its health endpoint. This tests
the backend itself, not any particular cluster — use 'clusterctl probe'
to check a cluster's API server directly.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Testing registry at %s...\n", appConfig.BackendURL)

			if err := registryClient.CheckHealth(cmd.Context()); err != nil {
				fmt.Printf("❌ Registry is not reachable: %v\n", err)
				return nil // Don't return error to avoid double error printing
			}

			fmt.Println("✅ Registry is healthy")
			return nil
		},
	}
}

// newClustersRemoveCmd creates the 'clusters remove' subcommand
func newClustersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <cluster-id>",
		Short: "Delete a cluster record from the registry",
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := registryClient.RemoveCluster(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to remove cluster %s: %w", id, err)
			}

			// Removing the active cluster orphans the session; sign out so
			// the next run does not try to restore a deleted cluster.
			if current := connManager.Current(); current != nil && current.ID == id {
				if err := connManager.Disconnect(); err != nil {
					return err
				}
			}

			fmt.Printf("✅ Cluster %s removed\n", id)
			return nil
		},
	}
}

// outputClusters renders a cluster collection in the format selected by the
// global --output flag.
func outputClusters(clusters []*registry.Cluster) error {
	switch viper.GetString("output") {
	case "json":
		return outputClustersJSON(clusters)
	case "yaml":
		return outputClustersYAML(clusters)
	default:
		return outputClustersTable(clusters)
	}
}

// outputClustersTable displays clusters in a human-readable table format
func outputClustersTable(clusters []*registry.Cluster) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tCONTEXT\tHEALTH\tCURRENT\tSERVER")
	fmt.Fprintln(w, "--\t----\t-------\t------\t-------\t------")

	for _, c := range clusters {
		health := string(c.Health())
		switch c.Health() {
		case registry.HealthHealthy:
			health = "✅ healthy"
		case registry.HealthUnhealthy:
			health = "❌ unhealthy"
		}

		currentMarker := ""
		if c.IsCurrent {
			currentMarker = "⭐ Yes"
		}

		server := c.ServerURL
		if server == "" {
			server = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.Name,
			c.Context,
			health,
			currentMarker,
			server,
		)
	}

	return nil
}

// outputClustersJSON displays clusters in JSON format
func outputClustersJSON(clusters []*registry.Cluster) error {
	output := struct {
		Clusters []*registry.Cluster `json:"clusters"`
		Count    int                 `json:"count"`
	}{
		Clusters: clusters,
		Count:    len(clusters),
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal clusters to JSON: %w", err)
	}

	fmt.Println(string(jsonData))
	return nil
}

// outputClustersYAML displays clusters in YAML format
func outputClustersYAML(clusters []*registry.Cluster) error {
	output := struct {
		Clusters []*registry.Cluster `json:"clusters"`
		Count    int                 `json:"count"`
	}{
		Clusters: clusters,
		Count:    len(clusters),
	}

	yamlData, err := yaml.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal clusters to YAML: %w", err)
	}

	fmt.Print(string(yamlData))
	return nil
}
