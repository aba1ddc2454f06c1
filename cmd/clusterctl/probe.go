package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"

	"github.com/kubilitics/clusterctl/internal/kube"
)

// newProbeCmd creates the probe command
func newProbeCmd() *cobra.Command {
	var (
		filePath    string
		contextName string
		timeoutSec  int
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe a cluster's API server directly, bypassing the registry",
		Long: `Connect straight to a cluster's API server using a local kubeconfig and
report its version, node readiness, and namespace count.

This is the diagnostic counterpart to 'clusters test': when the registry
reports a cluster as unhealthy, a direct probe tells you whether the
cluster is really down or only unreachable from the registry host.

Examples:
  clusterctl probe                                  # Default kubeconfig, current context
  clusterctl probe --context prod                   # Specific context
  clusterctl probe --file ./staging-kubeconfig.yaml # Specific file
  clusterctl probe --timeout 10                     # Longer probe timeout`,

		RunE: func(cmd *cobra.Command, args []string) error {
			timeout := time.Duration(timeoutSec) * time.Second
			if timeoutSec == 0 {
				timeout = appConfig.ProbeTimeoutDuration()
			}

			result, err := kube.ProbePath(cmd.Context(), filePath, contextName, timeout)
			if err != nil {
				return fmt.Errorf("probe failed: %w", err)
			}

			switch viper.GetString("output") {
			case "json":
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal probe result to JSON: %w", err)
				}
				fmt.Println(string(data))
			case "yaml":
				data, err := yaml.Marshal(result)
				if err != nil {
					return fmt.Errorf("failed to marshal probe result to YAML: %w", err)
				}
				fmt.Print(string(data))
			default:
				fmt.Printf("✅ Cluster is reachable\n")
				fmt.Printf("   Context:    %s\n", displayOrDash(result.Context))
				fmt.Printf("   Server:     %s\n", result.ServerURL)
				fmt.Printf("   Version:    %s\n", result.Version)
				fmt.Printf("   Nodes:      %d (%d ready)\n", result.NodeCount, result.ReadyNodes)
				fmt.Printf("   Namespaces: %d\n", result.NamespaceCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "kubeconfig file (default: $KUBECONFIG, then ~/.kube/config)")
	cmd.Flags().StringVarP(&contextName, "context", "c", "", "context to probe (default: the file's current-context)")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "probe timeout in seconds (default: from config)")

	return cmd
}

func displayOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
