package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubilitics/clusterctl/internal/connection"
	"github.com/kubilitics/clusterctl/internal/registry"
)

// newConnectCmd creates the connect command
func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <cluster-id-or-context>",
		Short: "Connect to a cluster and remember the session",
		Long: `Make the given cluster the active one and persist the choice, so future
runs restore it automatically.

The argument is matched against registered clusters first (by id, then by
context name). If it only matches a discovered, unregistered context, that
context is registered on the fly and then connected.

Examples:
  clusterctl connect prod                                   # By context name
  clusterctl connect 1b4e28ba-2fa1-11d2-883f-0016d3cca427   # By cluster id`,
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			if err := connManager.Refresh(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}

			rec := matchCluster(connManager.Registered(), target)
			if rec != nil {
				connected, err := connManager.Connect(cmd.Context(), rec)
				if err != nil {
					return err
				}
				fmt.Printf("✅ Connected to %s (context %s)\n", connected.Name, connected.Context)
				return nil
			}

			// Not registered yet; maybe it is a discovered context.
			if disc := matchCluster(connManager.Discovered(), target); disc != nil {
				connected, err := connManager.PromoteDiscovered(cmd.Context(), disc)
				if err != nil {
					return err
				}
				fmt.Printf("✅ Registered and connected to %s (context %s)\n", connected.Name, connected.Context)
				return nil
			}

			return fmt.Errorf("no cluster matches %q; run 'clusterctl clusters list' to see what is available", target)
		},
	}
}

// newDisconnectCmd creates the disconnect command
func newDisconnectCmd() *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Sign out of the current cluster session",
		Long: `Clear the remembered cluster and mark the session as signed out. The next
run will not auto-restore; the one after that behaves normally again if a
new session was established in between.

With --purge the session file is removed entirely instead of being marked
signed out, leaving no state behind at all.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			if purge {
				if err := sessionStore.Clear(); err != nil {
					return err
				}
				fmt.Println("✅ Session state removed.")
				return nil
			}

			if err := connManager.Disconnect(); err != nil {
				return err
			}
			fmt.Println("✅ Disconnected. The next run will not restore this session.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "remove the session file entirely")
	return cmd
}

// newStatusCmd creates the status command
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session, restoring it if possible",
		Long: `Run the startup session flow and report where it landed: connected to the
remembered cluster, waiting for a selection, or signed out.

A remembered cluster is only restored if it still exists in the registry
and answers an accessibility probe within the configured timeout. A stale
session is cleared rather than reported as connected.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			restored, err := connManager.RestoreSession(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}

			switch connManager.State() {
			case connection.StateConnected:
				current := connManager.Current()
				if restored {
					fmt.Printf("✅ Session restored: connected to %s (context %s)\n", current.Name, current.Context)
				} else {
					fmt.Printf("✅ Connected to %s (context %s)\n", current.Name, current.Context)
				}
				if current.Version != "" {
					fmt.Printf("   Server: %s, version %s\n", current.ServerURL, current.Version)
				}
			case connection.StateAwaitingSelection:
				fmt.Println("Not connected. Pick a cluster with 'clusterctl connect <id-or-context>'.")
			default:
				fmt.Printf("Not connected (state: %s)\n", connManager.State())
			}

			return nil
		},
	}
}

// matchCluster finds a cluster by id first, then by context name.
func matchCluster(clusters []*registry.Cluster, target string) *registry.Cluster {
	for _, c := range clusters {
		if c.ID == target {
			return c
		}
	}
	for _, c := range clusters {
		if c.Context == target {
			return c
		}
	}
	return nil
}
