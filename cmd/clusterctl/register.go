package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kubilitics/clusterctl/internal/connection"
)

// newRegisterCmd creates the register command
func newRegisterCmd() *cobra.Command {
	var (
		filePath    string
		contextName string
		andConnect  bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a cluster from a kubeconfig file",
		Long: `Upload a kubeconfig file to the registry and create a cluster record for
one of its contexts.

If the file holds exactly one context, that context is used without
asking. If it holds several, you must choose one: pass --context, or run
interactively and pick from the prompt (the file's current-context is
offered as the default). A file with several contexts is never submitted
without an explicit choice.

Examples:
  clusterctl register --file ./staging-kubeconfig.yaml
  clusterctl register --file ~/.kube/config --context prod
  clusterctl register --file ./kubeconfig.yaml --connect`,

		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read kubeconfig file: %w", err)
			}

			rec, err := connManager.Register(cmd.Context(), raw, contextName)

			var ambiguous *connection.AmbiguousContextError
			if errors.As(err, &ambiguous) {
				chosen, promptErr := promptForContext(cmd, ambiguous)
				if promptErr != nil {
					return promptErr
				}
				rec, err = connManager.Register(cmd.Context(), raw, chosen)
			}
			if err != nil {
				return err
			}

			fmt.Printf("✅ Registered cluster %s (context %s, id %s)\n", rec.Name, rec.Context, rec.ID)

			if andConnect {
				connected, err := connManager.Connect(cmd.Context(), rec)
				if err != nil {
					return err
				}
				fmt.Printf("✅ Connected to %s\n", connected.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the kubeconfig file to register (required)")
	cmd.Flags().StringVarP(&contextName, "context", "c", "", "context to register when the file holds several")
	cmd.Flags().BoolVar(&andConnect, "connect", false, "connect to the cluster right after registering")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag required: %v", err))
	}

	return cmd
}

// promptForContext asks the operator to pick one of the kubeconfig's
// contexts. The document's current-context, when present, is the default
// accepted by pressing enter.
func promptForContext(cmd *cobra.Command, ambiguous *connection.AmbiguousContextError) (string, error) {
	fmt.Println("The kubeconfig contains multiple contexts:")
	for i, name := range ambiguous.Candidates {
		marker := " "
		if name == ambiguous.Suggested {
			marker = "*"
		}
		fmt.Printf(" %s %d) %s\n", marker, i+1, name)
	}

	if ambiguous.Suggested != "" {
		fmt.Printf("Context to register [%s]: ", ambiguous.Suggested)
	} else {
		fmt.Print("Context to register: ")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("no context selected (non-interactive? use --context): %w", err)
	}

	chosen := strings.TrimSpace(line)
	if chosen == "" {
		if ambiguous.Suggested == "" {
			return "", fmt.Errorf("no context selected")
		}
		chosen = ambiguous.Suggested
	}
	return chosen, nil
}
