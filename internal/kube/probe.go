// Package kube performs direct connectivity checks against a Kubernetes
// cluster, bypassing the registry. The registry's accessibility probe is the
// normal path; this exists for diagnosing the difference between "the
// registry cannot reach the cluster" and "nobody can reach the cluster".
package kube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ProbeResult summarizes a successful direct probe.
type ProbeResult struct {
	Context        string `json:"context"`
	ServerURL      string `json:"serverUrl"`
	Version        string `json:"version"`
	NodeCount      int    `json:"nodeCount"`
	ReadyNodes     int    `json:"readyNodes"`
	NamespaceCount int    `json:"namespaceCount"`
}

// ProbePath checks connectivity for a context in a kubeconfig file.
// An empty path falls back to $KUBECONFIG and then ~/.kube/config; an empty
// contextName uses the file's current-context.
func ProbePath(ctx context.Context, path, contextName string, timeout time.Duration) (*ProbeResult, error) {
	path, err := resolveKubeconfigPath(path)
	if err != nil {
		return nil, err
	}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: path},
		&clientcmd.ConfigOverrides{CurrentContext: contextName},
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	return probe(ctx, restConfig, contextName, timeout)
}

// ProbeBytes checks connectivity for a context in raw kubeconfig content,
// e.g. a file about to be uploaded for registration.
func ProbeBytes(ctx context.Context, raw []byte, contextName string, timeout time.Duration) (*ProbeResult, error) {
	clientConfig, err := clientcmd.NewClientConfigFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kubeconfig: %w", err)
	}

	rawConfig, err := clientConfig.RawConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read kubeconfig: %w", err)
	}
	if contextName == "" {
		contextName = rawConfig.CurrentContext
	}

	restConfig, err := clientcmd.NewNonInteractiveClientConfig(
		rawConfig, contextName, &clientcmd.ConfigOverrides{}, nil,
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build client config for context %q: %w", contextName, err)
	}

	return probe(ctx, restConfig, contextName, timeout)
}

// probe runs the actual checks: API server version first (the cheapest
// possible round trip, so auth and routing failures surface immediately),
// then node and namespace inventories.
func probe(ctx context.Context, restConfig *rest.Config, contextName string, timeout time.Duration) (*ProbeResult, error) {
	if timeout > 0 {
		restConfig.Timeout = timeout
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	version, err := clientset.Discovery().ServerVersion()
	if err != nil {
		return nil, fmt.Errorf("cluster is not reachable: %w", err)
	}

	result := &ProbeResult{
		Context:   contextName,
		ServerURL: restConfig.Host,
		Version:   version.GitVersion,
	}

	// Inventory calls are best-effort: a cluster that answers the version
	// check but denies node listing (restricted RBAC) still counts as
	// reachable.
	if nodes, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{}); err == nil {
		result.NodeCount = len(nodes.Items)
		for _, node := range nodes.Items {
			if nodeIsReady(&node) {
				result.ReadyNodes++
			}
		}
	}
	if namespaces, err := clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{}); err == nil {
		result.NamespaceCount = len(namespaces.Items)
	}

	return result, nil
}

func nodeIsReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// resolveKubeconfigPath applies the standard fallbacks: explicit path,
// $KUBECONFIG, then ~/.kube/config, with tilde expansion on the way.
func resolveKubeconfigPath(path string) (string, error) {
	if path == "" {
		path = os.Getenv("KUBECONFIG")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, ".kube", "config")
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand tilde in path: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("kubeconfig not found: %w", err)
	}
	return path, nil
}
