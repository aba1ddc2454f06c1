package kube

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
)

func TestProbeBytesRejectsMalformedKubeconfig(t *testing.T) {
	_, err := ProbeBytes(context.Background(), []byte("{{{{not a kubeconfig"), "", time.Second)
	if err == nil {
		t.Error("Expected error for malformed kubeconfig, got nil")
	}
}

func TestProbeBytesRejectsUnknownContext(t *testing.T) {
	kubeconfig := []byte(`
apiVersion: v1
kind: Config
clusters:
  - name: local
    cluster:
      server: https://127.0.0.1:6443
contexts:
  - name: local
    context:
      cluster: local
      user: local
users:
  - name: local
    user: {}
`)

	_, err := ProbeBytes(context.Background(), kubeconfig, "does-not-exist", time.Second)
	if err == nil {
		t.Error("Expected error for unknown context, got nil")
	}
}

func TestResolveKubeconfigPathMissingFile(t *testing.T) {
	_, err := resolveKubeconfigPath(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Error("Expected error for missing kubeconfig file, got nil")
	}
}

func TestResolveKubeconfigPathExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("apiVersion: v1"), 0600); err != nil {
		t.Fatalf("Failed to write kubeconfig: %v", err)
	}

	resolved, err := resolveKubeconfigPath(path)
	if err != nil {
		t.Fatalf("Failed to resolve explicit path: %v", err)
	}
	if resolved != path {
		t.Errorf("Expected path %s, got %s", path, resolved)
	}
}

func TestNodeIsReady(t *testing.T) {
	ready := &corev1.Node{Status: corev1.NodeStatus{Conditions: []corev1.NodeCondition{
		{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
	}}}
	notReady := &corev1.Node{Status: corev1.NodeStatus{Conditions: []corev1.NodeCondition{
		{Type: corev1.NodeReady, Status: corev1.ConditionFalse},
	}}}
	noCondition := &corev1.Node{}

	if !nodeIsReady(ready) {
		t.Error("Expected node with Ready=True to be ready")
	}
	if nodeIsReady(notReady) {
		t.Error("Expected node with Ready=False to not be ready")
	}
	if nodeIsReady(noCondition) {
		t.Error("Expected node without conditions to not be ready")
	}
}
