package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, nil), server
}

func TestListClusters(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/v1/clusters", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "c-1", "name": "prod", "context": "prod", "status": "connected", "is_current": true},
			{"id": "c-2", "name": "staging", "context": "staging", "status": "disconnected"}
		]`))
	}))

	clusters, err := client.ListClusters(context.Background())
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.Equal(t, "c-1", clusters[0].ID)
	assert.True(t, clusters[0].IsCurrent)
	assert.Equal(t, HealthHealthy, clusters[0].Health())
	assert.Equal(t, HealthUnhealthy, clusters[1].Health())
}

func TestGetClusterNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "cluster not found: nope"}`))
	}))

	_, err := client.GetCluster(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "cluster not found: nope")
}

func TestRegistryErrorSurfacesBackendMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "failed to initialize k8s client: invalid credentials"}`))
	}))

	_, err := client.RegisterUpload(context.Background(), "Zm9v", "prod")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "invalid credentials")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestTransportFailureIsNotNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	client := NewClient(server.URL, time.Second, nil)
	_, err := client.ListClusters(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "registry unreachable")
}

func TestRegisterUploadBody(t *testing.T) {
	var got map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/clusters", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "c-9", "name": "staging", "context": "staging", "status": "connected"}`))
	}))

	cluster, err := client.RegisterUpload(context.Background(), "ZGF0YQ==", "staging")
	require.NoError(t, err)

	assert.Equal(t, "ZGF0YQ==", got["kubeconfig_base64"])
	assert.Equal(t, "staging", got["context"])
	assert.NotContains(t, got, "kubeconfig_path")
	assert.Equal(t, "c-9", cluster.ID)
}

func TestRegisterDiscoveredBody(t *testing.T) {
	var got map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "c-3", "context": "kind-local", "status": "connected"}`))
	}))

	_, err := client.RegisterDiscovered(context.Background(), "/home/ops/.kube/config", "kind-local")
	require.NoError(t, err)

	assert.Equal(t, "/home/ops/.kube/config", got["kubeconfig_path"])
	assert.Equal(t, "kind-local", got["context"])
	assert.NotContains(t, got, "kubeconfig_base64")
}

func TestCheckAccessible(t *testing.T) {
	status := "connected"
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/clusters/c-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": "c-1", "context": "prod", "status": "` + status + `"}`))
	}))

	require.NoError(t, client.CheckAccessible(context.Background(), "c-1"))

	status = "disconnected"
	err := client.CheckAccessible(context.Background(), "c-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAccessible)
}

func TestCheckHealth(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))

	assert.NoError(t, client.CheckHealth(context.Background()))
}

func TestHealthNormalization(t *testing.T) {
	tests := []struct {
		status string
		want   Health
	}{
		{StatusConnected, HealthHealthy},
		{StatusDisconnected, HealthUnhealthy},
		{StatusError, HealthUnhealthy},
		{StatusChecking, HealthChecking},
		{StatusDetected, HealthUnknown},
		{"something-new", HealthUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			c := &Cluster{Status: tt.status}
			assert.Equal(t, tt.want, c.Health())
		})
	}
}
