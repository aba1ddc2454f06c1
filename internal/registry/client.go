package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotFound marks an expected absence: the registry answered, but the
// requested cluster does not exist. Callers must distinguish this from a
// transport failure — a missing cluster clears a stale session, an
// unreachable registry must not.
var ErrNotFound = errors.New("cluster not found in registry")

// ErrNotAccessible means the cluster is registered but its API server could
// not be reached at last observation.
var ErrNotAccessible = errors.New("cluster is not accessible")

// APIError carries a non-404 error response from the registry. The message
// is the backend's own, which is actionable for registration failures (bad
// credentials, malformed kubeconfig) and gets surfaced to the user as-is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry returned %d: %s", e.StatusCode, e.Message)
}

// Client is a thin REST consumer of the cluster registry backend. It owns no
// cluster state of its own — every call is a read or an idempotent upsert
// against the registry.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *logrus.Entry
}

// NewClient creates a registry client for the given base URL (scheme and
// host, e.g. http://localhost:8080). The timeout bounds every individual
// request in addition to whatever deadline the caller's context carries.
func NewClient(baseURL string, timeout time.Duration, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		log:     log.WithField("component", "registry"),
	}
}

// ListClusters returns all registered clusters. GET /api/v1/clusters
func (c *Client) ListClusters(ctx context.Context) ([]*Cluster, error) {
	var clusters []*Cluster
	if err := c.do(ctx, http.MethodGet, "/api/v1/clusters", nil, &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

// DiscoverClusters returns contexts visible in the registry host's
// kubeconfig that are not registered yet. Their records carry ephemeral ids
// and status "detected". GET /api/v1/clusters/discover
func (c *Client) DiscoverClusters(ctx context.Context) ([]*Cluster, error) {
	var clusters []*Cluster
	if err := c.do(ctx, http.MethodGet, "/api/v1/clusters/discover", nil, &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

// GetCluster fetches a single cluster record with its live connectivity
// status. Returns ErrNotFound when the id is unknown.
func (c *Client) GetCluster(ctx context.Context, id string) (*Cluster, error) {
	var cluster Cluster
	if err := c.do(ctx, http.MethodGet, "/api/v1/clusters/"+id, nil, &cluster); err != nil {
		return nil, err
	}
	return &cluster, nil
}

// CheckHealth verifies the registry itself is up. GET /health
func (c *Client) CheckHealth(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// CheckAccessible probes whether a specific cluster's API server is
// reachable right now. This is distinct from CheckHealth: the registry
// being up says nothing about any one cluster. Returns ErrNotFound for an
// unknown id and ErrNotAccessible when the cluster exists but is down.
func (c *Client) CheckAccessible(ctx context.Context, id string) error {
	cluster, err := c.GetCluster(ctx, id)
	if err != nil {
		return err
	}
	if cluster.Health() != HealthHealthy {
		return fmt.Errorf("%w: cluster %s reported status %q", ErrNotAccessible, id, cluster.Status)
	}
	return nil
}

// registerRequest is the POST /api/v1/clusters body. Exactly one of the
// kubeconfig fields is set: base64 content for uploads, a path on the
// registry host for discovery promotion.
type registerRequest struct {
	KubeconfigPath   string `json:"kubeconfig_path,omitempty"`
	KubeconfigBase64 string `json:"kubeconfig_base64,omitempty"`
	Context          string `json:"context,omitempty"`
}

// RegisterUpload registers a cluster from base64-encoded kubeconfig content.
// An empty contextName asks the registry to infer the document's default.
// Registration is an idempotent upsert: re-submitting an already-known
// context returns the existing record with the same id.
func (c *Client) RegisterUpload(ctx context.Context, kubeconfigBase64, contextName string) (*Cluster, error) {
	var cluster Cluster
	req := registerRequest{KubeconfigBase64: kubeconfigBase64, Context: contextName}
	if err := c.do(ctx, http.MethodPost, "/api/v1/clusters", req, &cluster); err != nil {
		return nil, err
	}
	return &cluster, nil
}

// RegisterDiscovered promotes a discovered context to a registered cluster
// without re-uploading file bytes: the registry re-reads the kubeconfig at
// the path it reported during discovery. An empty path lets the registry
// fall back to its default kubeconfig.
func (c *Client) RegisterDiscovered(ctx context.Context, kubeconfigPath, contextName string) (*Cluster, error) {
	var cluster Cluster
	req := registerRequest{KubeconfigPath: kubeconfigPath, Context: contextName}
	if err := c.do(ctx, http.MethodPost, "/api/v1/clusters", req, &cluster); err != nil {
		return nil, err
	}
	return &cluster, nil
}

// RemoveCluster deletes a cluster record from the registry.
func (c *Client) RemoveCluster(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/clusters/"+id, nil, nil)
}

// apiErrorBody is the backend's error envelope.
type apiErrorBody struct {
	Error string `json:"error"`
}

// do issues one request and decodes the JSON response into out (when out is
// non-nil). It separates the three outcomes every call site cares about:
// transport failure (wrapped network error), expected absence (ErrNotFound),
// and application error (APIError with the backend's message).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	requestID := uuid.New().String()
	log := c.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
	})

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug("registry request")
	started := time.Now()

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.WithError(err).Debug("registry request failed")
		return fmt.Errorf("registry unreachable: %w", err)
	}
	defer resp.Body.Close()

	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(started).Round(time.Millisecond).String(),
	}).Debug("registry response")

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, readErrorMessage(resp.Body))
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode registry response: %w", err)
		}
	}
	return nil
}

// readErrorMessage extracts the backend's error message, falling back to the
// raw body when it is not the usual {"error": ...} envelope.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no error details provided"
	}
	var envelope apiErrorBody
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(raw))
}
