package registry

import "time"

// Cluster is the registry's record of a Kubernetes cluster. Field names and
// JSON tags follow the backend's wire format, so a record decodes straight
// out of the REST responses.
type Cluster struct {
	ID             string    `json:"id"`                        // Opaque identifier assigned by the registry
	Name           string    `json:"name"`                      // Display name, defaults to the context name
	Context        string    `json:"context"`                   // Kubeconfig context this record was registered under
	KubeconfigPath string    `json:"kubeconfig_path,omitempty"` // Source path on the registry host, if any
	ServerURL      string    `json:"server_url,omitempty"`      // API endpoint; empty for local/in-cluster records
	Version        string    `json:"version,omitempty"`         // Kubernetes version reported at last check
	Provider       string    `json:"provider,omitempty"`        // eks, gke, aks, on-prem, ...
	Status         string    `json:"status"`                    // Raw registry status, see Status* constants
	IsCurrent      bool      `json:"is_current"`                // Whether the registry treats this as the active context
	NodeCount      int       `json:"node_count,omitempty"`
	NamespaceCount int       `json:"namespace_count,omitempty"`
	LastConnected  time.Time `json:"last_connected,omitempty"`
}

// Raw status values as the registry reports them.
const (
	StatusConnected    = "connected"    // reachable at last observation
	StatusDisconnected = "disconnected" // registered but unreachable
	StatusError        = "error"        // reachable but failing (auth, 403, 5xx)
	StatusDetected     = "detected"     // discovered in a kubeconfig, not yet registered
	StatusChecking     = "checking"     // connectivity check in flight
)

// Health is the normalized connectivity state we expose to callers. The
// registry's raw statuses are finer-grained than anything the connection
// flow needs, so they collapse onto these four.
type Health string

const (
	HealthChecking  Health = "checking"
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
	HealthUnknown   Health = "unknown"
)

// Health maps the raw registry status onto the normalized domain.
func (c *Cluster) Health() Health {
	switch c.Status {
	case StatusConnected:
		return HealthHealthy
	case StatusDisconnected, StatusError:
		return HealthUnhealthy
	case StatusChecking:
		return HealthChecking
	default:
		// Covers "detected" (never probed) and any status a newer
		// backend might introduce.
		return HealthUnknown
	}
}

// Registered reports whether this record exists in the registry, as opposed
// to a discovered context that only carries an ephemeral id.
func (c *Cluster) Registered() bool {
	return c.Status != StatusDetected
}
