// Package connection implements the cluster connection state machine: it
// orchestrates session restore on startup, manual selection, registration of
// new kubeconfig contexts, and disconnect. The registry owns the cluster
// records; this package owns the flow between them and the persisted session.
package connection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kubilitics/clusterctl/internal/kubeconfig"
	"github.com/kubilitics/clusterctl/internal/registry"
	"github.com/kubilitics/clusterctl/internal/session"
)

// State identifies where the connection flow currently is.
type State string

const (
	StateIdle              State = "idle"
	StateProbingSession    State = "probing-session"
	StateRestoring         State = "restoring"
	StateAwaitingSelection State = "awaiting-selection"
	StateFailedRestore     State = "failed-restore"
	StateConnected         State = "connected"
	StateDisconnecting     State = "disconnecting"
)

// DefaultProbeTimeout bounds the accessibility probe during session restore.
// Exceeding it counts as a failed probe: the stale session is cleared and
// the flow falls through to manual selection instead of hanging on a
// cluster that may have been torn down since the last run.
const DefaultProbeTimeout = 5 * time.Second

// Registry is the slice of the registry client the state machine consumes.
// Declared here so tests can drive the machine with a fake registry.
type Registry interface {
	ListClusters(ctx context.Context) ([]*registry.Cluster, error)
	DiscoverClusters(ctx context.Context) ([]*registry.Cluster, error)
	CheckHealth(ctx context.Context) error
	CheckAccessible(ctx context.Context, id string) error
	RegisterUpload(ctx context.Context, kubeconfigBase64, contextName string) (*registry.Cluster, error)
	RegisterDiscovered(ctx context.Context, kubeconfigPath, contextName string) (*registry.Cluster, error)
}

// AmbiguousContextError reports that a kubeconfig carries several contexts
// and none was chosen. This is a required decision point, not a failure:
// submitting an ambiguous document would make the registry guess which
// cluster endpoint the operator intended, and guessing risks connecting to
// the wrong infrastructure.
type AmbiguousContextError struct {
	// Candidates are the parsed context names, in document order.
	Candidates []string
	// Suggested is the document's current-context, a sensible default for
	// the selection prompt. May be empty.
	Suggested string
}

func (e *AmbiguousContextError) Error() string {
	return fmt.Sprintf("kubeconfig contains %d contexts (%s); choose one explicitly",
		len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// Manager is the connection state machine. All session mutations route
// through its named transitions (Connect, Disconnect, RestoreSession); the
// session file is never written from anywhere else.
type Manager struct {
	mu           sync.Mutex
	registry     Registry
	store        *session.Store
	log          *logrus.Entry
	probeTimeout time.Duration

	state      State
	sess       session.State
	current    *registry.Cluster
	registered []*registry.Cluster
	discovered []*registry.Cluster

	// pending is the optimistic overlay: a record we created (or connected
	// to) that the registry's list does not reflect yet. It is served from
	// Registered() until a refresh shows the authoritative copy, then
	// discarded.
	pending *registry.Cluster

	// restoreAttempted guards RestoreSession so it runs at most once per
	// process, no matter how many times its triggering data re-resolves.
	restoreAttempted bool
	restoreErr       error
}

// NewManager creates the state machine and loads the persisted session.
// The session is read exactly once here; afterwards the in-memory copy is
// authoritative and only Connect/Disconnect/RestoreSession write it back.
func NewManager(reg Registry, store *session.Store, probeTimeout time.Duration, log *logrus.Entry) *Manager {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		registry:     reg,
		store:        store,
		log:          log.WithField("component", "connection"),
		probeTimeout: probeTimeout,
		state:        StateIdle,
		sess:         store.Load(),
	}
}

// RestoreSession runs the startup probe: if a previous session exists and
// the user did not just sign out, verify the remembered cluster still exists
// and is reachable, then reconnect to it. Returns true when a session was
// restored.
//
// The sequence is strictly ordered for the single session being restored
// (exists check, then accessibility probe, then commit or clear) but is
// independent of Refresh — callers may run both concurrently.
func (m *Manager) RestoreSession(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.restoreAttempted {
		return m.state == StateConnected, nil
	}
	m.restoreAttempted = true
	m.state = StateProbingSession

	// One-shot logout suppression: an explicit disconnect skips exactly one
	// restore, then the flag clears so the next run restores normally.
	if m.sess.LoggedOut {
		m.log.Debug("skipping session restore: user signed out last run")
		m.sess.LoggedOut = false
		if err := m.store.Save(m.sess); err != nil {
			m.log.WithError(err).Warn("failed to clear logout flag")
		}
		m.state = StateAwaitingSelection
		return false, nil
	}

	if m.sess.CurrentClusterID == "" {
		m.state = StateAwaitingSelection
		return false, nil
	}

	log := m.log.WithField("cluster_id", m.sess.CurrentClusterID)
	log.Debug("probing remembered session")

	clusters, err := m.registry.ListClusters(ctx)
	if err != nil {
		// The registry itself is unreachable. That says nothing about the
		// remembered cluster, so keep the session for a later attempt and
		// fall through to manual selection with a non-blocking error.
		log.WithError(err).Warn("cannot verify remembered session: registry unreachable")
		m.state = StateAwaitingSelection
		m.restoreErr = err
		return false, fmt.Errorf("session restore skipped: %w", err)
	}

	remembered := findCluster(clusters, m.sess.CurrentClusterID)
	if remembered == nil {
		// The cluster was deleted from the registry between sessions.
		// Expected case, not an error: clear and return to selection.
		log.Info("remembered cluster no longer registered; clearing session")
		m.clearStaleSessionLocked()
		return false, nil
	}

	// The record still exists, but existence is not reachability: the
	// cluster may have been torn down or the network changed since last
	// run. Probe before trusting the cached session, so a dead cluster
	// becomes a clean "reconnect" prompt instead of confusing downstream
	// errors.
	m.state = StateRestoring

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	if err := m.registry.CheckAccessible(probeCtx, remembered.ID); err != nil {
		log.WithError(err).Info("remembered cluster not accessible; clearing session")
		m.clearStaleSessionLocked()
		return false, nil
	}

	m.registered = clusters
	m.commitLocked(remembered)
	log.WithField("context", remembered.Context).Info("session restored")
	return true, nil
}

// clearStaleSessionLocked handles both failed-restore paths (cluster gone
// from the registry, or present but unreachable): sign the cached session
// out and fall through to manual selection without surfacing a hard error.
func (m *Manager) clearStaleSessionLocked() {
	m.state = StateFailedRestore
	m.sess.CurrentClusterID = ""
	m.sess.LoggedOut = false
	if err := m.store.Save(m.sess); err != nil {
		m.log.WithError(err).Warn("failed to persist cleared session")
	}
	m.state = StateAwaitingSelection
}

// commitLocked marks a cluster as the active connection and clears
// transient selection state.
func (m *Manager) commitLocked(c *registry.Cluster) {
	m.current = c
	m.pending = nil
	m.state = StateConnected
}

// Connect makes the given cluster the active one and persists the session.
//
// The caller-supplied record may be partial (a brand-new registration not
// yet reflected in the registry's list); Connect resolves the authoritative
// record when it can and tolerates the race by keeping the partial record as
// an optimistic overlay when it cannot. No accessibility probe runs here:
// the user just picked this cluster from a live list, unlike the unattended
// restore path.
func (m *Manager) Connect(ctx context.Context, rec *registry.Cluster) (*registry.Cluster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx, rec)
}

func (m *Manager) connectLocked(ctx context.Context, rec *registry.Cluster) (*registry.Cluster, error) {
	if rec == nil || (rec.ID == "" && rec.Context == "") {
		return nil, fmt.Errorf("no cluster selected")
	}

	resolved := rec
	if clusters, err := m.registry.ListClusters(ctx); err == nil {
		m.registered = clusters
		if authoritative := findCluster(clusters, rec.ID); authoritative != nil {
			resolved = authoritative
		} else if byCtx := findClusterByContext(clusters, rec.Context); rec.ID == "" && byCtx != nil {
			resolved = byCtx
		}
		// Otherwise this is a freshly registered record the list has not
		// caught up with yet; pendingAfterCommit keeps the caller's copy
		// as an overlay until a refresh reconciles it.
	} else {
		m.log.WithError(err).Debug("could not refresh cluster list during connect; using provided record")
	}

	m.commitLocked(resolved)
	m.pending = pendingAfterCommit(m.registered, resolved)

	m.sess.CurrentClusterID = resolved.ID
	m.sess.LoggedOut = false
	m.sess.DemoMode = false
	if err := m.store.Save(m.sess); err != nil {
		return nil, fmt.Errorf("connected but failed to persist session: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"cluster_id": resolved.ID,
		"context":    resolved.Context,
	}).Info("connected")
	return resolved, nil
}

// pendingAfterCommit keeps the overlay only while the committed record is
// missing from the authoritative list.
func pendingAfterCommit(clusters []*registry.Cluster, committed *registry.Cluster) *registry.Cluster {
	if committed.ID != "" && findCluster(clusters, committed.ID) == nil {
		return committed
	}
	return nil
}

// Register submits raw kubeconfig bytes to the registry.
//
// The candidate rule follows the number of contexts parsed from the
// document: zero candidates submit with an empty context hint (the registry
// infers the default), exactly one submits that context directly, and more
// than one returns AmbiguousContextError so the caller can ask the operator
// — the registry is never called with an ambiguous document.
func (m *Manager) Register(ctx context.Context, raw []byte, chosenContext string) (*registry.Cluster, error) {
	doc := kubeconfig.Parse(kubeconfig.DecodeText(raw))

	submitContext := chosenContext
	if submitContext == "" {
		switch len(doc.Contexts) {
		case 0:
			// Unparseable or context-free document: let the registry infer.
			submitContext = ""
		case 1:
			submitContext = doc.Contexts[0]
		default:
			return nil, &AmbiguousContextError{Candidates: doc.Contexts, Suggested: doc.CurrentContext}
		}
	} else if len(doc.Contexts) > 0 && !containsString(doc.Contexts, submitContext) {
		return nil, fmt.Errorf("context %q not found in kubeconfig (available: %s)",
			submitContext, strings.Join(doc.Contexts, ", "))
	}

	rec, err := m.registry.RegisterUpload(ctx, kubeconfig.EncodeTransport(raw), submitContext)
	if err != nil {
		return nil, fmt.Errorf("failed to register cluster: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"cluster_id": rec.ID,
		"context":    rec.Context,
	}).Info("cluster registered")

	m.mu.Lock()
	m.pending = rec
	m.mu.Unlock()

	// Best-effort: bring the collections up to date (and reconcile the
	// overlay) so the caller's next selection sees the new record.
	if err := m.Refresh(ctx); err != nil {
		m.log.WithError(err).Debug("post-registration refresh failed")
	}
	return rec, nil
}

// PromoteDiscovered registers a discovered context through its kubeconfig
// path on the registry host (no byte upload needed) and immediately connects
// to the newly created record.
func (m *Manager) PromoteDiscovered(ctx context.Context, rec *registry.Cluster) (*registry.Cluster, error) {
	if rec == nil || rec.Context == "" {
		return nil, fmt.Errorf("no discovered context selected")
	}

	created, err := m.registry.RegisterDiscovered(ctx, rec.KubeconfigPath, rec.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to register discovered context %q: %w", rec.Context, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx, created)
}

// Disconnect signs out: it clears the remembered cluster and sets the
// one-shot logout flag so the next startup does not immediately restore the
// session the user just chose to leave.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateDisconnecting
	m.current = nil
	m.pending = nil

	m.sess = session.State{LoggedOut: true}
	if err := m.store.Save(m.sess); err != nil {
		return fmt.Errorf("failed to persist sign-out: %w", err)
	}

	m.state = StateIdle
	m.log.Info("disconnected")
	return nil
}

// Refresh fetches the registered and discovered collections. The two reads
// are independent, so they run in parallel; a failure of one does not
// discard the other's result, and the stale copy of a failed collection is
// kept so the caller still has something to render.
func (m *Manager) Refresh(ctx context.Context) error {
	type listResult struct {
		kind     string
		clusters []*registry.Cluster
		err      error
	}

	results := make(chan listResult, 2)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		clusters, err := m.registry.ListClusters(ctx)
		results <- listResult{kind: "registered", clusters: clusters, err: err}
	}()
	go func() {
		defer wg.Done()
		clusters, err := m.registry.DiscoverClusters(ctx)
		results <- listResult{kind: "discovered", clusters: clusters, err: err}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var failures []string
	m.mu.Lock()
	defer m.mu.Unlock()

	for res := range results {
		if res.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", res.kind, res.err))
			continue
		}
		switch res.kind {
		case "registered":
			m.registered = res.clusters
			if m.pending != nil && findCluster(res.clusters, m.pending.ID) != nil {
				// Authoritative list caught up; drop the overlay.
				m.pending = nil
			}
		case "discovered":
			m.discovered = res.clusters
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("failed to refresh clusters:\n%s", strings.Join(failures, "\n"))
	}
	return nil
}

// State returns the machine's current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the active cluster, or nil when not connected.
func (m *Manager) Current() *registry.Cluster {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Registered returns the last-fetched registered clusters, with the
// optimistic overlay appended while the authoritative list lags behind a
// fresh registration.
func (m *Manager) Registered() []*registry.Cluster {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return m.registered
	}
	merged := make([]*registry.Cluster, 0, len(m.registered)+1)
	merged = append(merged, m.registered...)
	if findCluster(m.registered, m.pending.ID) == nil {
		merged = append(merged, m.pending)
	}
	return merged
}

// Discovered returns the last-fetched discovered contexts.
func (m *Manager) Discovered() []*registry.Cluster {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discovered
}

// Session returns a copy of the in-memory session state.
func (m *Manager) Session() session.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// RestoreError returns the non-blocking error recorded by the last restore
// attempt (registry unreachable), or nil.
func (m *Manager) RestoreError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoreErr
}

func findCluster(clusters []*registry.Cluster, id string) *registry.Cluster {
	if id == "" {
		return nil
	}
	for _, c := range clusters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func findClusterByContext(clusters []*registry.Cluster, contextName string) *registry.Cluster {
	if contextName == "" {
		return nil
	}
	for _, c := range clusters {
		if c.Context == contextName {
			return c
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
