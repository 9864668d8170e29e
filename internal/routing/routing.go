// Package routing implements the routing state manager: the data-model
// operations on the coordination store that assign, look up, and
// account for client-to-backend mappings (spec.md §4.4).
package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"sessionrouter/internal/apperror"
	"sessionrouter/internal/metrics"
	"sessionrouter/internal/store"
)

// ErrNoAvailableBackend is returned by selectLeastLoaded when every
// backend is at or above the configured cap.
var ErrNoAvailableBackend = errors.New("no available backend")

// Manager is the routing state manager. It holds the static backend
// set and the per-backend cap, and performs every read/write against
// the coordination store that the routing contract requires.
type Manager struct {
	store         store.Store
	backends      []string
	maxPerBackend int
	ttl           time.Duration
	metrics       *metrics.Metrics
}

// New constructs a Manager over the given store, backend set, cap, and
// mapping TTL. m may be nil, in which case the manager runs without
// publishing the active-sessions gauge.
func New(s store.Store, backends []string, maxPerBackend int, ttl time.Duration, m *metrics.Metrics) *Manager {
	return &Manager{store: s, backends: backends, maxPerBackend: maxPerBackend, ttl: ttl, metrics: m}
}

func clientKey(clientID string) string { return "client:" + clientID }
func backendKey(addr string) string    { return "backend:" + addr }

// DeriveClientID returns the X-Client-Id request header if present and
// non-empty (case-insensitive header lookup is handled by net/http's
// canonicalization), otherwise mints a fresh UUID-style identifier.
func DeriveClientID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-Id")); id != "" {
		return id
	}
	return uuid.New().String()
}

// GetOrAssignBackend returns the backend sticky-bound to clientID,
// selecting a new one via selectLeastLoaded if no mapping exists yet.
// It writes nothing; the mapping is stored by RecordActiveRequest.
func (m *Manager) GetOrAssignBackend(ctx context.Context, clientID string) (string, error) {
	addr, err := m.store.Get(ctx, clientKey(clientID))
	if err == nil {
		return addr, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", apperror.Wrap(apperror.CodeAssignment, "Error assigning backend", err)
	}

	addr, err = m.selectLeastLoaded(ctx)
	if err != nil {
		return "", apperror.Wrap(apperror.CodeAssignment, "Error assigning backend", err)
	}
	return addr, nil
}

// GetClientBackend returns the backend currently bound to clientID,
// failing if no mapping exists (used only on stop — an unmapped
// client cannot be routed).
func (m *Manager) GetClientBackend(ctx context.Context, clientID string) (string, error) {
	addr, err := m.store.Get(ctx, clientKey(clientID))
	if err != nil {
		return "", apperror.Wrap(apperror.CodeLookup, "Error retrieving backend", err)
	}
	return addr, nil
}

// selectLeastLoaded picks the backend with the smallest live session
// count that is still strictly below the cap, breaking ties by
// iteration order over the backend set.
func (m *Manager) selectLeastLoaded(ctx context.Context) (string, error) {
	now := float64(time.Now().UnixMilli())
	windowStart := now - float64(m.ttl.Milliseconds())

	best := ""
	bestCount := int64(-1)

	for _, addr := range m.backends {
		count, err := m.store.ZCount(ctx, backendKey(addr), windowStart, now)
		if err != nil {
			return "", fmt.Errorf("counting live sessions for %s: %w", addr, err)
		}
		if m.metrics != nil {
			m.metrics.ActiveSessions.WithLabelValues(addr).Set(float64(count))
		}
		if count >= int64(m.maxPerBackend) {
			continue
		}
		if bestCount == -1 || count < bestCount {
			best = addr
			bestCount = count
		}
	}

	if best == "" {
		return "", ErrNoAvailableBackend
	}
	return best, nil
}

// RecordActiveRequest atomically writes the forward mapping (with
// expiry) and adds clientID to backend's active set, scored by the
// current time in milliseconds.
func (m *Manager) RecordActiveRequest(ctx context.Context, backend, clientID string) error {
	now := float64(time.Now().UnixMilli())
	return m.store.RecordActive(ctx, clientKey(clientID), backend, m.ttl, backendKey(backend), clientID, now)
}

// ClearActiveRequest removes clientID from backend's active set. The
// forward mapping is left untouched and expires via its own TTL.
func (m *Manager) ClearActiveRequest(ctx context.Context, backend, clientID string) error {
	return m.store.ZRem(ctx, backendKey(backend), clientID)
}

// Backends returns the static backend set this manager was configured
// with.
func (m *Manager) Backends() []string {
	return m.backends
}
