// Package reclaim runs the router's two periodic sweeps: the
// stale-mapping cleaner over each backend's active set, and the
// expired-token cleaner retained for schema compatibility (spec.md
// §4.6, §9).
package reclaim

import (
	"context"
	"time"

	"sessionrouter/internal/logger"
	"sessionrouter/internal/metrics"
	"sessionrouter/internal/store"
)

const (
	staleMappingPeriod = 5 * time.Minute
	expiredTokenPeriod = 1 * time.Hour
	logoutTokensSetKey = "logout_tokens"
)

// Workers owns the two reclamation loops and the backend set, TTL, and
// store they sweep over.
type Workers struct {
	store    store.Store
	backends []string
	ttl      time.Duration
	metrics  *metrics.Metrics
}

// New builds a Workers ready to Run.
func New(s store.Store, backends []string, ttl time.Duration, m *metrics.Metrics) *Workers {
	return &Workers{store: s, backends: backends, ttl: ttl, metrics: m}
}

// Run starts both sweep loops; each runs until ctx is cancelled.
func (w *Workers) Run(ctx context.Context) {
	go w.runPeriodic(ctx, staleMappingPeriod, w.sweepStaleMappings)
	go w.runPeriodic(ctx, expiredTokenPeriod, w.sweepExpiredTokens)
}

func (w *Workers) runPeriodic(ctx context.Context, period time.Duration, sweep func(context.Context)) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx)
		}
	}
}

// sweepStaleMappings evicts entries older than the TTL window from
// each backend's active set (spec.md §4.6). Errors are logged and the
// loop continues onto the next backend/tick.
func (w *Workers) sweepStaleMappings(ctx context.Context) {
	now := float64(time.Now().UnixMilli())
	cutoff := now - float64(w.ttl.Milliseconds())

	for _, addr := range w.backends {
		setKey := "backend:" + addr
		removed, err := w.store.ZRemRangeByScore(ctx, setKey, 0, cutoff)
		if err != nil {
			logger.Log.Error("stale mapping sweep failed", "backend", addr, "error", err)
			continue
		}
		if removed > 0 {
			logger.Log.Debug("evicted stale mappings", "backend", addr, "count", removed)
		}
		if w.metrics != nil && removed > 0 {
			w.metrics.ReclaimedTotal.WithLabelValues(addr).Add(float64(removed))
		}
	}
}

// sweepExpiredTokens removes entries from the logout_tokens sorted
// set scored in seconds up to now. Nothing in the core populates this
// set (spec.md §9); the sweep is retained for compatibility with the
// schema a future auth feature might reuse.
func (w *Workers) sweepExpiredTokens(ctx context.Context) {
	nowSeconds := float64(time.Now().Unix())
	if _, err := w.store.ZRemRangeByScore(ctx, logoutTokensSetKey, 0, nowSeconds); err != nil {
		logger.Log.Error("expired token sweep failed", "error", err)
	}
}
