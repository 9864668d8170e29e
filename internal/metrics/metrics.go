// Package metrics exposes the router's Prometheus collectors. Metrics
// are reported for observability only — per spec.md's non-goals, they
// never feed back into routing decisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide collector set.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ReclaimedTotal  *prometheus.CounterVec
	ActiveSessions  *prometheus.GaugeVec
}

// New registers and returns the router's collectors under the given
// namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of router requests by route and status.",
			},
			[]string{"route", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Router request duration by route.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route"},
		),
		ReclaimedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reclaimed_entries_total",
				Help:      "Entries evicted by the reclamation workers, by backend.",
			},
			[]string{"backend"},
		),
		ActiveSessions: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Best-effort live session count per backend at last observation.",
			},
			[]string{"backend"},
		),
	}
}

// Handler returns the HTTP handler that serves metrics in Prometheus
// text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
