// Package httpapi wires the router's HTTP surface: the chi mux, the
// CORS/no-cache/timestamp middleware, and the start/stop/health/ping
// handlers (spec.md §4.3, §4.5).
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sessionrouter/internal/config"
	"sessionrouter/internal/logger"
	"sessionrouter/internal/metrics"
	"sessionrouter/internal/routing"
)

const upstreamTimeout = 30 * time.Second

// Server holds everything the HTTP handlers need: the routing state
// manager, the static backend set, and an HTTP client used to reach
// them.
type Server struct {
	cfg     *config.Config
	manager *routing.Manager
	metrics *metrics.Metrics
	client  *http.Client
}

// NewServer builds a Server over the given config and routing manager.
func NewServer(cfg *config.Config, manager *routing.Manager, m *metrics.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		manager: manager,
		metrics: m,
		client:  &http.Client{},
	}
}

// Router builds the chi mux exposing /start_agent, /stop_agent,
// /health, and /ping. /ping is intentionally mounted outside the
// CORS/no-cache/timestamp middleware chain (§4.5.4).
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/ping", s.handlePing)

	r.Group(func(r chi.Router) {
		r.Use(cors(s.cfg), noCache, timestamp, s.instrument)

		r.Post("/start_agent", s.handleStart)
		r.Post("/stop_agent", s.handleStop)
		r.Get("/health", s.handleHealth)

		// chi routes by method, so a browser's OPTIONS preflight never
		// reaches a Post/Get-only route; it falls through to chi's
		// method-not-allowed handler and never sees cors(). Register
		// OPTIONS explicitly on every routed path so preflight runs
		// the same middleware chain and the cors() MethodOptions
		// branch actually gets hit (§4.3.1, §8).
		preflight := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		r.Options("/start_agent", preflight.ServeHTTP)
		r.Options("/stop_agent", preflight.ServeHTTP)
		r.Options("/health", preflight.ServeHTTP)
	})

	return r
}

// instrument records per-route request counts and latencies.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.metrics.RequestsTotal.WithLabelValues(r.URL.Path, http.StatusText(sw.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"message":"pong"}`))
}

// logRequestError logs failures of the store bookkeeping that a
// handler does after its response is already written (recording or
// clearing an active request). Error responses written through
// apperror.WriteJSON are not logged here.
func logRequestError(route string, err error) {
	logger.Log.Error("request failed", "route", route, "error", err)
}
