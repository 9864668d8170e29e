package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// handleHealth implements GET /health (spec.md §4.5.3): a liveness
// probe against each backend's /start_agent endpoint, issued as a GET
// even though the backend declares it POST — only the status line
// matters, not the semantics (§9). This has no bearing on routing
// decisions.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(s.manager.Backends()))

	for _, addr := range s.manager.Backends() {
		results[addr] = s.probeBackend(r.Context(), addr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(results)
}

func (s *Server) probeBackend(ctx context.Context, addr string) string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:8080/start_agent", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "Error: " + err.Error()
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "Error: " + err.Error()
	}
	defer resp.Body.Close()

	return "Status: " + resp.Status
}
