package httpapi

import (
	"fmt"
	"net/http"

	"sessionrouter/internal/apperror"
	"sessionrouter/internal/routing"
)

// handleStop implements POST /stop_agent (spec.md §4.5.2). An unmapped
// clientID is deliberately surfaced as a 500 lookup error (§9: the
// current behavior is preserved for compatibility even though 404
// would arguably be more appropriate).
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	body, err := decodeAgentRequest(r)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	clientID := routing.DeriveClientID(r)

	backend, err := s.manager.GetClientBackend(r.Context(), clientID)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	resp, err := s.forwardToBackend(r, backend, "/stop_agent", body)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	out, status, err := readAugmentedResponse(resp, clientID)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	writeRaw(w, status, out)

	if isSuccess(status) {
		if err := s.manager.ClearActiveRequest(r.Context(), backend, clientID); err != nil {
			logRequestError("/stop_agent", fmt.Errorf("clearing active request: %w", err))
		}
	}
}
