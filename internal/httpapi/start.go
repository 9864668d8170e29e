package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"sessionrouter/internal/apperror"
	"sessionrouter/internal/logger"
	"sessionrouter/internal/routing"
)

// agentRequestBody is the JSON body both /start_agent and /stop_agent
// accept (spec.md §4.5).
type agentRequestBody struct {
	ChannelName string `json:"channel_name"`
	UID         int64  `json:"uid"`
}

func decodeAgentRequest(r *http.Request) (agentRequestBody, error) {
	var body agentRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, apperror.Wrap(apperror.CodeValidation, "invalid JSON body", err)
	}
	if body.ChannelName == "" {
		return body, apperror.New(apperror.CodeValidation, "channel_name is required")
	}
	return body, nil
}

// forwardToBackend re-serializes body and POSTs it to path on backend,
// propagating r's context so client disconnection cancels the
// upstream call (spec.md §5).
func (s *Server) forwardToBackend(r *http.Request, backend, path string, body agentRequestBody) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeUpstreamBody, "failed to encode request", err)
	}

	ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:8080%s", backend, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeUpstream, "failed to reach backend service", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeUpstream, "failed to reach backend service", err)
	}
	return resp, nil
}

// readAugmentedResponse reads resp's body fully, parses it as a JSON
// object, injects clientID, and returns the augmented bytes alongside
// resp's status code.
func readAugmentedResponse(resp *http.Response, clientID string) ([]byte, int, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.CodeUpstreamBody, "failed to read upstream response", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, 0, apperror.Wrap(apperror.CodeUpstreamBody, "failed to parse upstream response", err)
	}
	obj["clientID"] = clientID

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.CodeUpstreamBody, "failed to encode response", err)
	}
	return out, resp.StatusCode, nil
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }

// handleStart implements POST /start_agent (spec.md §4.5.1).
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	body, err := decodeAgentRequest(r)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	clientID := routing.DeriveClientID(r)

	backend, err := s.manager.GetOrAssignBackend(r.Context(), clientID)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	resp, err := s.forwardToBackend(r, backend, "/start_agent", body)
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
		if err := s.manager.RecordActiveRequest(r.Context(), backend, clientID); err != nil {
			logRequestError("/start_agent", fmt.Errorf("recording active request: %w", err))
		}
	}
}
