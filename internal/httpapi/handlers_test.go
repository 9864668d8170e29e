package httpapi

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"sessionrouter/internal/config"
	"sessionrouter/internal/metrics"
	"sessionrouter/internal/routing"
	"sessionrouter/internal/store"
)

// newTestServer wires a Server against a miniredis-backed routing
// manager and a fake backend (an httptest.Server standing in for the
// worker on port 8080). Because the router always dials
// "http://<addr>:8080", the backend address is a placeholder host and
// the Server's HTTP client dials the fake backend's listener whatever
// host and port the request names.
func newTestServer(t *testing.T, backendHandler http.Handler) (*Server, *routing.Manager) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backendSrv := httptest.NewServer(backendHandler)
	t.Cleanup(backendSrv.Close)
	backendListen := backendSrv.Listener.Addr().String()
	backendAddr := "backend.test"

	cfg := &config.Config{
		BackendIPs:    []string{backendAddr},
		MaxPerBackend: 5,
		RedisURL:      "redis://localhost:6379",
	}
	require.NoError(t, cfg.Validate())

	m := metrics.New("test_" + t.Name())
	mgr := routing.New(store.NewFromClient(client), cfg.BackendIPs, cfg.MaxPerBackend, cfg.MappingTTL, m)
	srv := NewServer(cfg, mgr, m)
	srv.client = &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, backendListen)
		},
	}}
	return srv, mgr
}

func okBackend(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestHandleStart_HappyPath(t *testing.T) {
	srv, _ := newTestServer(t, okBackend(`{"status":"ok"}`))

	req := httptest.NewRequest(http.MethodPost, "/start_agent", strings.NewReader(`{"channel_name":"c1","uid":7}`))
	rec := httptest.NewRecorder()

	srv.handleStart(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
	require.Contains(t, rec.Body.String(), `"clientID"`)
}

func TestHandleStart_MissingChannelName(t *testing.T) {
	srv, _ := newTestServer(t, okBackend(`{"status":"ok"}`))

	req := httptest.NewRequest(http.MethodPost, "/start_agent", strings.NewReader(`{"uid":7}`))
	rec := httptest.NewRecorder()

	srv.handleStart(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStart_Stickiness(t *testing.T) {
	srv, _ := newTestServer(t, okBackend(`{"status":"ok"}`))

	req1 := httptest.NewRequest(http.MethodPost, "/start_agent", strings.NewReader(`{"channel_name":"c1","uid":7}`))
	rec1 := httptest.NewRecorder()
	srv.handleStart(rec1, req1)
	require.Equal(t, http.StatusOK, rec1.Code)

	var clientID string
	require.Contains(t, rec1.Body.String(), `"clientID":"`)
	idx := strings.Index(rec1.Body.String(), `"clientID":"`) + len(`"clientID":"`)
	clientID = rec1.Body.String()[idx:]
	clientID = clientID[:strings.IndexByte(clientID, '"')]

	req2 := httptest.NewRequest(http.MethodPost, "/start_agent", strings.NewReader(`{"channel_name":"c1","uid":7}`))
	req2.Header.Set("X-Client-Id", clientID)
	rec2 := httptest.NewRecorder()
	srv.handleStart(rec2, req2)

	require.Equal(t, http.StatusOK, rec2.Code)
	require.Contains(t, rec2.Body.String(), clientID)
}

func TestHandleStop_UnmappedClient(t *testing.T) {
	srv, _ := newTestServer(t, okBackend(`{"status":"ok"}`))

	req := httptest.NewRequest(http.MethodPost, "/stop_agent", strings.NewReader(`{"channel_name":"c1","uid":7}`))
	req.Header.Set("X-Client-Id", "never-started")
	rec := httptest.NewRecorder()

	srv.handleStop(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleStartThenStop_KeepsForwardMapping(t *testing.T) {
	srv, mgr := newTestServer(t, okBackend(`{"status":"ok"}`))

	req := httptest.NewRequest(http.MethodPost, "/start_agent", strings.NewReader(`{"channel_name":"c1","uid":7}`))
	req.Header.Set("X-Client-Id", "client-1")
	rec := httptest.NewRecorder()
	srv.handleStart(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stopReq := httptest.NewRequest(http.MethodPost, "/stop_agent", strings.NewReader(`{"channel_name":"c1","uid":7}`))
	stopReq.Header.Set("X-Client-Id", "client-1")
	stopRec := httptest.NewRecorder()
	srv.handleStop(stopRec, stopReq)
	require.Equal(t, http.StatusOK, stopRec.Code)

	_, err := mgr.GetClientBackend(req.Context(), "client-1")
	require.NoError(t, err, "forward mapping is left to expire, not deleted on stop")
}

func TestRouter_OptionsPreflightReachesCORS(t *testing.T) {
	srv, _ := newTestServer(t, okBackend(`{"status":"ok"}`))
	router := srv.Router()

	for _, path := range []string{"/start_agent", "/stop_agent", "/health"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://front-end.example")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code, "OPTIONS %s should reach the CORS middleware, not 405", path)
		require.Equal(t, "https://front-end.example", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Empty(t, rec.Body.String())
	}
}

func TestHandlePing(t *testing.T) {
	srv, _ := newTestServer(t, okBackend(`{}`))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	srv.handlePing(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"pong"}`, rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, okBackend(`{"status":"ok"}`))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Status:")
}
