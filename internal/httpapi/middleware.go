package httpapi

import (
	"net/http"
	"time"

	"sessionrouter/internal/apperror"
	"sessionrouter/internal/config"
)

// corsAllowedMethods and corsAllowedHeaders are fixed per spec.md
// §4.3 — the router does not expose them as configuration.
const (
	corsAllowedMethods = "GET, POST, DELETE, PATCH, OPTIONS"
	corsAllowedHeaders = "X-Client-Id, Authorization, Content-Type"
)

// cors implements §4.3.1: origin allow-list, preflight handling, and
// the standard CORS response headers. A request whose Origin is not
// on the allow-list is rejected with 403 before reaching the handler.
func cors(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if !cfg.AllowAnyOrigin && origin != "" && !originAllowed(cfg.AllowedOrigins, origin) {
				apperror.WriteJSON(w, apperror.New(apperror.CodeCORS, "Origin not allowed"))
				return
			}

			allowOrigin := origin
			if cfg.AllowAnyOrigin {
				allowOrigin = "*"
				if origin != "" {
					allowOrigin = origin
				}
			}
			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			}
			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == origin {
			return true
		}
	}
	return false
}

// noCache implements §4.3.2: response headers that prevent any
// intermediary from caching routed responses.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
		w.Header().Set("Expires", "-1")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// timestamp implements §4.3.3: stamps every response with the time it
// was produced, in RFC 3339.
func timestamp(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Timestamp", time.Now().Format(time.RFC3339))
		next.ServeHTTP(w, r)
	})
}
