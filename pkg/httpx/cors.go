package httpx

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig mirrors the browser-facing policy: an allow-list of origins,
// credentialed requests permitted, and only the headers this API uses.
type CORSConfig struct {
	// AllowedOrigins is the exact-match origin allow-list. Empty means no
	// cross-origin access is granted.
	AllowedOrigins []string
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig permits the usual local frontend origins.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		MaxAge:         3600,
	}
}

const (
	corsAllowedMethods = "GET, POST, PATCH, DELETE"
	corsAllowedHeaders = "Content-Type, Authorization, X-CSRF-Token"
	corsExposedHeaders = "Content-Length, X-Request-ID, X-CSRF-Token"
)

// CORSMiddleware answers preflight requests and stamps the CORS response
// headers for allowed origins. Requests from origins outside the allow-list
// pass through without CORS headers, so the browser blocks them.
func CORSMiddleware(cfg CORSConfig) Middleware {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := allowed[origin]; ok {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Set("Access-Control-Expose-Headers", corsExposedHeaders)
					h.Add("Vary", "Origin")

					if r.Method == http.MethodOptions {
						h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
						h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
						h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
						w.WriteHeader(http.StatusNoContent)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
