package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// CORS applies Cross-Origin Resource Sharing headers. With no allowed hosts
// every origin is accepted with "*"; otherwise only listed hosts are echoed
// back (with credentials) and other origins get 403.
func CORS(allowedHosts []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case len(allowedHosts) == 0:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin == "":
				// Same-origin or non-browser request.
			case isOriginAllowed(origin, allowedHosts):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			default:
				writeError(w, http.StatusForbidden, "Origin not allowed")
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isOriginAllowed(origin string, allowedHosts []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}

	host := strings.ToLower(u.Host)
	hostname := strings.ToLower(u.Hostname())

	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || (!strings.Contains(allowed, ":") && hostname == allowed) {
			return true
		}
	}
	return false
}
