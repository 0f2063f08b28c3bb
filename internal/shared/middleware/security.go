package middleware

import (
	"net"
	"net/http"
	"strings"
)

const hstsValue = "max-age=31536000; includeSubDomains"

var baselineHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "no-referrer",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

// SecurityHeaders sets the baseline browser hardening headers on every
// response. The API only serves JSON, so nothing may be framed or loaded.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range baselineHeaders {
			h.Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// HSTS tells browsers to use HTTPS for a year, subdomains included.
func HSTS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", hstsValue)
		next.ServeHTTP(w, r)
	})
}

// SecureCookies forces Secure, HttpOnly and SameSite=Strict on every cookie
// the handler sets, unless the handler chose a SameSite mode itself.
func SecureCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&cookieGuard{ResponseWriter: w}, r)
	})
}

type cookieGuard struct {
	http.ResponseWriter
	done bool
}

func (g *cookieGuard) WriteHeader(status int) {
	if !g.done {
		g.done = true
		h := g.ResponseWriter.Header()
		if raw := h.Values("Set-Cookie"); len(raw) > 0 {
			secured := make([]string, len(raw))
			for i, line := range raw {
				secured[i] = hardenCookie(line)
			}
			h["Set-Cookie"] = secured
		}
	}
	g.ResponseWriter.WriteHeader(status)
}

func (g *cookieGuard) Write(b []byte) (int, error) {
	if !g.done {
		g.WriteHeader(http.StatusOK)
	}
	return g.ResponseWriter.Write(b)
}

// hardenCookie rewrites one Set-Cookie line. Lines that do not parse are
// passed through untouched.
func hardenCookie(line string) string {
	c, err := http.ParseSetCookie(line)
	if err != nil {
		return line
	}
	c.Secure = true
	c.HttpOnly = true
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteStrictMode
	}
	if out := c.String(); out != "" {
		return out
	}
	return line
}

// RequireHTTPS redirects plain HTTP requests to HTTPS. Only use it when the
// process terminates TLS itself. The redirect target is built from the Host
// header, so hosts outside allowedHosts get 400 instead of a redirect.
func RequireHTTPS(allowedHosts []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			isHTTPS := r.TLS != nil ||
				r.Header.Get("X-Forwarded-Proto") == "https" ||
				r.URL.Scheme == "https"

			if !isHTTPS {
				if !IsHostAllowed(r.Host, allowedHosts) {
					writeError(w, http.StatusBadRequest, "Invalid host")
					return
				}
				http.Redirect(w, r, "https://"+r.Host+r.URL.RequestURI(), http.StatusMovedPermanently)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IsHostAllowed validates a host against the allowed hosts list.
// Returns true if no allowed hosts are configured.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	host = strings.ToLower(strings.TrimSpace(host))
	hostname := stripPort(host)

	for _, allowedHost := range allowedHosts {
		allowedHost = strings.ToLower(strings.TrimSpace(allowedHost))
		if allowedHost == "" {
			continue
		}
		if host == allowedHost || hostname == stripPort(allowedHost) {
			return true
		}
	}

	return false
}

// stripPort drops an optional port and IPv6 brackets.
func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}
