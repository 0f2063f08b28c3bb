package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHostAllowed(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		allowed []string
		want    bool
	}{
		{"no list allows everything", "api.truebalance.dev", nil, true},
		{"exact host and port", "api.truebalance.dev:8443", []string{"api.truebalance.dev:8443"}, true},
		{"bare host against entry with port", "api.truebalance.dev", []string{"api.truebalance.dev:8443"}, true},
		{"host with port against bare entry", "localhost:3000", []string{"localhost"}, true},
		{"case and whitespace ignored", "API.TrueBalance.dev", []string{"  api.truebalance.dev "}, true},
		{"ipv6 with port", "[::1]:8080", []string{"[::1]:8080"}, true},
		{"ipv6 bare against entry with port", "::1", []string{"[::1]:8080"}, true},
		{"ipv6 with port against bracketed entry", "[::1]:8080", []string{"[::1]"}, true},
		{"different host", "evil.example", []string{"api.truebalance.dev"}, false},
		{"suffix is not a match", "api.truebalance.dev.evil.example", []string{"api.truebalance.dev"}, false},
		{"empty entries skipped", "evil.example", []string{"", " "}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHostAllowed(tt.host, tt.allowed))
		})
	}
}

func TestRequireHTTPS(t *testing.T) {
	handler := RequireHTTPS([]string{"api.truebalance.dev"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("redirects allowed host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://api.truebalance.dev/api/health?x=1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
		assert.Equal(t, "https://api.truebalance.dev/api/health?x=1", rec.Header().Get("Location"))
	})

	t.Run("rejects unknown host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://evil.example/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid host"}`, rec.Body.String())
	})

	t.Run("passes forwarded https", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://api.truebalance.dev/", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

func TestHSTS(t *testing.T) {
	rec := httptest.NewRecorder()
	HSTS(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestSecureCookies(t *testing.T) {
	handler := SecureCookies(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "abc", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "pref", Value: "dark", SameSite: http.SameSiteLaxMode})
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	if assert.Len(t, cookies, 2) {
		for _, c := range cookies {
			assert.True(t, c.Secure, c.Name)
			assert.True(t, c.HttpOnly, c.Name)
		}
		assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
		assert.Equal(t, http.SameSiteLaxMode, cookies[1].SameSite)
	}
	assert.Equal(t, "ok", rec.Body.String())
}
