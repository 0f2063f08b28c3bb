package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func statusHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func hit(h http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func fixedClock(rl *RateLimiter) *time.Time {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return &now
}

func TestRateLimiter_Register(t *testing.T) {
	rl := NewRateLimiter(nil)
	fixedClock(rl)
	h := rl.Limit(RegisterPolicy)(statusHandler(http.StatusCreated))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, hit(h, "/api/auth/register", "10.0.0.1").Code)
	}

	rr := hit(h, "/api/auth/register", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "Too many registration attempts, please try again later", errorBody(t, rr))
	assert.Equal(t, "1200", rr.Header().Get("Retry-After"))

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusCreated, hit(h, "/api/auth/register", "10.0.0.2").Code)
}

func TestRateLimiter_LoginSkipsSuccessful(t *testing.T) {
	rl := NewRateLimiter(nil)
	fixedClock(rl)

	ok := rl.Limit(LoginPolicy)(statusHandler(http.StatusOK))
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, hit(ok, "/api/auth/login", "10.0.0.1").Code)
	}

	bad := rl.Limit(LoginPolicy)(statusHandler(http.StatusUnauthorized))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, hit(bad, "/api/auth/login", "10.0.0.1").Code)
	}

	rr := hit(ok, "/api/auth/login", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "Too many login attempts, please try again later", errorBody(t, rr))
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(nil)
	now := fixedClock(rl)
	h := rl.Limit(RegisterPolicy)(statusHandler(http.StatusCreated))

	for i := 0; i < 3; i++ {
		hit(h, "/api/auth/register", "10.0.0.1")
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/auth/register", "10.0.0.1").Code)

	*now = now.Add(21 * time.Minute)
	assert.Equal(t, http.StatusCreated, hit(h, "/api/auth/register", "10.0.0.1").Code)
}

func TestRateLimiter_Exempt(t *testing.T) {
	rl := NewRateLimiter(nil)
	fixedClock(rl)
	policy := RatePolicy{Name: "tiny", Burst: 1, Window: time.Hour, Message: "slow down"}
	h := rl.Limit(policy, "/api/health")(statusHandler(http.StatusOK))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/api/health", "10.0.0.1").Code)
	}
	assert.Equal(t, http.StatusOK, hit(h, "/api/accounts", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/accounts", "10.0.0.1").Code)
}

func TestRateLimiter_SweepsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(nil)
	now := fixedClock(rl)
	h := rl.Limit(APIPolicy)(statusHandler(http.StatusOK))

	hit(h, "/api/accounts", "10.0.0.1")
	*now = now.Add(3 * time.Hour)
	hit(h, "/api/accounts", "10.0.0.2")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.entries, 1)
	assert.Contains(t, rl.entries, "api|10.0.0.2")
}

func TestRateLimiter_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	rl := NewRateLimiter(nil)
	fixedClock(rl)
	h := rl.Limit(LoginPolicy)(statusHandler(http.StatusUnauthorized))

	limited := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 45, limited)
}

func TestRateLimiter_LoginConcurrentFailuresStayWithinBurst(t *testing.T) {
	rl := NewRateLimiter(nil)
	fixedClock(rl)

	release := make(chan struct{})
	h := rl.Limit(LoginPolicy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	}))

	const attempts = 10
	codes := make(chan int, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			codes <- hit(h, "/api/auth/login", "10.0.0.1").Code
		}()
	}

	// Handlers are blocked, so only rejected requests can finish first.
	for i := 0; i < attempts-LoginPolicy.Burst; i++ {
		assert.Equal(t, http.StatusTooManyRequests, <-codes)
	}
	close(release)
	for i := 0; i < LoginPolicy.Burst; i++ {
		assert.Equal(t, http.StatusUnauthorized, <-codes)
	}
}

func TestClientIP(t *testing.T) {
	proxies := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.10/32"),
	}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		remote  string
		xff     []string
		want    string
	}{
		{"socket address by default", nil, "192.0.2.1:1234", nil, "192.0.2.1"},
		{"forwarded for ignored without trusted proxies", nil, "192.0.2.1:1234", []string{"203.0.113.7"}, "192.0.2.1"},
		{"forwarded for ignored from untrusted peer", proxies, "198.51.100.9:1234", []string{"203.0.113.7"}, "198.51.100.9"},
		{"trusted peer uses last hop", proxies, "10.1.2.3:1234", []string{"203.0.113.7"}, "203.0.113.7"},
		{"spoofed left entries skipped", proxies, "10.1.2.3:1234", []string{"1.1.1.1, 203.0.113.7"}, "203.0.113.7"},
		{"chained trusted proxies skipped", proxies, "10.1.2.3:1234", []string{"203.0.113.7, 192.0.2.10", "10.9.9.9"}, "203.0.113.7"},
		{"all hops trusted falls back to peer", proxies, "10.1.2.3:1234", []string{"10.0.0.5"}, "10.1.2.3"},
		{"garbage hop stops the walk", proxies, "10.1.2.3:1234", []string{"203.0.113.7, not-an-ip, 10.0.0.5"}, "10.1.2.3"},
		{"ipv6 peer", nil, "[2001:db8::1]:443", nil, "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, NewRateLimiter(tt.trusted).clientIP(req))
		})
	}
}
