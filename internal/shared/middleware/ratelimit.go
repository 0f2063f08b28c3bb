package middleware

import (
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RatePolicy describes one client-keyed limit: Burst requests per Window,
// refilled evenly.
type RatePolicy struct {
	Name    string
	Burst   int
	Window  time.Duration
	Message string
	// SkipSuccessful hands the token back when the response status is
	// below 400, so a user who logs in correctly is never locked out.
	SkipSuccessful bool
}

var (
	LoginPolicy = RatePolicy{
		Name:           "login",
		Burst:          5,
		Window:         15 * time.Minute,
		Message:        "Too many login attempts, please try again later",
		SkipSuccessful: true,
	}
	RegisterPolicy = RatePolicy{
		Name:    "register",
		Burst:   3,
		Window:  time.Hour,
		Message: "Too many registration attempts, please try again later",
	}
	APIPolicy = RatePolicy{
		Name:    "api",
		Burst:   100,
		Window:  15 * time.Minute,
		Message: "Too many API requests, please try again later",
	}
)

func (p RatePolicy) limit() rate.Limit {
	return rate.Every(p.Window / time.Duration(p.Burst))
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per policy and client IP.
type RateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	idleAfter time.Duration
	lastSweep time.Time
	now       func() time.Time
	trusted   []netip.Prefix
}

// NewRateLimiter keys clients by socket address. X-Forwarded-For is only
// read when the socket peer is inside trustedProxies.
func NewRateLimiter(trustedProxies []netip.Prefix) *RateLimiter {
	return &RateLimiter{
		entries:   make(map[string]*limiterEntry),
		idleAfter: 2 * time.Hour,
		now:       time.Now,
		trusted:   trustedProxies,
	}
}

func (rl *RateLimiter) get(p RatePolicy, client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.idleAfter {
		for k, e := range rl.entries {
			if now.Sub(e.lastSeen) > rl.idleAfter {
				delete(rl.entries, k)
			}
		}
		rl.lastSweep = now
	}

	key := p.Name + "|" + client
	e, ok := rl.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(p.limit(), p.Burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Limit enforces p per client IP. Paths listed in exempt pass through.
func (rl *RateLimiter) Limit(p RatePolicy, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range exempt {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			lim := rl.get(p, rl.clientIP(r))
			now := rl.now()

			if p.SkipSuccessful {
				// The token is held while the handler runs.
				res := lim.ReserveN(now, 1)
				if !res.OK() || res.DelayFrom(now) > 0 {
					res.CancelAt(now)
					rl.reject(w, p, lim, now)
					return
				}
				wrapped := wrapResponseWriter(w)
				next.ServeHTTP(wrapped, r)
				if wrapped.Status() < http.StatusBadRequest {
					// Cancelling at a time after the reservation acted is a
					// no-op, so cancel at the instant it was made.
					res.CancelAt(now)
				}
				return
			}

			if !lim.AllowN(now, 1) {
				rl.reject(w, p, lim, now)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) reject(w http.ResponseWriter, p RatePolicy, lim *rate.Limiter, now time.Time) {
	missing := 1 - lim.TokensAt(now)
	wait := time.Duration(missing * float64(p.Window) / float64(p.Burst))
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	writeError(w, http.StatusTooManyRequests, p.Message)
}

// clientIP returns the socket peer address. When the peer is a trusted
// proxy, X-Forwarded-For is walked from the right and the first hop that is
// not itself a trusted proxy is the client.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !rl.isTrusted(addr) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// Anything left of an unparsable hop is client-controlled.
			break
		}
		if !rl.isTrusted(hop) {
			return hop.Unmap().String()
		}
	}
	return peer
}

func (rl *RateLimiter) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
