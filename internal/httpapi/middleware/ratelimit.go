package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// limiter is a per-key token bucket. Buckets idle for longer than ttl are
// dropped on the next sweep.
type limiter struct {
	rate  float64
	burst float64
	ttl   time.Duration
	clock clock.Clock

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiter(rps float64, burst int, ttl time.Duration, clk clock.Clock) *limiter {
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		rate:      rps,
		burst:     float64(burst),
		ttl:       ttl,
		clock:     clk,
		buckets:   make(map[string]*bucket),
		lastSweep: clk.Now(),
	}
}

func (l *limiter) allow(key string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.ttl {
		for k, b := range l.buckets {
			if now.Sub(b.last) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}
	b.tokens = min(l.burst, b.tokens+now.Sub(b.last).Seconds()*l.rate)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RateLimit limits requests per client IP to reqPerMin with the given burst.
// reqPerMin <= 0 disables limiting.
func RateLimit(reqPerMin, burst int) func(http.Handler) http.Handler {
	return RateLimitWithClock(reqPerMin, burst, clock.New())
}

func RateLimitWithClock(reqPerMin, burst int, clk clock.Clock) func(http.Handler) http.Handler {
	if reqPerMin <= 0 {
		return passthrough
	}
	l := newLimiter(float64(reqPerMin)/60, burst, 10*time.Minute, clk)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r)) {
				deny(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
