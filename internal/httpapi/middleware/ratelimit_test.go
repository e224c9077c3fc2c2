package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_AllowsThenBlocks(t *testing.T) {
	mock := clock.NewMock()
	h := RateLimitWithClock(60, 2, mock)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:1234"

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: want 200 got %d", i, rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429 got %d", rr.Code)
	}

	mock.Add(1100 * time.Millisecond)
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusOK {
		t.Fatalf("want 200 after refill got %d", rr2.Code)
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	h := RateLimitWithClock(60, 1, clock.NewMock())(okHandler())

	a := httptest.NewRequest(http.MethodGet, "/", nil)
	a.RemoteAddr = "10.0.0.1:1"
	b := httptest.NewRequest(http.MethodGet, "/", nil)
	b.Header.Set("X-Forwarded-For", "10.0.0.2, 172.16.0.1")

	for _, req := range []*http.Request{a, b} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("first request from %s: want 200 got %d", clientIP(req), rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, a)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request from a: want 429 got %d", rr.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(0, 0)(okHandler())
	for i := 0; i < 100; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("disabled limiter blocked request %d", i)
		}
	}
}

func TestLimiter_SweepsIdleBuckets(t *testing.T) {
	mock := clock.NewMock()
	l := newLimiter(1, 1, time.Minute, mock)
	l.allow("a")
	mock.Add(2 * time.Minute)
	l.allow("b")

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets["a"]; ok {
		t.Fatal("idle bucket was not swept")
	}
	if _, ok := l.buckets["b"]; !ok {
		t.Fatal("active bucket missing")
	}
}
