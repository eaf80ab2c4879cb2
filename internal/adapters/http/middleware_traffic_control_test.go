package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	cfg := testConfig()
	cfg.APIRateLimitRPS = 1
	cfg.APIRateLimitBurst = 1
	ts := newTestServer(t, cfg)

	res1 := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/analytics/trends", nil))
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/analytics/trends", nil))
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
	if code := errorCode(t, res2); code != "RATE_LIMITED" {
		t.Fatalf("expected RATE_LIMITED, got %q", code)
	}
}

func TestRateLimitDoesNotApplyToHealthz(t *testing.T) {
	cfg := testConfig()
	cfg.APIRateLimitRPS = 1
	cfg.APIRateLimitBurst = 1
	ts := newTestServer(t, cfg)

	for i := 0; i < 3; i++ {
		res := httptest.NewRecorder()
		ts.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i, res.Code)
		}
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)
	var rejected atomic.Int32

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond, func() { rejected.Add(1) })

	go func() {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
		done <- res.Code
	}()

	<-started

	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}
	if code := errorCode(t, res2); code != "OVERLOADED" {
		t.Fatalf("expected OVERLOADED, got %q", code)
	}
	if rejected.Load() != 1 {
		t.Fatalf("expected one rejection callback, got %d", rejected.Load())
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}

func TestClientLimitersDropIdleBuckets(t *testing.T) {
	limiters := newClientLimiters(1, 1)
	now := time.Now()

	if !limiters.allow("10.0.0.1", now) {
		t.Fatalf("first request must be allowed")
	}
	if limiters.allow("10.0.0.1", now) {
		t.Fatalf("second immediate request must be limited")
	}

	later := now.Add(limiters.idleTTL + time.Minute)
	if !limiters.allow("10.0.0.2", later) {
		t.Fatalf("new client must be allowed")
	}
	if _, ok := limiters.limiters["10.0.0.1"]; ok {
		t.Fatalf("idle limiter should have been collected")
	}
}
