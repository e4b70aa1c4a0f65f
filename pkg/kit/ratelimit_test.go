package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatalf("first two hits must pass")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("third hit inside window must be limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatalf("other clients are independent")
	}

	now = now.Add(time.Minute + time.Second)
	if !l.Allow("10.0.0.1") {
		t.Fatalf("hit after window must pass")
	}

	now = now.Add(2 * time.Minute)
	l.Sweep()
	if len(l.hits) != 0 {
		t.Fatalf("sweep left %d keys", len(l.hits))
	}
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/cart/1", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(); code != http.StatusNoContent {
		t.Fatalf("status=%d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", code)
	}
}

func TestIPRateLimiter_Disabled(t *testing.T) {
	l := NewIPRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !l.Allow("x") {
			t.Fatalf("limit 0 must never limit")
		}
	}
}
