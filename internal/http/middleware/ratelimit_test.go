package middleware

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c.Request = req

	if key := KeyByUserOrIP()(c); key != "ip:203.0.113.9" {
		t.Fatalf("anonymous key = %q", key)
	}
	c.Set(userIDKey, AnonymousUser)
	if key := KeyByUserOrIP()(c); key != "ip:203.0.113.9" {
		t.Fatalf("explicit anonymous key = %q", key)
	}
	c.Set(userIDKey, "u123")
	if key := KeyByUserOrIP()(c); key != "user:u123" {
		t.Fatalf("user key = %q", key)
	}
}

func TestRateLimiter_ReuseAndSweep(t *testing.T) {
	rl := NewRateLimiter(2, 0, nil)
	if rl.burst != 1 || rl.keyFn == nil {
		t.Fatalf("defaults not applied: burst=%d", rl.burst)
	}
	now := time.Now()
	lim := rl.limiter("k1", now)
	if rl.limiter("k1", now) != lim {
		t.Fatalf("expected bucket reuse")
	}

	rl.mu.Lock()
	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: now.Add(-time.Hour)}
	rl.lookups = sweepEvery - 1
	rl.mu.Unlock()

	_ = rl.limiter("k1", now)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["old"]; ok {
		t.Fatalf("idle bucket should be swept")
	}
	if _, ok := rl.visitors["k1"]; !ok || rl.lookups != 0 {
		t.Fatalf("active bucket lost or counter not reset")
	}
}

func TestRateLimiter_Handler429AndReplayBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.0001, 1, KeyByUserOrIP())
	replayed := func(context.Context, string, string, time.Time) (bool, error) { return true, nil }

	r := gin.New()
	r.Use(UserID(), Idempotency(IdempotencyOptions{}, replayed), rl.Handler())
	r.POST("/gen", func(c *gin.Context) { c.Status(http.StatusCreated) })

	base := testutil.ToFloat64(rateLimited.WithLabelValues("/gen"))
	send := func(key string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/gen", nil)
		req.Header.Set(userIDHeader, "u1")
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		r.ServeHTTP(w, req)
		return w
	}

	if w := send(""); w.Code != http.StatusCreated {
		t.Fatalf("first request = %d", w.Code)
	}
	w := send("")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("second request = %d", w.Code)
	}
	if got := testutil.ToFloat64(rateLimited.WithLabelValues("/gen")); got != base+1 {
		t.Fatalf("rate_limited counter = %v; want %v", got, base+1)
	}
	if w := send("replay-me"); w.Code != http.StatusCreated {
		t.Fatalf("replays must bypass the limiter, got %d", w.Code)
	}
}
