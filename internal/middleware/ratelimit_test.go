package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(cfg RateLimitConfig) (*gin.Engine, *RateLimiter) {
	limiter := NewRateLimiter(cfg)
	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router, limiter
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 3, CleanupInterval: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("client") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("client") {
		t.Error("request beyond burst should be denied")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 1, CleanupInterval: time.Minute})
	defer limiter.Stop()

	if !limiter.Allow("a") {
		t.Fatal("first request for a should pass")
	}
	if limiter.Allow("a") {
		t.Error("second request for a should be denied")
	}
	if !limiter.Allow("b") {
		t.Error("b should not share a's bucket")
	}
}

func TestRateLimiter_TokensRefill(t *testing.T) {
	// 600 rpm = 10 tokens/second, so a denied client recovers quickly.
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 600, BurstSize: 1, CleanupInterval: time.Minute})
	defer limiter.Stop()

	if !limiter.Allow("client") {
		t.Fatal("first request should pass")
	}
	if limiter.Allow("client") {
		t.Fatal("burst exhausted, should be denied")
	}

	time.Sleep(150 * time.Millisecond)
	if !limiter.Allow("client") {
		t.Error("expected token to refill")
	}
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	router, limiter := newLimitedRouter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 1, CleanupInterval: time.Minute})
	defer limiter.Stop()

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimitMiddleware_SetsHeaders(t *testing.T) {
	router, limiter := newLimitedRouter(RateLimitConfig{RequestsPerMinute: 200, BurstSize: 50, CleanupInterval: time.Minute})
	defer limiter.Stop()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Header().Get("X-RateLimit-Limit") != "200" {
		t.Errorf("X-RateLimit-Limit = %q, want 200", w.Header().Get("X-RateLimit-Limit"))
	}
	if w.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("expected X-RateLimit-Remaining header")
	}
}
