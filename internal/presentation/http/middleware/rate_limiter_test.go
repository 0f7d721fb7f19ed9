package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nedlia/placement-api/internal/coordination/ratelimit"
)

type failingLimiter struct{}

func (failingLimiter) Check(ctx context.Context, principalKey string) (*ratelimit.Decision, error) {
	return nil, errors.New("store unreachable")
}

func newRateLimitRouter(limiter ratelimit.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/placements", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	return router
}

func get(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/placements", nil))
	return w
}

func TestRateLimitAllowsWithinQuota(t *testing.T) {
	limiter := ratelimit.NewMemoryFixedWindowLimiter(ratelimit.Config{Limit: 3, Window: time.Minute})
	router := newRateLimitRouter(limiter)

	for i := 0; i < 3; i++ {
		w := get(router)
		require.Equal(t, 200, w.Code)
	}

	w := get(router)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitSetsQuotaHeaders(t *testing.T) {
	limiter := ratelimit.NewMemoryFixedWindowLimiter(ratelimit.Config{Limit: 5, Window: time.Minute})
	router := newRateLimitRouter(limiter)

	w := get(router)

	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	router := newRateLimitRouter(failingLimiter{})

	w := get(router)

	assert.Equal(t, 200, w.Code)
}

func TestClientRateLimiterBoundsBursts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewClientRateLimiter(ClientRateLimiterConfig{
		RequestsPerSecond: 1,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	})

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
}
