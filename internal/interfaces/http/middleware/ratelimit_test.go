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

	"additive-prompt-api/internal/config"
	"additive-prompt-api/internal/infrastructure/persistence/redis"
)

type fakeLimiter struct {
	decision redis.Decision
	err      error
	keys     []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (redis.Decision, error) {
	f.keys = append(f.keys, key)
	d := f.decision
	d.Limit = limit
	return d, f.err
}

func serveLimited(cfg config.RateLimitConfig, limiter RateLimiter) (*httptest.ResponseRecorder, bool) {
	gin.SetMode(gin.TestMode)
	reached := false
	r := gin.New()
	r.POST("/v1/variants/:variant/generate", RateLimit(cfg, limiter), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/variants/film/generate", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, reached
}

func TestRateLimit_Allowed(t *testing.T) {
	l := &fakeLimiter{decision: redis.Decision{Allowed: true, Remaining: 4}}
	w, reached := serveLimited(config.RateLimitConfig{Enabled: true, Limit: 5, Window: time.Minute}, l)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	require.Len(t, l.keys, 1)
	assert.Equal(t, "203.0.113.7:/v1/variants/:variant/generate", l.keys[0])
}

func TestRateLimit_Rejected(t *testing.T) {
	l := &fakeLimiter{decision: redis.Decision{RetryAfter: 1500 * time.Millisecond}}
	w, reached := serveLimited(config.RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute}, l)

	assert.False(t, reached)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), `"error_code":"1006"`)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	l := &fakeLimiter{err: errors.New("redis: connection refused")}
	w, reached := serveLimited(config.RateLimitConfig{Enabled: true, Limit: 1, Window: time.Second}, l)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	l := &fakeLimiter{}
	_, reached := serveLimited(config.RateLimitConfig{Enabled: false}, l)
	assert.True(t, reached)
	assert.Empty(t, l.keys)

	_, reached = serveLimited(config.RateLimitConfig{Enabled: true}, nil)
	assert.True(t, reached)
}
