package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"additive-prompt-api/internal/config"
	"additive-prompt-api/internal/infrastructure/persistence/redis"
	"additive-prompt-api/internal/interfaces/http/dto"
	apperrors "additive-prompt-api/pkg/errors"
	"additive-prompt-api/pkg/logger"
	"additive-prompt-api/pkg/metrics"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (redis.Decision, error)
}

// RateLimit 按客户端 IP 与路由限流
// 限流器故障时放行，生成接口不因 Redis 不可用而失效
func RateLimit(cfg config.RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = 30
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		route := routeLabel(c)
		key := c.ClientIP() + ":" + route

		d, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable, allowing request", "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))

		if !d.Allowed {
			metrics.RateLimitRejected.WithLabelValues(route).Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			dto.AbortWithAppError(c, apperrors.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
