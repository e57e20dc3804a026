package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"additive-prompt-api/pkg/logger"
)

// AccessLog 访问日志中间件
// 只记录请求元数据，不记录请求头与请求体（其中可能带有 LLM 凭据）
func AccessLog(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		attrs := []any{
			"method", c.Request.Method,
			"route", routeLabel(c),
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"body_size", c.Writer.Size(),
		}
		if c.Writer.Status() >= 500 {
			logger.Warn(ctx, "api request", attrs...)
			return
		}
		logger.Info(ctx, "api request", attrs...)
	}
}
