package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"additive-prompt-api/pkg/metrics"
)

// Metrics Prometheus 指标采集中间件
// path 标签使用路由模板，避免变体 ID 之外的任意路径撑爆基数
func Metrics(skipPaths ...string) gin.HandlerFunc {
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

		method := c.Request.Method
		path := routeLabel(c)
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

// routeLabel 返回匹配到的路由模板，未匹配时为 unknown
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unknown"
}
