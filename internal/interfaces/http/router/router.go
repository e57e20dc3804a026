// Package router 提供 HTTP 路由配置
package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"additive-prompt-api/internal/config"
	"additive-prompt-api/internal/interfaces/http/handler"
	"additive-prompt-api/internal/interfaces/http/middleware"
)

// 探针类路径不记录访问日志与追踪
var probePaths = []string{"/health", "/ready", "/live"}

// Handlers 路由依赖的处理器
type Handlers struct {
	Health *handler.HealthHandler
	Prompt *handler.PromptHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	limiter  middleware.RateLimiter
}

// New 创建路由器，limiter 为 nil 时生成接口不限流
func New(cfg *config.Config, handlers Handlers, limiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		limiter:  limiter,
	}
	r.setupMiddleware()
	r.setupRoutes()
	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS, r.credentialHeader()))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, probePaths...))
		r.engine.Use(middleware.TraceContext())
	}

	skip := probePaths
	if r.cfg.Observability.Metrics.Enabled {
		skip = append(append([]string(nil), probePaths...), r.metricsPath())
		r.engine.Use(middleware.Metrics(skip...))
	}
	r.engine.Use(middleware.AccessLog(skip...))
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.metricsPath(), gin.WrapH(promhttp.Handler()))
	}

	RegisterV1Routes(
		r.engine.Group("/v1"),
		r.handlers.Prompt,
		middleware.RateLimit(r.cfg.Security.RateLimit, r.limiter),
	)
}

func (r *Router) metricsPath() string {
	if p := strings.TrimSpace(r.cfg.Observability.Metrics.Path); p != "" {
		return p
	}
	return "/metrics"
}

func (r *Router) credentialHeader() string {
	if h := strings.TrimSpace(r.cfg.Generation.CredentialHeader); h != "" {
		return h
	}
	return handler.DefaultCredentialHeader
}
