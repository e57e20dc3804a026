package wire

import (
	"context"

	"additive-prompt-api/internal/application/promptgen"
	"additive-prompt-api/internal/application/promptgen/catalog"
	"additive-prompt-api/internal/config"
	"additive-prompt-api/internal/infrastructure/llm"
	"additive-prompt-api/internal/infrastructure/persistence/redis"
	"additive-prompt-api/internal/interfaces/http/handler"
	"additive-prompt-api/internal/interfaces/http/middleware"
	workflowport "additive-prompt-api/internal/workflow/port"
	workflowprompt "additive-prompt-api/internal/workflow/prompt"
	"additive-prompt-api/pkg/logger"
)

const rateLimitKeyPrefix = "ratelimit:generate:"

// ProvideRedisClient 提供 Redis 客户端；未启用时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		logger.Info(ctx, "redis disabled, rate limiting off")
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(ctx, &cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Error(context.Background(), "failed to close redis client", err)
		}
	}, nil
}

// ProvideRateLimiter 提供限流器；Redis 未启用时返回 nil 接口
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client, rateLimitKeyPrefix)
}

// ProvideHealthChecker 提供就绪检查依赖；Redis 未启用时返回 nil 接口
func ProvideHealthChecker(client *redis.Client) handler.HealthChecker {
	if client == nil {
		return nil
	}
	return client
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, checker handler.HealthChecker) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, checker)
}

// ProvideTemplateSource 提供内置模板注册表
func ProvideTemplateSource() workflowprompt.TemplateSource {
	return workflowprompt.NewRegistry()
}

// ProvideChatModelFactory 提供 LLM ChatModel 工厂
func ProvideChatModelFactory(cfg *config.Config) workflowport.ChatModelFactory {
	return llm.NewEinoFactory(cfg)
}

// ProvideGenerator 提供生成服务，构建时校验所有变体的链定义
func ProvideGenerator(cfg *config.Config, cat *catalog.Catalog, templates workflowprompt.TemplateSource, factory workflowport.ChatModelFactory) (*promptgen.Generator, error) {
	return promptgen.NewGenerator(cat, templates, factory, cfg.LLM.DefaultProvider)
}
