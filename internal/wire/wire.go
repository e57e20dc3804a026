//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"additive-prompt-api/internal/application/promptgen"
	"additive-prompt-api/internal/application/promptgen/catalog"
	"additive-prompt-api/internal/config"
	"additive-prompt-api/internal/interfaces/http/handler"
	"additive-prompt-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 HTTP 应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RedisSet,
		GeneratorSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeGenerator 只初始化生成链路（CLI 使用，不连接 Redis）
func InitializeGenerator(cfg *config.Config) (*promptgen.Generator, error) {
	wire.Build(GeneratorSet)
	return nil, nil
}

// RedisSet Redis 提供者集合（仅限流与就绪检查）
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideRateLimiter,
	ProvideHealthChecker,
)

// GeneratorSet 变体目录、模板与模型工厂
var GeneratorSet = wire.NewSet(
	catalog.Load,
	ProvideTemplateSource,
	ProvideChatModelFactory,
	ProvideGenerator,
)

// RouterSet 处理器与路由
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewPromptHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
