package handler

import (
	"fmt"
	"strings"

	"additive-prompt-api/internal/config"
)

// resolveProvider 校验请求指定的 LLM Provider
// 为空时返回空串，由生成服务使用默认提供商
func resolveProvider(cfg *config.Config, provider string) (string, error) {
	p := strings.TrimSpace(provider)
	if p == "" {
		return "", nil
	}
	if cfg == nil {
		return "", fmt.Errorf("server config not configured")
	}
	if _, ok := cfg.LLM.Providers[p]; !ok {
		return "", fmt.Errorf("llm provider not found: %s", p)
	}
	return p, nil
}
