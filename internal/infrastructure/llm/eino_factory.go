package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"additive-prompt-api/internal/config"
	workflowport "additive-prompt-api/internal/workflow/port"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ErrNoCredential 请求与服务端均未提供凭据
var ErrNoCredential = errors.New("no llm credential available")

// EinoFactory 管理 Eino ChatModel 客户端实例
// 服务端凭据构建的客户端按提供商缓存；请求凭据构建的客户端仅用于单次运行，不缓存
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

var _ workflowport.ChatModelFactory = (*EinoFactory)(nil)

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// HasServerCredential 报告提供商是否配置了服务端凭据
func (f *EinoFactory) HasServerCredential(provider string) bool {
	_, pc, ok := f.config.Provider(strings.TrimSpace(provider))
	return ok && strings.TrimSpace(pc.APIKey) != ""
}

// Get 获取 ChatModel；Provider 为空时使用默认提供商
func (f *EinoFactory) Get(ctx context.Context, req workflowport.ModelRequest) (model.BaseChatModel, error) {
	name, providerCfg, ok := f.config.Provider(strings.TrimSpace(req.Provider))
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	if key := strings.TrimSpace(req.APIKey); key != "" {
		return newChatModel(ctx, name, providerCfg, key)
	}
	if strings.TrimSpace(providerCfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: provider %s", ErrNoCredential, name)
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	chatModel, err := newChatModel(ctx, name, providerCfg, providerCfg.APIKey)
	if err != nil {
		return nil, err
	}
	f.models[name] = chatModel
	return chatModel, nil
}

// newChatModel 使用 Eino 的 OpenAI 适配器；温度与最大 token 由各阶段以调用选项传入
func newChatModel(ctx context.Context, name string, pc config.ProviderConfig, apiKey string) (model.BaseChatModel, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: pc.BaseURL,
		Model:   pc.Model,
		Timeout: pc.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}
	return chatModel, nil
}
