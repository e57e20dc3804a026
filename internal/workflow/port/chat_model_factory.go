package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ModelRequest 获取 ChatModel 的参数
// APIKey 非空时使用请求方凭据构建一次性客户端，否则使用服务端配置的凭据
type ModelRequest struct {
	Provider string
	APIKey   string
}

// ChatModelFactory 定义工作流层对 LLM ChatModel 的最小依赖（port）。
type ChatModelFactory interface {
	Get(ctx context.Context, req ModelRequest) (model.BaseChatModel, error)
	// HasServerCredential 报告提供商是否配置了服务端凭据
	HasServerCredential(provider string) bool
}
