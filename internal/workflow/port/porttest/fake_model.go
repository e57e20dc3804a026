// Package porttest 提供 ChatModelFactory 的测试替身
package porttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	workflowport "additive-prompt-api/internal/workflow/port"
)

// Reply 一次脚本化响应；Err 非空时返回错误
type Reply struct {
	Content string
	Err     error
}

// Call 记录一次 Generate 调用
type Call struct {
	Prompt  string
	Options *model.Options
}

// ScriptedModel 按顺序返回预设响应的 ChatModel
type ScriptedModel struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

func NewScriptedModel(replies ...Reply) *ScriptedModel {
	return &ScriptedModel{replies: replies}
}

func (m *ScriptedModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prompt string
	if len(input) > 0 && input[len(input)-1] != nil {
		prompt = input[len(input)-1].Content
	}
	m.calls = append(m.calls, Call{Prompt: prompt, Options: model.GetCommonOptions(nil, opts...)})

	idx := len(m.calls) - 1
	if idx >= len(m.replies) {
		return nil, fmt.Errorf("unexpected call #%d", idx+1)
	}
	r := m.replies[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return &schema.Message{
		Role:    schema.Assistant,
		Content: r.Content,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}, nil
}

func (m *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Calls 返回已记录的调用
func (m *ScriptedModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Factory 总是返回同一个模型，并记录请求
type Factory struct {
	Model     model.BaseChatModel
	ServerKey bool
	GetErr    error

	mu       sync.Mutex
	requests []workflowport.ModelRequest
}

var _ workflowport.ChatModelFactory = (*Factory)(nil)

func (f *Factory) Get(_ context.Context, req workflowport.ModelRequest) (model.BaseChatModel, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.Model, nil
}

func (f *Factory) HasServerCredential(string) bool { return f.ServerKey }

// Requests 返回 Get 收到的请求
func (f *Factory) Requests() []workflowport.ModelRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]workflowport.ModelRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// FuncModel 根据 prompt 计算响应，无共享状态，可并发使用
type FuncModel func(prompt string) (string, error)

func (f FuncModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	var prompt string
	for _, m := range input {
		if m != nil {
			prompt += m.Content
		}
	}
	content, err := f(prompt)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

func (f FuncModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
