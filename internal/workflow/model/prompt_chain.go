package model

import (
	"fmt"
	"log/slog"
	"strings"

	workflowprompt "additive-prompt-api/internal/workflow/prompt"
)

// SourceKind 占位符取值来源
type SourceKind string

const (
	// SourceInput 调用方提供的变量
	SourceInput SourceKind = "input"
	// SourceStage 前序阶段的输出
	SourceStage SourceKind = "stage"
)

// Source 路由表中的一个取值来源，文本形式为 "input.<name>" 或 "stage.<output>"
type Source struct {
	Kind SourceKind
	Key  string
}

func (s Source) String() string {
	return string(s.Kind) + "." + s.Key
}

// ParseSource 解析 "input.style" / "stage.table"
func ParseSource(s string) (Source, error) {
	kind, key, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || strings.TrimSpace(key) == "" {
		return Source{}, fmt.Errorf("invalid binding source %q: want input.<name> or stage.<output>", s)
	}
	switch SourceKind(kind) {
	case SourceInput, SourceStage:
		return Source{Kind: SourceKind(kind), Key: strings.TrimSpace(key)}, nil
	default:
		return Source{}, fmt.Errorf("invalid binding source kind %q in %q", kind, s)
	}
}

// Binding 模板占位符 -> 取值来源
type Binding struct {
	Placeholder string
	From        Source
}

// StageSettings 单阶段采样参数；nil 表示沿用模型默认值
type StageSettings struct {
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Model       string   `json:"model,omitempty"`
}

// Merge 用 override 中已设置的字段覆盖当前值
func (s StageSettings) Merge(override StageSettings) StageSettings {
	if override.Temperature != nil {
		s.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		s.MaxTokens = override.MaxTokens
	}
	if strings.TrimSpace(override.Model) != "" {
		s.Model = strings.TrimSpace(override.Model)
	}
	return s
}

// StageDefinition 链中的一个 Prompt 阶段
type StageDefinition struct {
	Name     string
	Prompt   workflowprompt.PromptID
	Output   string
	Settings StageSettings
	Bindings []Binding
}

// ChainDefinition 静态声明的顺序 Prompt 链
type ChainDefinition struct {
	Name   string
	Stages []StageDefinition
}

// InputNames 返回链需要的全部 input.* 变量名（按首次出现顺序）
func (d *ChainDefinition) InputNames() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, st := range d.Stages {
		for _, b := range st.Bindings {
			if b.From.Kind != SourceInput {
				continue
			}
			if _, ok := seen[b.From.Key]; ok {
				continue
			}
			seen[b.From.Key] = struct{}{}
			out = append(out, b.From.Key)
		}
	}
	return out
}

// ChainInput 单次运行的输入；凭据只在本次运行内使用，序列化、格式化与日志都不输出
type ChainInput struct {
	Variables map[string]string `json:"variables"`

	Provider string `json:"provider"`
	APIKey   string `json:"-"`

	// Overrides 作用于所有阶段
	Overrides StageSettings `json:"overrides"`
}

func (in *ChainInput) String() string {
	if in == nil {
		return "<nil>"
	}
	return fmt.Sprintf("ChainInput{provider=%s variables=%d credential=%t}", in.Provider, len(in.Variables), in.APIKey != "")
}

// LogValue 实现 slog.LogValuer
func (in *ChainInput) LogValue() slog.Value {
	if in == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("provider", in.Provider),
		slog.Int("variables", len(in.Variables)),
		slog.Bool("credential", in.APIKey != ""),
	)
}

// StageTrace 单阶段运行记录
type StageTrace struct {
	Stage     string            `json:"stage"`
	Output    string            `json:"output_key"`
	Variables map[string]string `json:"variables"`
	Prompt    string            `json:"prompt"`
	Text      string            `json:"text"`
	Usage     LLMUsageMeta      `json:"usage"`
}

// ChainResult 一次完整运行的结果；只有全部阶段成功才会产生
type ChainResult struct {
	Chain  string       `json:"chain"`
	Stages []StageTrace `json:"stages"`
	Final  string       `json:"final"`
}

// Output 按输出键查找阶段输出
func (r *ChainResult) Output(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for i := range r.Stages {
		if r.Stages[i].Output == key {
			return r.Stages[i].Text, true
		}
	}
	return "", false
}

// Usage 汇总所有阶段的 token 用量
func (r *ChainResult) Usage() LLMUsageMeta {
	var total LLMUsageMeta
	if r == nil {
		return total
	}
	for i := range r.Stages {
		total = total.Add(r.Stages[i].Usage)
	}
	return total
}
