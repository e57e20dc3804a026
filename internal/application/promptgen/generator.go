// Package promptgen 把变体属性选择转换为两阶段 Prompt 链的一次运行
package promptgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"additive-prompt-api/internal/application/promptgen/catalog"
	"additive-prompt-api/internal/workflow/chain"
	wfmodel "additive-prompt-api/internal/workflow/model"
	workflowport "additive-prompt-api/internal/workflow/port"
	workflowprompt "additive-prompt-api/internal/workflow/prompt"
	"additive-prompt-api/pkg/logger"
	"additive-prompt-api/pkg/metrics"
)

// ErrConfigurationMissing 没有可用凭据，链不会被调用
var ErrConfigurationMissing = errors.New("llm credential not configured")

// State 一次生成的结果状态
type State string

const (
	// StateGenerated 两个阶段均成功
	StateGenerated State = "generated"
	// StateNotConfigured 缺少凭据，返回操作指引而不是错误
	StateNotConfigured State = "not_configured"
)

// Request 一次生成请求
type Request struct {
	Variant    string
	Attributes map[string]string
	Rows       *int

	Provider string
	// APIKey 请求方凭据，为空时回退到服务端凭据
	APIKey string

	Overrides wfmodel.StageSettings
}

// Outcome 一次生成的结果；StateNotConfigured 时 Result 为空
type Outcome struct {
	RunID     string
	State     State
	Variant   string
	Provider  string
	Rows      int
	Selection Selection
	Guidance  []string
	Result    *wfmodel.ChainResult
}

// Lines 返回最终 Markdown 文本
func (o *Outcome) Lines() string {
	if o == nil || o.Result == nil {
		return ""
	}
	return o.Result.Final
}

// Table 返回第一阶段的表格文本
func (o *Outcome) Table() string {
	if o == nil || o.Result == nil {
		return ""
	}
	t, _ := o.Result.Output("table")
	return t
}

// Generator 按变体持有已编译的链
type Generator struct {
	catalog         *catalog.Catalog
	factory         workflowport.ChatModelFactory
	chains          map[string]*chain.PromptChain
	defaultProvider string
}

// NewGenerator 为目录中的每个变体校验并创建链
func NewGenerator(cat *catalog.Catalog, templates workflowprompt.TemplateSource, factory workflowport.ChatModelFactory, defaultProvider string) (*Generator, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}

	chains := make(map[string]*chain.PromptChain)
	for _, v := range cat.List() {
		c, err := chain.NewPromptChain(v.Chain(), templates, factory)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.ID, err)
		}
		chains[v.ID] = c
	}

	return &Generator{
		catalog:         cat,
		factory:         factory,
		chains:          chains,
		defaultProvider: strings.TrimSpace(defaultProvider),
	}, nil
}

// Catalog 返回变体目录
func (g *Generator) Catalog() *catalog.Catalog { return g.catalog }

// Generate 校验输入后执行链
// 无凭据时返回 StateNotConfigured，不调用模型工厂
func (g *Generator) Generate(ctx context.Context, req *Request) (*Outcome, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}

	v, ok := g.catalog.Get(req.Variant)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, req.Variant)
	}
	pc, ok := g.chains[v.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, req.Variant)
	}

	sel, err := ResolveSelection(v, req.Attributes)
	if err != nil {
		return nil, err
	}
	rows, err := ResolveRowCount(v, req.Rows)
	if err != nil {
		return nil, err
	}

	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = g.defaultProvider
	}

	runID := uuid.NewString()
	ctx = logger.WithContext(ctx, logger.VariantKey, v.ID)
	ctx = logger.WithContext(ctx, logger.RunIDKey, runID)

	out := &Outcome{
		RunID:     runID,
		Variant:   v.ID,
		Provider:  provider,
		Rows:      rows,
		Selection: sel,
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" && !g.factory.HasServerCredential(provider) {
		out.State = StateNotConfigured
		out.Guidance = append([]string(nil), v.StartHere...)
		metrics.GenerationOutcomeTotal.WithLabelValues(v.ID, string(StateNotConfigured)).Inc()
		logger.Info(ctx, "generation skipped: no llm credential", "provider", provider)
		return out, nil
	}

	start := time.Now()
	res, err := pc.Run(ctx, &wfmodel.ChainInput{
		Variables: sel.Variables(rows),
		Provider:  provider,
		APIKey:    apiKey,
		Overrides: req.Overrides,
	})
	if err != nil {
		metrics.GenerationOutcomeTotal.WithLabelValues(v.ID, "failed").Inc()
		return nil, err
	}

	out.State = StateGenerated
	out.Result = res
	metrics.GenerationOutcomeTotal.WithLabelValues(v.ID, string(StateGenerated)).Inc()

	usage := res.Usage()
	logger.Info(ctx, "generation completed",
		"provider", provider,
		"rows", rows,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
	)
	return out, nil
}
