package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	einoobs "additive-prompt-api/internal/observability/eino"
	wfmodel "additive-prompt-api/internal/workflow/model"
	wfnode "additive-prompt-api/internal/workflow/node"
	workflowport "additive-prompt-api/internal/workflow/port"
	workflowprompt "additive-prompt-api/internal/workflow/prompt"
	"additive-prompt-api/pkg/logger"
	"additive-prompt-api/pkg/metrics"
	"additive-prompt-api/pkg/tracer"
)

// ErrProviderFailed 任一阶段的 LLM 调用失败
var ErrProviderFailed = errors.New("llm provider call failed")

// ProviderError LLM 调用失败（鉴权/限流/网络/响应异常）
type ProviderError struct {
	Chain string
	Stage string
	Kind  wfnode.ProviderErrorKind
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("chain %s stage %s: llm provider error (%s): %v", e.Chain, e.Stage, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProviderFailed }

type compiledStage struct {
	def wfmodel.StageDefinition
	tpl *workflowprompt.Template
}

// PromptChain 按路由表顺序执行多个 Prompt 阶段，后一阶段只在前一阶段成功后运行
type PromptChain struct {
	def     wfmodel.ChainDefinition
	stages  []compiledStage
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*promptChainState, *wfmodel.ChainResult]
	chainErr  error
}

// NewPromptChain 校验路由表并创建链；路由表与模板占位符不一致时返回错误
func NewPromptChain(def wfmodel.ChainDefinition, templates workflowprompt.TemplateSource, factory workflowport.ChatModelFactory) (*PromptChain, error) {
	if factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	stages, err := compileStages(def, templates)
	if err != nil {
		return nil, err
	}
	return &PromptChain{
		def:     def,
		stages:  stages,
		factory: factory,
	}, nil
}

// Name 返回链名称
func (c *PromptChain) Name() string { return c.def.Name }

// Definition 返回链定义
func (c *PromptChain) Definition() wfmodel.ChainDefinition { return c.def }

// Run 执行整条链；任一阶段失败即中止，不返回部分结果
func (c *PromptChain) Run(ctx context.Context, in *wfmodel.ChainInput) (*wfmodel.ChainResult, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	runnable, err := c.getChain()
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "chain."+c.def.Name)
	defer span.End()
	span.SetAttributes(
		attribute.String("chain.name", c.def.Name),
		attribute.Int("chain.stages", len(c.stages)),
		attribute.String("llm.provider", strings.TrimSpace(in.Provider)),
	)

	start := time.Now()
	st := newPromptChainState(in)
	out, err := runnable.Invoke(ctx, st)
	metrics.ChainRunDuration.WithLabelValues(c.def.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		// 节点内产生的类型化错误记录在本次运行的 state 中
		if st.failure != nil {
			err = st.failure
		}
		metrics.ChainRunTotal.WithLabelValues(c.def.Name, runStatus(err)).Inc()
		tracer.RecordError(span, errors.New(wfnode.RedactSecrets(err.Error())))
		return nil, err
	}
	if out == nil {
		err = fmt.Errorf("chain %s produced no result", c.def.Name)
		metrics.ChainRunTotal.WithLabelValues(c.def.Name, "error").Inc()
		tracer.RecordError(span, err)
		return nil, err
	}

	metrics.ChainRunTotal.WithLabelValues(c.def.Name, "success").Inc()
	return out, nil
}

// promptChainState 单次运行的可变状态，每次 Run 新建
type promptChainState struct {
	In        *wfmodel.ChainInput
	ChatModel model.BaseChatModel
	Outputs   map[string]string
	Traces    []wfmodel.StageTrace

	pendingVars map[string]string
	pendingMsgs []*schema.Message

	failure error
}

func newPromptChainState(in *wfmodel.ChainInput) *promptChainState {
	return &promptChainState{
		In:      in,
		Outputs: make(map[string]string, 2),
	}
}

func (st *promptChainState) fail(err error) error {
	st.failure = err
	return err
}

func (c *PromptChain) getChain() (compose.Runnable[*promptChainState, *wfmodel.ChainResult], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *PromptChain) buildChain(ctx context.Context) (compose.Runnable[*promptChainState, *wfmodel.ChainResult], error) {
	chain := compose.NewChain[*promptChainState, *wfmodel.ChainResult]()

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *promptChainState) (*promptChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			chatModel, err := c.factory.Get(ctx, workflowport.ModelRequest{
				Provider: strings.TrimSpace(st.In.Provider),
				APIKey:   st.In.APIKey,
			})
			if err != nil {
				return nil, st.fail(fmt.Errorf("init chat model: %w", err))
			}
			st.ChatModel = chatModel
			return st, nil
		}),
		compose.WithNodeName(c.def.Name+".init"),
	)

	for i := range c.stages {
		stage := c.stages[i]

		chain.AppendLambda(
			compose.InvokableLambda(func(ctx context.Context, st *promptChainState) (*promptChainState, error) {
				if st == nil || st.In == nil {
					return nil, fmt.Errorf("state is nil")
				}
				vars := bindVariables(stage.def, st)
				msgs, err := stage.tpl.Format(ctx, vars)
				if err != nil {
					return nil, st.fail(err)
				}
				st.pendingVars = vars
				st.pendingMsgs = msgs
				return st, nil
			}),
			compose.WithNodeName(c.def.Name+"."+stage.def.Name+".template"),
		)

		chain.AppendLambda(
			compose.InvokableLambda(func(ctx context.Context, st *promptChainState) (*promptChainState, error) {
				if st == nil || st.In == nil || st.ChatModel == nil {
					return nil, fmt.Errorf("state is nil")
				}
				return c.runStage(ctx, stage, st)
			}),
			compose.WithNodeName(c.def.Name+"."+stage.def.Name+".llm"),
		)
	}

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *promptChainState) (*wfmodel.ChainResult, error) {
			if st == nil || len(st.Traces) != len(c.stages) {
				return nil, fmt.Errorf("state is incomplete")
			}
			last := st.Traces[len(st.Traces)-1]
			return &wfmodel.ChainResult{
				Chain:  c.def.Name,
				Stages: st.Traces,
				Final:  last.Text,
			}, nil
		}),
		compose.WithNodeName(c.def.Name+".finalize"),
	)

	return chain.Compile(ctx)
}

func (c *PromptChain) runStage(ctx context.Context, stage compiledStage, st *promptChainState) (*promptChainState, error) {
	provider := strings.TrimSpace(st.In.Provider)
	workflow := c.def.Name + "." + stage.def.Name
	ctx = einoobs.WithWorkflowProvider(ctx, workflow, provider)
	ctx = logger.WithContext(ctx, logger.StageKey, stage.def.Name)

	settings := stage.def.Settings.Merge(st.In.Overrides)
	prompt := messagesText(st.pendingMsgs)
	logger.Debug(ctx, "prompt stage started",
		"prompt_id", string(stage.def.Prompt),
		"prompt_preview", wfnode.LogPreview(prompt, 200),
	)

	start := time.Now()
	outMsg, err := st.ChatModel.Generate(ctx, st.pendingMsgs, buildModelOptions(settings)...)
	if err == nil && (outMsg == nil || strings.TrimSpace(outMsg.Content) == "") {
		err = wfnode.ErrEmptyResponse
	}
	if err != nil {
		kind := wfnode.ClassifyProviderError(err)
		logger.Debug(ctx, "prompt stage failed",
			"kind", string(kind),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", wfnode.RedactSecrets(err.Error()),
		)
		return nil, st.fail(&ProviderError{
			Chain: c.def.Name,
			Stage: stage.def.Name,
			Kind:  kind,
			Err:   err,
		})
	}

	usage := wfmodel.LLMUsageMeta{
		Provider:    provider,
		Model:       settings.Model,
		DurationMs:  time.Since(start).Milliseconds(),
		GeneratedAt: time.Now().UTC(),
	}
	if settings.Temperature != nil {
		usage.Temperature = float64(*settings.Temperature)
	}
	if settings.MaxTokens != nil {
		usage.MaxTokens = *settings.MaxTokens
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		usage.PromptTokens = outMsg.ResponseMeta.Usage.PromptTokens
		usage.CompletionTokens = outMsg.ResponseMeta.Usage.CompletionTokens
	}

	st.Outputs[stage.def.Output] = outMsg.Content
	st.Traces = append(st.Traces, wfmodel.StageTrace{
		Stage:     stage.def.Name,
		Output:    stage.def.Output,
		Variables: st.pendingVars,
		Prompt:    prompt,
		Text:      outMsg.Content,
		Usage:     usage,
	})
	st.pendingVars = nil
	st.pendingMsgs = nil

	logger.Info(ctx, "prompt stage completed",
		"duration_ms", usage.DurationMs,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
	)
	return st, nil
}

// bindVariables 按路由表为阶段选取变量；空白值视为未提供
func bindVariables(def wfmodel.StageDefinition, st *promptChainState) map[string]string {
	vars := make(map[string]string, len(def.Bindings))
	for _, b := range def.Bindings {
		var (
			v  string
			ok bool
		)
		switch b.From.Kind {
		case wfmodel.SourceInput:
			v, ok = st.In.Variables[b.From.Key]
		case wfmodel.SourceStage:
			v, ok = st.Outputs[b.From.Key]
		}
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		vars[b.Placeholder] = v
	}
	return vars
}

func messagesText(msgs []*schema.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m != nil {
			b.WriteString(m.Content)
		}
	}
	return b.String()
}

func buildModelOptions(s wfmodel.StageSettings) []model.Option {
	opts := make([]model.Option, 0, 3)
	if s.Temperature != nil {
		opts = append(opts, model.WithTemperature(*s.Temperature))
	}
	if s.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*s.MaxTokens))
	}
	if m := strings.TrimSpace(s.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}
	return opts
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, workflowprompt.ErrMissingVariable):
		return "missing_variable"
	case errors.Is(err, ErrProviderFailed):
		return "provider_error"
	default:
		return "error"
	}
}
