package dto

import (
	"strings"

	"additive-prompt-api/internal/application/promptgen"
	"additive-prompt-api/internal/application/promptgen/catalog"
	wfmodel "additive-prompt-api/internal/workflow/model"
)

// VariantSummary 变体列表项
type VariantSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// VariantListResponse 变体列表响应
type VariantListResponse struct {
	Variants []*VariantSummary `json:"variants"`
}

// RowBoundsResponse 行数范围
type RowBoundsResponse struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// AttributeResponse 属性定义
type AttributeResponse struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Options     []string `json:"options,omitempty"`
	Default     string   `json:"default"`
	AllowCustom bool     `json:"allow_custom"`
	Fixed       bool     `json:"fixed"`
}

// VariantResponse 变体详情
type VariantResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	HowItWorks  []string             `json:"how_it_works"`
	StartHere   []string             `json:"start_here"`
	Rows        RowBoundsResponse    `json:"rows"`
	Attributes  []*AttributeResponse `json:"attributes"`
}

// GenerateRequest 生成请求；凭据只从请求头读取
type GenerateRequest struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Rows       *int              `json:"rows,omitempty"`

	Provider    string   `json:"provider,omitempty" binding:"max=32"`
	Model       string   `json:"model,omitempty" binding:"max=64"`
	Temperature *float32 `json:"temperature,omitempty" binding:"omitempty,gte=0,lte=2"`
	MaxTokens   *int     `json:"max_tokens,omitempty" binding:"omitempty,gte=1,lte=4096"`
	// Deterministic 使用温度 0，优先于 Temperature
	Deterministic bool `json:"deterministic,omitempty"`
}

// HasOverrides 是否包含采样参数覆盖
func (r *GenerateRequest) HasOverrides() bool {
	return r.Temperature != nil || r.MaxTokens != nil || strings.TrimSpace(r.Model) != "" || r.Deterministic
}

// Overrides 转换为阶段参数覆盖
func (r *GenerateRequest) Overrides() wfmodel.StageSettings {
	s := wfmodel.StageSettings{
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
		Model:       strings.TrimSpace(r.Model),
	}
	if r.Deterministic {
		zero := float32(0)
		s.Temperature = &zero
	}
	return s
}

// UsageResponse Token 用量
type UsageResponse struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	DurationMs       int64 `json:"duration_ms"`
}

// StageResponse 单阶段记录，仅在 trace=true 时返回
type StageResponse struct {
	Stage  string        `json:"stage"`
	Prompt string        `json:"prompt"`
	Output string        `json:"output"`
	Usage  UsageResponse `json:"usage"`
}

// GenerateResponse 生成响应
type GenerateResponse struct {
	RunID      string            `json:"run_id"`
	State      string            `json:"state"`
	Variant    string            `json:"variant"`
	Provider   string            `json:"provider"`
	Rows       int               `json:"rows"`
	Attributes map[string]string `json:"attributes"`
	Lines      string            `json:"lines,omitempty"`
	Table      string            `json:"table,omitempty"`
	Guidance   []string          `json:"guidance,omitempty"`
	Usage      *UsageResponse    `json:"usage,omitempty"`
	Stages     []*StageResponse  `json:"stages,omitempty"`
}

// ToVariantListResponse 转换变体列表
func ToVariantListResponse(variants []*catalog.Variant) *VariantListResponse {
	out := &VariantListResponse{Variants: make([]*VariantSummary, 0, len(variants))}
	for _, v := range variants {
		out.Variants = append(out.Variants, &VariantSummary{
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
		})
	}
	return out
}

// ToVariantResponse 转换变体详情
func ToVariantResponse(v *catalog.Variant) *VariantResponse {
	resp := &VariantResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		HowItWorks:  v.HowItWorks,
		StartHere:   v.StartHere,
		Rows: RowBoundsResponse{
			Min:     v.Rows.Min,
			Max:     v.Rows.Max,
			Default: v.Rows.Default,
		},
		Attributes: make([]*AttributeResponse, 0, len(v.Attributes)),
	}
	for i := range v.Attributes {
		a := &v.Attributes[i]
		resp.Attributes = append(resp.Attributes, &AttributeResponse{
			Name:        a.Name,
			Label:       a.Label,
			Options:     a.Options,
			Default:     a.Default(),
			AllowCustom: a.AllowCustom,
			Fixed:       a.Fixed != "",
		})
	}
	return resp
}

// ToGenerateResponse 转换生成结果；withStages 为 true 时附带各阶段 prompt 与输出
func ToGenerateResponse(out *promptgen.Outcome, withStages bool) *GenerateResponse {
	resp := &GenerateResponse{
		RunID:      out.RunID,
		State:      string(out.State),
		Variant:    out.Variant,
		Provider:   out.Provider,
		Rows:       out.Rows,
		Attributes: out.Selection,
		Lines:      out.Lines(),
		Table:      out.Table(),
		Guidance:   out.Guidance,
	}
	if out.Result == nil {
		return resp
	}

	total := out.Result.Usage()
	resp.Usage = toUsageResponse(total)
	if withStages {
		for _, st := range out.Result.Stages {
			resp.Stages = append(resp.Stages, &StageResponse{
				Stage:  st.Stage,
				Prompt: st.Prompt,
				Output: st.Text,
				Usage:  *toUsageResponse(st.Usage),
			})
		}
	}
	return resp
}

func toUsageResponse(u wfmodel.LLMUsageMeta) *UsageResponse {
	return &UsageResponse{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		DurationMs:       u.DurationMs,
	}
}
