package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"additive-prompt-api/internal/application/promptgen"
	"additive-prompt-api/internal/config"
	"additive-prompt-api/internal/interfaces/http/dto"
	wfnode "additive-prompt-api/internal/workflow/node"
	apperrors "additive-prompt-api/pkg/errors"
	"additive-prompt-api/pkg/logger"
)

// DefaultCredentialHeader 未配置时读取请求级 LLM 凭据的请求头
const DefaultCredentialHeader = "X-LLM-API-Key"

// PromptHandler 变体查询与 Prompt 生成
type PromptHandler struct {
	cfg              *config.Config
	generator        *promptgen.Generator
	credentialHeader string
	allowOverrides   bool
}

// NewPromptHandler 创建 Prompt 处理器
func NewPromptHandler(cfg *config.Config, generator *promptgen.Generator) *PromptHandler {
	header := strings.TrimSpace(cfg.Generation.CredentialHeader)
	if header == "" {
		header = DefaultCredentialHeader
	}
	return &PromptHandler{
		cfg:              cfg,
		generator:        generator,
		credentialHeader: header,
		allowOverrides:   cfg.Generation.AllowRequestOverrides,
	}
}

// ListVariants 获取变体列表
// @Summary 获取变体列表
// @Tags Variants
// @Produce json
// @Success 200 {object} dto.Response[dto.VariantListResponse]
// @Router /v1/variants [get]
func (h *PromptHandler) ListVariants(c *gin.Context) {
	dto.Success(c, dto.ToVariantListResponse(h.generator.Catalog().List()))
}

// GetVariant 获取变体详情
// @Summary 获取变体详情
// @Description 返回属性预设、行数范围与使用说明
// @Tags Variants
// @Produce json
// @Param variant path string true "变体 ID"
// @Success 200 {object} dto.Response[dto.VariantResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/variants/{variant} [get]
func (h *PromptHandler) GetVariant(c *gin.Context) {
	v, ok := h.generator.Catalog().Get(c.Param("variant"))
	if !ok {
		dto.AppError(c, apperrors.ErrVariantNotFound.WithDetail(c.Param("variant")))
		return
	}
	dto.Success(c, dto.ToVariantResponse(v))
}

// Generate 执行两阶段生成
// @Summary 生成 Midjourney Prompt
// @Description 未提供凭据时返回 state=not_configured 与操作指引，不调用模型
// @Tags Variants
// @Accept json
// @Produce json,text/markdown
// @Param variant path string true "变体 ID"
// @Param X-LLM-API-Key header string false "LLM 凭据，不会被保存"
// @Param format query string false "markdown 时直接返回文本"
// @Param trace query bool false "返回各阶段 prompt 与输出"
// @Param body body dto.GenerateRequest false "属性与行数"
// @Success 200 {object} dto.Response[dto.GenerateResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/variants/{variant}/generate [post]
func (h *PromptHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}
	if req.HasOverrides() && !h.allowOverrides {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail("sampling overrides are disabled"))
		return
	}
	provider, err := resolveProvider(h.cfg, req.Provider)
	if err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	out, err := h.generator.Generate(ctx, &promptgen.Request{
		Variant:    c.Param("variant"),
		Attributes: req.Attributes,
		Rows:       req.Rows,
		Provider:   provider,
		APIKey:     c.GetHeader(h.credentialHeader),
		Overrides:  req.Overrides(),
	})
	if err != nil {
		h.writeGenerateError(c, err)
		return
	}

	if strings.EqualFold(c.Query("format"), "markdown") {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(out.Markdown()))
		return
	}
	dto.Success(c, dto.ToGenerateResponse(out, c.Query("trace") == "true"))
}

func (h *PromptHandler) writeGenerateError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	appErr := promptgen.ToAppError(err)

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(ctx, "prompt generation failed", errors.New(wfnode.RedactSecrets(err.Error())), "code", string(appErr.Code))
	} else {
		logger.Warn(ctx, "prompt generation rejected", "code", string(appErr.Code), "detail", appErr.Detail)
	}
	dto.AppError(c, appErr)
}
