package promptgen

import (
	"errors"
	"fmt"
	"strings"

	"additive-prompt-api/internal/workflow/chain"
	wfnode "additive-prompt-api/internal/workflow/node"
	workflowprompt "additive-prompt-api/internal/workflow/prompt"
	apperrors "additive-prompt-api/pkg/errors"
)

// ToAppError 把生成过程中的错误转换为对外错误码
// 供应商错误只暴露阶段与分类，原始错误文本可能包含凭据片段
func ToAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}

	var (
		appErr *apperrors.AppError
		selErr *SelectionError
		mvErr  *workflowprompt.MissingVariableError
		pErr   *chain.ProviderError
	)

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrVariantNotFound):
		return apperrors.ErrVariantNotFound.WithDetail(err.Error()).WithError(err)
	case errors.As(err, &selErr):
		return apperrors.ErrInvalidSelection.WithDetail(selErr.Error()).WithError(err)
	case errors.Is(err, ErrInvalidRowCount):
		return apperrors.ErrInvalidRowCount.WithDetail(err.Error()).WithError(err)
	case errors.As(err, &mvErr):
		return apperrors.ErrMissingVariable.WithDetail(strings.Join(mvErr.Names, ", ")).WithError(err)
	case errors.As(err, &pErr):
		detail := fmt.Sprintf("stage %s: %s", pErr.Stage, pErr.Kind)
		switch pErr.Kind {
		case wfnode.ProviderErrorAuth:
			return apperrors.ErrLLMCredential.WithDetail(detail).WithError(err)
		case wfnode.ProviderErrorRateLimit:
			return apperrors.ErrLLMRateLimited.WithDetail(detail).WithError(err)
		default:
			return apperrors.ErrLLMProvider.WithDetail(detail).WithError(err)
		}
	default:
		return apperrors.ErrGenerationFailed.WithError(err)
	}
}
