// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"additive-prompt-api/internal/interfaces/http/dto"
	apperrors "additive-prompt-api/pkg/errors"
	"additive-prompt-api/pkg/logger"
)

// Recovery Panic 恢复中间件，统一返回 500 错误结构
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					fmt.Errorf("%v", r),
					"stack", string(debug.Stack()),
					"route", routeLabel(c),
					"method", c.Request.Method,
				)
				dto.AbortWithAppError(c, apperrors.ErrInternalError)
			}
		}()

		c.Next()
	}
}
