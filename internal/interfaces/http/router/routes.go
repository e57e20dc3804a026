package router

import (
	"github.com/gin-gonic/gin"

	"additive-prompt-api/internal/interfaces/http/handler"
)

// RegisterV1Routes 注册 v1 版本路由
// rateLimit 只作用于会调用模型的生成接口
func RegisterV1Routes(v1 *gin.RouterGroup, promptHandler *handler.PromptHandler, rateLimit gin.HandlerFunc) {
	variants := v1.Group("/variants")
	{
		variants.GET("", promptHandler.ListVariants)
		variants.GET("/:variant", promptHandler.GetVariant)
		variants.POST("/:variant/generate", rateLimit, promptHandler.Generate)
	}
}
