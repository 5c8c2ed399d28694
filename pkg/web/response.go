package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/arise/pkg/web/errors"
	"github.com/lk2023060901/arise/pkg/web/middleware"
)

// Response 统一响应结构
type Response struct {
	Code      int    `json:"code"` // 业务码，0 表示成功
	Message   string `json:"message"`
	Data      any    `json:"data"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      errors.CodeOK,
		Message:   "ok",
		Data:      data,
		RequestID: middleware.GetRequestID(c),
	})
}

// Error 错误响应，HTTP 状态码由业务码推导
func Error(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(errors.CodeToStatus(code), Response{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}
