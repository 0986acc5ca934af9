package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/chat-gateway/internal/pkg/errors"
)

// ErrorBody 统一错误响应结构
type ErrorBody struct {
	Error string `json:"error"`          // 错误描述
	Code  int    `json:"code,omitempty"` // 业务错误码
}

// Success 成功响应（200），直接输出数据本身
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusOK, data)
}

// Error 错误响应
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorBody{Error: message})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, apperrors.ErrBadRequest, message)
}

// NotFound 404 错误
func NotFound(c *gin.Context, message string) {
	ErrorWithCode(c, apperrors.ErrNotFound, message)
}

// InternalError 500 错误
func InternalError(c *gin.Context, message string) {
	ErrorWithCode(c, apperrors.ErrInternalServer, message)
}

// HandleError 统一错误处理（使用AppError）
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := apperrors.ExtractCode(err)
	httpStatus := apperrors.ExtractStatus(err)
	message := apperrors.FormatError(code, apperrors.GetDetails(err))

	_ = c.Error(err)
	c.JSON(httpStatus, ErrorBody{
		Code:  code,
		Error: message,
	})
}

// ErrorWithCode 使用错误码的错误响应
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	c.JSON(apperrors.GetHTTPStatus(code), ErrorBody{
		Code:  code,
		Error: apperrors.FormatError(code, details...),
	})
}
