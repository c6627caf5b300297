package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"telemetry-http-service/internal/error/code"
	Logger "telemetry-http-service/pkg/logger"
)

// ErrorBody 定义错误详情
type ErrorBody struct {
	Code    code.Kind   `json:"code" example:"INVALID_PAYLOAD"`
	Message string      `json:"message" example:"Payload failed validation"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse 定义统一的失败响应格式
type ErrorResponse struct {
	OK    bool      `json:"ok" example:"false"`
	Error ErrorBody `json:"error"`
}

// Success writes {"ok": true} merged with fields.
func Success(c *gin.Context, fields gin.H) {
	body := gin.H{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail writes the failure envelope for err. Causes of server-side errors are
// logged here and never reach the body.
func Fail(c *gin.Context, err error) {
	e := code.AsError(err)
	if e.Err != nil && e.Status() >= http.StatusInternalServerError {
		Logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, e.Err)
	}

	c.JSON(e.Status(), ErrorResponse{
		OK: false,
		Error: ErrorBody{
			Code:    e.Kind,
			Message: e.Message,
			Details: e.Details,
		},
	})
}

// FailWithKind 失败响应（指定错误码和消息）
func FailWithKind(c *gin.Context, kind code.Kind, message string) {
	Fail(c, code.New(kind, message))
}

// ServerError 服务器错误响应
func ServerError(c *gin.Context) {
	FailWithKind(c, code.InternalError, "")
}
