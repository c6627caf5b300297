package controllers

import (
	"errors"

	"telemetry-http-service/internal/domain/services"
	"telemetry-http-service/internal/domain/services/container"
	"telemetry-http-service/internal/error/code"
	"telemetry-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceJWTController 定义认证控制器接口
type InterfaceJWTController interface {
	Login()
}

// JWTController 处理运维人员登录
type JWTController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// LoginRequest 表示登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"change-me"`
}

// NewJWTController 创建一个新的认证控制器
func NewJWTController(ctx *gin.Context, container *container.ServiceContainer) *JWTController {
	return &JWTController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleJWTFunc 返回一个处理JWT认证请求的Gin处理函数
func HandleJWTFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewJWTController(ctx, container)

		switch method {
		case "login":
			controller.Login()
		default:
			response.FailWithKind(ctx, code.InternalError, "无效的方法")
		}
	}
}

// Login 处理运维人员登录
// @Summary      Operator login
// @Description  Exchanges the operator credentials for a bearer token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login request parameters"
// @Success      200  {object}  services.LoginResult
// @Failure      400  {object}  response.ErrorResponse  "INVALID_PAYLOAD"
// @Failure      401  {object}  response.ErrorResponse  "UNAUTHORIZED"
// @Failure      403  {object}  response.ErrorResponse  "FORBIDDEN when login is not configured"
// @Router       /auth/login [post]
func (c *JWTController) Login() {
	var req LoginRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithKind(c.Ctx, code.InvalidPayload, "username and password are required")
		return
	}

	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)
	result, err := jwtService.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, services.ErrLoginDisabled):
		response.FailWithKind(c.Ctx, code.Forbidden, "Operator login is not configured")
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		response.FailWithKind(c.Ctx, code.Unauthorized, "Invalid username or password")
		return
	case err != nil:
		response.Fail(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"token":      result.Token,
		"username":   result.Username,
		"role":       result.Role,
		"expires_at": result.ExpiresAt,
	})
}
