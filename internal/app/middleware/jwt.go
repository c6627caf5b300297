package middleware

import (
	"strings"

	"telemetry-http-service/internal/domain/services"
	"telemetry-http-service/internal/error/code"
	"telemetry-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

func operatorClaims(c *gin.Context, jwtService services.InterfaceJWTService) (*services.JWTClaims, bool) {
	tokenString := extractToken(c.GetHeader("Authorization"))
	if tokenString == "" {
		return nil, false
	}
	claims, err := jwtService.ValidateToken(tokenString)
	if err != nil || claims.Role != services.RoleOperator {
		return nil, false
	}
	return claims, true
}

// OptionalOperator stores the claims of a valid operator token in the
// context and never rejects. Handlers decide what the token unlocks.
func OptionalOperator(jwtService services.InterfaceJWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := operatorClaims(c, jwtService); ok {
			c.Set(services.OperatorContextKey, claims)
		}
		c.Next()
	}
}

// AuthenticateOperator 验证运维人员权限
func AuthenticateOperator(jwtService services.InterfaceJWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if extractToken(c.GetHeader("Authorization")) == "" {
			response.FailWithKind(c, code.Unauthorized, "Authorization header is required")
			c.Abort()
			return
		}

		claims, ok := operatorClaims(c, jwtService)
		if !ok {
			response.FailWithKind(c, code.Forbidden, "Invalid or expired operator token")
			c.Abort()
			return
		}

		c.Set(services.OperatorContextKey, claims)
		c.Next()
	}
}
