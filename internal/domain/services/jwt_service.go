package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"telemetry-http-service/internal/infrastructure/config"
	"telemetry-http-service/pkg/utils"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// RoleOperator is the only role issued by the login endpoint.
	RoleOperator = "operator"
	// OperatorContextKey holds the validated *JWTClaims in the gin context.
	OperatorContextKey = "operator"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLoginDisabled      = errors.New("operator login is not configured")
)

// InterfaceJWTService 定义JWT服务接口
type InterfaceJWTService interface {
	GenerateToken(username, role string) (string, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
	Login(username, password string) (*LoginResult, error)
}

// LoginResult 表示登录结果
type LoginResult struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTClaims 定义JWT令牌的声明结构
type JWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService issues operator tokens guarding the debug endpoint.
type JWTService struct {
	secretKey    string
	issuer       string
	ttl          time.Duration
	username     string
	passwordHash string
}

// NewJWTService 创建一个新的JWT服务
func NewJWTService(cfg *config.Config) InterfaceJWTService {
	return &JWTService{
		secretKey:    cfg.JWTSecretKey,
		issuer:       "telemetry-http-service",
		ttl:          12 * time.Hour,
		username:     cfg.OperatorUsername,
		passwordHash: cfg.OperatorPasswordHash,
	}
}

// 1 GenerateToken 生成JWT令牌
func (s *JWTService) GenerateToken(username, role string) (string, error) {
	if s.secretKey == "" {
		return "", ErrLoginDisabled
	}
	now := time.Now()
	claims := &JWTClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// 2 ValidateToken 验证JWT令牌并返回声明
func (s *JWTService) ValidateToken(tokenString string) (*JWTClaims, error) {
	if s.secretKey == "" {
		return nil, ErrLoginDisabled
	}
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// 3 Login checks the configured operator credentials.
func (s *JWTService) Login(username, password string) (*LoginResult, error) {
	if s.secretKey == "" || s.passwordHash == "" {
		return nil, ErrLoginDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := utils.CheckPasswordHash(password, s.passwordHash)
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(s.username, RoleOperator)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		Username:  s.username,
		Role:      RoleOperator,
		ExpiresAt: time.Now().Add(s.ttl),
	}, nil
}
