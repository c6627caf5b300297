package controllers

import (
	"crypto/subtle"
	"time"

	"telemetry-http-service/internal/domain/services"
	"telemetry-http-service/internal/domain/services/container"
	"telemetry-http-service/internal/error/code"
	"telemetry-http-service/internal/error/response"
	"telemetry-http-service/internal/infrastructure/config"
	"telemetry-http-service/internal/infrastructure/database"

	"github.com/gin-gonic/gin"
)

// InterfaceHealthController 定义健康检查控制器接口
type InterfaceHealthController interface {
	Health()
	Status()
	Debug()
}

// HealthController 健康检查控制器
type HealthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	OK      bool      `json:"ok" example:"true"`
	Time    time.Time `json:"time"`
	Version string    `json:"version" example:"0.4.0"`
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(ctx *gin.Context, container *container.ServiceContainer) *HealthController {
	return &HealthController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleHealthFunc 返回处理健康检查请求的Gin处理函数
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthController(ctx, container)

		switch method {
		case "health":
			controller.Health()
		case "status":
			controller.Status()
		case "debug":
			controller.Debug()
		default:
			response.FailWithKind(ctx, code.InternalError, "无效的方法")
		}
	}
}

func (c *HealthController) config() *config.Config {
	return c.Container.GetService("config").(*config.Config)
}

// Health 存活检查
// @Summary      Liveness
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (c *HealthController) Health() {
	response.Success(c.Ctx, gin.H{
		"time":    time.Now().UTC(),
		"version": c.config().APIVersion,
	})
}

// Status 依赖状态检查
// @Summary      Dependency status
// @Description  Pings the database and Redis and reports pool statistics
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health/status [get]
func (c *HealthController) Status() {
	ctx := c.Ctx.Request.Context()
	checks := gin.H{}

	if pool, ok := c.Container.GetService("pool").(*database.ConnectionPool); ok && pool != nil {
		dbCheck := gin.H{"driver": pool.Driver, "healthy": true}
		if err := pool.HealthCheck(ctx); err != nil {
			dbCheck["healthy"] = false
			dbCheck["error"] = "unreachable"
		}
		if stats, err := pool.Stats(); err == nil {
			dbCheck["stats"] = stats
		}
		checks["database"] = dbCheck
	}

	if redisService, ok := c.Container.GetService("redis").(services.InterfaceRedisService); ok && redisService != nil {
		redisCheck := gin.H{"healthy": true}
		if err := redisService.Ping(ctx); err != nil {
			redisCheck["healthy"] = false
			redisCheck["error"] = "unreachable"
		}
		checks["redis"] = redisCheck
	}

	checks["rate_limiter"] = gin.H{
		"backend":         c.config().RateLimitBackend,
		"min_interval_ms": c.config().RateLimitMinInterval.Milliseconds(),
	}

	response.Success(c.Ctx, gin.H{
		"time":    time.Now().UTC(),
		"version": c.config().APIVersion,
		"checks":  checks,
	})
}

// Debug 配置诊断
// @Summary      Configuration diagnostics
// @Description  Reports which settings are present, never their values. Open outside production; otherwise needs an operator token or ?key=DEVICE_KEY.
// @Tags         Health
// @Produce      json
// @Param        key query string false "Fallback device key"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  response.ErrorResponse  "FORBIDDEN"
// @Router       /debug [get]
// @Security     BearerAuth
func (c *HealthController) Debug() {
	cfg := c.config()
	if !c.debugAllowed(cfg) {
		response.FailWithKind(c.Ctx, code.Forbidden, "")
		return
	}

	response.Success(c.Ctx, gin.H{
		"env": gin.H{
			"envType":          cfg.EnvType,
			"dbDriver":         cfg.DBDriver,
			"hasDatabaseHost":  cfg.DBHost != "",
			"hasDeviceKey":     cfg.DeviceKey != "",
			"hasDeviceKeysMap": cfg.DeviceKeysJSON != "",
			"rateLimitBackend": cfg.RateLimitBackend,
			"mqttEnabled":      cfg.MQTTEnabled,
			"influxEnabled":    cfg.InfluxEnabled,
			"apiVersion":       cfg.APIVersion,
		},
	})
}

func (c *HealthController) debugAllowed(cfg *config.Config) bool {
	if !cfg.IsProduction() {
		return true
	}
	if _, ok := c.Ctx.Get(services.OperatorContextKey); ok {
		return true
	}
	key := c.Ctx.Query("key")
	return key != "" && cfg.DeviceKey != "" &&
		subtle.ConstantTimeCompare([]byte(key), []byte(cfg.DeviceKey)) == 1
}
