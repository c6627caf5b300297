package routes

import (
	"context"
	"net/http"
	"time"

	_ "telemetry-http-service/docs"
	"telemetry-http-service/internal/app/controllers"
	"telemetry-http-service/internal/app/middleware"
	"telemetry-http-service/internal/domain/services"
	"telemetry-http-service/internal/domain/services/container"
	"telemetry-http-service/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 初始化并返回配置好的路由. Housekeeping goroutines of the
// router-owned limiters stop with ctx.
func SetupRouter(ctx context.Context, serviceContainer *container.ServiceContainer) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Metrics(),
		middleware.AccessLog(),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	registerRoutes(ctx, r, serviceContainer)
	return r
}

// NewHandler wraps the router with CORS for the configured origins. The
// query API is public, so credentials are never allowed.
func NewHandler(cfg *config.Config, r *gin.Engine) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", controllers.DeviceKeyHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "X-Cache"},
		MaxAge:         600,
	}).Handler(r)
}

// registerRoutes 配置所有API路由
func registerRoutes(ctx context.Context, r *gin.Engine, serviceContainer *container.ServiceContainer) {
	cfg := serviceContainer.GetService("config").(*config.Config)
	jwtService := serviceContainer.GetService("jwt").(services.InterfaceJWTService)

	queryLimiter := middleware.NewIPRateLimiter(cfg.QueryRateLimitRPS, cfg.QueryRateLimitBurst, nil)
	responseCache := newResponseCache(ctx, cfg, serviceContainer)
	go sweepQueryLimiter(ctx, queryLimiter)

	api := r.Group("/api")

	// 健康检查路由
	api.GET("/health", controllers.HandleHealthFunc(serviceContainer, "health"))
	api.GET("/health/status", operatorOnlyInProduction(cfg, jwtService), controllers.HandleHealthFunc(serviceContainer, "status"))
	api.GET("/debug", middleware.OptionalOperator(jwtService), controllers.HandleHealthFunc(serviceContainer, "debug"))

	// 设备上报，限流与认证在采集流水线内完成
	api.POST("/ingest", controllers.HandleIngestFunc(serviceContainer, "ingest"))

	// 运维登录
	api.POST("/auth/login", queryLimiter.Middleware(), controllers.HandleJWTFunc(serviceContainer, "login"))

	// 看板只读查询，公开访问
	query := api.Group("")
	query.Use(queryLimiter.Middleware(), middleware.Cache(responseCache, cfg.QueryCacheTTL))
	query.GET("/latest", controllers.HandleReadingFunc(serviceContainer, "latest"))
	query.GET("/range", controllers.HandleReadingFunc(serviceContainer, "range"))
	query.GET("/devices", controllers.HandleReadingFunc(serviceContainer, "devices"))
}

// operatorOnlyInProduction guards dependency details behind an operator
// token on the SERVER profile.
func operatorOnlyInProduction(cfg *config.Config, jwtService services.InterfaceJWTService) gin.HandlerFunc {
	if cfg.IsProduction() {
		return middleware.AuthenticateOperator(jwtService)
	}
	return func(c *gin.Context) { c.Next() }
}

func newResponseCache(ctx context.Context, cfg *config.Config, serviceContainer *container.ServiceContainer) middleware.ResponseCache {
	if cfg.QueryCacheTTL <= 0 {
		return nil
	}
	if redisService, ok := serviceContainer.GetService("redis").(services.InterfaceRedisService); ok && redisService != nil {
		return middleware.NewRedisResponseCache(redisService)
	}

	memory := middleware.NewMemoryResponseCache()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				memory.Sweep()
			}
		}
	}()
	return memory
}

// 定期清理长时间空闲的IP令牌桶
func sweepQueryLimiter(ctx context.Context, limiter *middleware.IPRateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep(time.Hour)
		}
	}
}
