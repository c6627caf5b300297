// @title           Telemetry HTTP Service API
// @version         0.4.0
// @description     Ingestion and dashboard queries for sensor telemetry

// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Operator token with the `Bearer ` prefix
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"telemetry-http-service/internal/app/routes"
	"telemetry-http-service/internal/domain/services"
	"telemetry-http-service/internal/domain/services/container"
	"telemetry-http-service/internal/infrastructure/config"
	"telemetry-http-service/internal/infrastructure/database"
	"telemetry-http-service/internal/infrastructure/influx"
	"telemetry-http-service/internal/infrastructure/mqtt"
	Logger "telemetry-http-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 加载.env文件
	envErr := godotenv.Load()

	// 获取配置
	cfg := config.GetConfig()

	// 初始化日志配置
	if err := Logger.SetupLogger(cfg.LogDir, cfg.LogLevel); err != nil {
		fmt.Printf("初始化日志配置失败: %v\n", err)
		os.Exit(1)
	}
	defer Logger.Close()
	if envErr != nil {
		Logger.Warning("无法加载.env文件: %v", envErr)
	}

	gin.SetMode(cfg.GinMode)

	// 创建数据库连接池
	pool, err := database.NewConnectionPool(cfg)
	if err != nil {
		Logger.Error("无法创建数据库连接池: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(pool.GetDB(), cfg.DBMigrationMode); err != nil {
		Logger.Error("数据库迁移失败: %v", err)
		os.Exit(1)
	}

	redisService := connectRedis(cfg)
	if redisService != nil {
		defer redisService.Close()
	}

	publisher, closePublishers := buildPublishers(cfg)
	defer closePublishers()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serviceContainer := container.NewServiceContainer(cfg, container.Dependencies{
		Pool:      pool,
		Redis:     redisService,
		Publisher: publisher,
	})
	serviceContainer.StartBackground(ctx)

	r := routes.SetupRouter(ctx, serviceContainer)
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           routes.NewHandler(cfg, r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	printSystemInfo(pool)

	go func() {
		Logger.Info("服务器启动在: http://%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("启动服务器失败: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	Logger.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		Logger.Error("服务器关闭失败: %v", err)
	}
	if err := serviceContainer.Drain(shutdownCtx); err != nil {
		Logger.Warning("后台任务未在超时前完成: %v", err)
	}
	Logger.Info("服务器已退出")
}

// connectRedis returns nil when Redis is not needed or not reachable.
func connectRedis(cfg *config.Config) services.InterfaceRedisService {
	if cfg.RateLimitBackend != "redis" {
		return nil
	}

	redisService := services.NewRedisService(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisService.Ping(ctx); err != nil {
		Logger.Warning("Redis连接测试失败: %v，将使用内存限流", err)
		redisService.Close()
		return nil
	}
	Logger.Info("Redis已连接: %s", cfg.GetRedisAddr())
	return redisService
}

func buildPublishers(cfg *config.Config) (services.ReadingPublisher, func()) {
	var sinks services.MultiPublisher
	var closers []func()

	if cfg.MQTTEnabled {
		p := mqtt.NewPublisher(cfg)
		sinks = append(sinks, p)
		closers = append(closers, p.Close)
		Logger.Info("MQTT转发已启用: %s/<device_id>/reading", cfg.MQTTTopicPrefix)
	}
	if cfg.InfluxEnabled {
		w := influx.NewWriter(cfg)
		sinks = append(sinks, w)
		closers = append(closers, w.Close)
		Logger.Info("InfluxDB转发已启用: bucket=%s", cfg.InfluxBucket)
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		return nil, closeAll
	}
	return sinks, closeAll
}

// printSystemInfo 打印系统信息
func printSystemInfo(pool *database.ConnectionPool) {
	if stats, err := pool.Stats(); err == nil {
		Logger.Info("数据库连接池状态: %+v", stats)
	}
	Logger.Info("系统CPU核心数: %d, 当前Go协程数: %d", runtime.NumCPU(), runtime.NumGoroutine())
}
