package container

import (
	"context"
	"sync"
	"time"

	"telemetry-http-service/internal/domain/services"
	"telemetry-http-service/internal/infrastructure/config"
	"telemetry-http-service/internal/infrastructure/database"
	"telemetry-http-service/internal/infrastructure/repository"
	Logger "telemetry-http-service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// Dependencies are the externally owned resources the container wires.
// Store defaults to a GORM repository on Pool.
type Dependencies struct {
	Pool      *database.ConnectionPool
	Store     services.ReadingStore
	Redis     services.InterfaceRedisService
	Publisher services.ReadingPublisher
}

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	config *config.Config
	pool   *database.ConnectionPool
	store  services.ReadingStore

	// 基础服务
	jwtService   services.InterfaceJWTService
	redisService services.InterfaceRedisService

	// 采集与查询服务
	deviceKeyService services.InterfaceDeviceKeyService
	rateLimiter      services.InterfaceRateLimiter
	ingestService    services.InterfaceIngestService
	readingService   services.InterfaceReadingService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(cfg *config.Config, deps Dependencies) *ServiceContainer {
	if cfg == nil {
		panic("配置为空")
	}

	store := deps.Store
	if store == nil {
		if deps.Pool == nil {
			panic("数据库连接为空")
		}
		store = repository.NewReadingRepository(deps.Pool.GetDB())
	}

	c := &ServiceContainer{
		config:       cfg,
		pool:         deps.Pool,
		store:        store,
		redisService: deps.Redis,
	}
	c.initializeServices(deps.Publisher)
	return c
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices(publisher services.ReadingPublisher) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.jwtService = services.NewJWTService(c.config)
	c.deviceKeyService = services.NewDeviceKeyService(c.config)

	var redisClient *redis.Client
	if c.redisService != nil {
		redisClient = c.redisService.GetClient()
	}
	c.rateLimiter = services.NewRateLimiter(c.config, redisClient)

	c.ingestService = services.NewIngestService(c.store, c.deviceKeyService, c.rateLimiter, services.IngestOptions{
		Timeout:     c.config.DBTimeout,
		AsyncUpsert: c.config.DeviceUpsertAsync,
		Publisher:   publisher,
	})
	c.readingService = services.NewReadingService(c.store, c.config.DBTimeout, c.config.OfflineThreshold)
}

// StartBackground starts housekeeping goroutines that stop with ctx.
func (c *ServiceContainer) StartBackground(ctx context.Context) {
	if limiter, ok := c.rateLimiter.(*services.MemoryRateLimiter); ok {
		every := 10 * c.config.RateLimitMinInterval
		if every < time.Minute {
			every = time.Minute
		}
		limiter.StartSweeper(ctx, every)
		Logger.Debug("rate limiter sweeper started, every %v", every)
	}
}

// Drain waits for in-flight background work of the ingest pipeline.
func (c *ServiceContainer) Drain(ctx context.Context) error {
	return c.ingestService.Drain(ctx)
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "pool":
		return c.pool
	case "store":
		return c.store
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "device_key":
		return c.deviceKeyService
	case "rate_limiter":
		return c.rateLimiter
	case "ingest":
		return c.ingestService
	case "reading":
		return c.readingService
	default:
		return nil
	}
}
