package services

import (
	"context"
	"sync"
	"time"

	"telemetry-http-service/internal/infrastructure/config"
	Logger "telemetry-http-service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// InterfaceRateLimiter gates ingestion per device. Allow commits the new
// timestamp only when it accepts.
type InterfaceRateLimiter interface {
	Allow(ctx context.Context, deviceID string) bool
}

// MemoryRateLimiter 进程内的单令牌冷却限流器，每个设备在最小间隔内只接受一次请求
type MemoryRateLimiter struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewMemoryRateLimiter creates a cooldown limiter. now may be nil, in which
// case time.Now is used.
func NewMemoryRateLimiter(interval time.Duration, now func() time.Time) *MemoryRateLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryRateLimiter{
		interval: interval,
		now:      now,
		lastSeen: make(map[string]time.Time),
	}
}

// 1 Allow checks and updates the entry of deviceID as one atomic step.
func (l *MemoryRateLimiter) Allow(_ context.Context, deviceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.lastSeen[deviceID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[deviceID] = now
	return true
}

// 2 Sweep drops entries whose cooldown already elapsed and returns how many
// were removed. Dropping them does not change any future decision.
func (l *MemoryRateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, last := range l.lastSeen {
		if now.Sub(last) >= l.interval {
			delete(l.lastSeen, id)
			removed++
		}
	}
	return removed
}

// 3 StartSweeper runs Sweep every period until ctx is done.
func (l *MemoryRateLimiter) StartSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.Sweep(); n > 0 {
					Logger.Debug("rate limiter sweep removed %d entries", n)
				}
			}
		}
	}()
}

// Len returns the number of tracked devices.
func (l *MemoryRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lastSeen)
}

// RedisRateLimiter shares the cooldown between instances with SET NX PX.
// Only the first caller inside an interval creates the key.
type RedisRateLimiter struct {
	client   *redis.Client
	interval time.Duration
	prefix   string
}

// NewRedisRateLimiter creates a limiter backed by client.
func NewRedisRateLimiter(client *redis.Client, interval time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		interval: interval,
		prefix:   "ratelimit:device:",
	}
}

// Allow fails open when Redis cannot be reached; the limiter is best-effort.
func (l *RedisRateLimiter) Allow(ctx context.Context, deviceID string) bool {
	if l.interval <= 0 {
		return true
	}
	ok, err := l.client.SetNX(ctx, l.prefix+deviceID, time.Now().UnixMilli(), l.interval).Result()
	if err != nil {
		Logger.Error("redis rate limiter unavailable for device %s: %v", deviceID, err)
		return true
	}
	return ok
}

// NewRateLimiter picks the backend named by RATE_LIMIT_BACKEND. A nil Redis
// client forces the memory backend.
func NewRateLimiter(cfg *config.Config, client *redis.Client) InterfaceRateLimiter {
	if cfg.RateLimitBackend == "redis" && client != nil {
		Logger.Info("使用Redis限流器, 最小间隔=%v", cfg.RateLimitMinInterval)
		return NewRedisRateLimiter(client, cfg.RateLimitMinInterval)
	}
	if cfg.RateLimitBackend == "redis" {
		Logger.Warning("RATE_LIMIT_BACKEND=redis but no Redis client is available, falling back to memory")
	}
	Logger.Info("使用内存限流器, 最小间隔=%v", cfg.RateLimitMinInterval)
	return NewMemoryRateLimiter(cfg.RateLimitMinInterval, nil)
}
