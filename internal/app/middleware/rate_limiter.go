package middleware

import (
	"sync"
	"time"

	"telemetry-http-service/internal/error/code"
	"telemetry-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// 简单的令牌桶限流器
type TokenBucket struct {
	rate       float64    // 每秒填充的令牌数
	capacity   int        // 桶的容量
	tokens     float64    // 当前令牌数
	lastRefill time.Time  // 上次填充时间
	mu         sync.Mutex // 互斥锁
}

// 创建新的令牌桶限流器
func NewTokenBucket(rate float64, capacity int, now time.Time) *TokenBucket {
	return &TokenBucket{
		rate:       rate,
		capacity:   capacity,
		tokens:     float64(capacity),
		lastRefill: now,
	}
}

// 尝试获取令牌
func (tb *TokenBucket) Allow(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if elapsed := now.Sub(tb.lastRefill).Seconds(); elapsed > 0 {
		tb.tokens += elapsed * tb.rate
		if tb.tokens > float64(tb.capacity) {
			tb.tokens = float64(tb.capacity)
		}
		tb.lastRefill = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) idleSince() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill
}

// IPRateLimiter owns one bucket per client IP. It protects the public read
// endpoints; device ingestion has its own cooldown limiter.
type IPRateLimiter struct {
	rate  float64
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*TokenBucket
}

// NewIPRateLimiter creates a limiter; non-positive values fall back to 10 rps / 20 burst.
func NewIPRateLimiter(rate float64, burst int, now func() time.Time) *IPRateLimiter {
	if rate <= 0 {
		rate = 10
	}
	if burst <= 0 {
		burst = 20
	}
	if now == nil {
		now = time.Now
	}
	return &IPRateLimiter{
		rate:    rate,
		burst:   burst,
		now:     now,
		buckets: make(map[string]*TokenBucket),
	}
}

// Allow takes a token from the bucket of key.
func (l *IPRateLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	bucket, exists := l.buckets[key]
	if !exists {
		bucket = NewTokenBucket(l.rate, l.burst, now)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow(now)
}

// Sweep drops buckets idle for longer than maxIdle. An idle bucket is full,
// so recreating it later changes nothing.
func (l *IPRateLimiter) Sweep(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, bucket := range l.buckets {
		if bucket.idleSince().Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Middleware rejects requests over the limit with RATE_LIMITED.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			response.FailWithKind(c, code.RateLimited, "Too many requests, slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}
