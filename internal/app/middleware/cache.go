package middleware

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"telemetry-http-service/internal/domain/services"
	Logger "telemetry-http-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ResponseCache stores rendered JSON bodies of successful GET responses.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration)
}

// 缓存条目
type cacheEntry struct {
	Content    []byte
	Expiration time.Time
}

// MemoryResponseCache 进程内响应缓存
type MemoryResponseCache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	now   func() time.Time
}

// NewMemoryResponseCache creates an empty cache.
func NewMemoryResponseCache() *MemoryResponseCache {
	return &MemoryResponseCache{
		items: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

func (m *MemoryResponseCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	entry, found := m.items[key]
	m.mu.RUnlock()

	if !found || !entry.Expiration.After(m.now()) {
		return nil, false
	}
	return entry.Content, true
}

func (m *MemoryResponseCache) Set(_ context.Context, key string, body []byte, ttl time.Duration) {
	m.mu.Lock()
	m.items[key] = cacheEntry{Content: body, Expiration: m.now().Add(ttl)}
	m.mu.Unlock()
}

// Sweep 清理过期缓存
func (m *MemoryResponseCache) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.items {
		if !entry.Expiration.After(now) {
			delete(m.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryResponseCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// RedisResponseCache shares cached responses between instances.
type RedisResponseCache struct {
	redis  services.InterfaceRedisService
	prefix string
}

// NewRedisResponseCache creates a cache on top of the Redis service.
func NewRedisResponseCache(redis services.InterfaceRedisService) *RedisResponseCache {
	return &RedisResponseCache{redis: redis, prefix: "respcache:"}
}

// Redis errors count as misses.
func (r *RedisResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, found, err := r.redis.GetBytes(ctx, r.prefix+key)
	if err != nil {
		Logger.Warning("response cache read failed: %v", err)
		return nil, false
	}
	return body, found
}

func (r *RedisResponseCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if err := r.redis.SetBytes(ctx, r.prefix+key, body, ttl); err != nil {
		Logger.Warning("response cache write failed: %v", err)
	}
}

// CacheKey hashes the path and the sorted query string.
func CacheKey(c *gin.Context) string {
	queryParams := c.Request.URL.Query()
	queryKeys := make([]string, 0, len(queryParams))
	for key := range queryParams {
		queryKeys = append(queryKeys, key)
	}
	sort.Strings(queryKeys)

	var b strings.Builder
	b.WriteString(c.Request.URL.Path)
	b.WriteByte('?')
	for _, key := range queryKeys {
		values := append([]string(nil), queryParams[key]...)
		sort.Strings(values)
		for _, value := range values {
			b.WriteString(key + "=" + value + "&")
		}
	}

	hasher := md5.New()
	hasher.Write([]byte(b.String()))
	return hex.EncodeToString(hasher.Sum(nil))
}

// Cache serves GET responses from store for ttl. Only 200 responses are
// stored. A non-positive ttl disables the middleware.
func Cache(store ResponseCache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ttl <= 0 || store == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := CacheKey(c)
		if content, found := store.Get(c.Request.Context(), key); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", content)
			c.Abort()
			return
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		if writer.Status() == http.StatusOK {
			store.Set(c.Request.Context(), key, writer.body.Bytes(), ttl)
		}
	}
}

// 自定义响应写入器，用于捕获响应内容
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 重写Write方法，同时写入原始响应和缓冲区
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// WriteString 重写WriteString方法，同时写入原始响应和缓冲区
func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
