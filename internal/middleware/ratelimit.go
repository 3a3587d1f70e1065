package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	redisstore "neura/backend/internal/storage/redis"
)

// KeyLimiter 密钥级限流器
type KeyLimiter interface {
	// Allow 判断该密钥在当前时间窗内是否还可放行一次请求
	Allow(ctx context.Context, keyID string, perMinute int) (bool, error)
}

// MemoryLimiter 进程内限流器，每个密钥一个令牌桶
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewMemoryLimiter 创建进程内限流器
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{limiters: make(map[string]*rate.Limiter)}
}

// Allow 判断是否放行
func (l *MemoryLimiter) Allow(_ context.Context, keyID string, perMinute int) (bool, error) {
	if perMinute <= 0 {
		return true, nil
	}

	l.mu.Lock()
	limiter, ok := l.limiters[keyID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
		l.limiters[keyID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}

// RedisLimiter 基于 Redis 计数的限流器，多实例部署时共享窗口
type RedisLimiter struct {
	cache *redisstore.Store
}

// NewRedisLimiter 创建 Redis 限流器
func NewRedisLimiter(cache *redisstore.Store) *RedisLimiter {
	return &RedisLimiter{cache: cache}
}

// Allow 判断是否放行
func (l *RedisLimiter) Allow(ctx context.Context, keyID string, perMinute int) (bool, error) {
	if perMinute <= 0 {
		return true, nil
	}
	count, err := l.cache.IncrementRateCounter(ctx, keyID, time.Minute)
	if err != nil {
		return false, err
	}
	return count <= int64(perMinute), nil
}
