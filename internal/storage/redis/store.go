// Package redis 提供基于 Redis 的辅助存储
//
// 承载两类短生命周期数据：密钥级限流计数和 JWT 注销黑名单。
// 业务实体仍由主存储（内存或 SQL）持有。
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"neura/backend/internal/config"
)

// Store Redis 辅助存储
type Store struct {
	client *redis.Client
}

// NewStore 建立 Redis 连接并验证可达性
func NewStore(cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient 以已有连接构建存储，主要用于测试
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// ========== 限流计数 ==========

// IncrementRateCounter 对（密钥，时间窗）计数器加一并返回当前值
//
// 计数器在窗口结束后自动过期，首次自增时设置 TTL。
func (s *Store) IncrementRateCounter(ctx context.Context, keyID string, window time.Duration) (int64, error) {
	bucket := time.Now().Unix() / int64(window.Seconds())
	counterKey := fmt.Sprintf("ratelimit:%s:%d", keyID, bucket)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// ========== JWT 黑名单 ==========

// BlacklistToken 将令牌加入注销黑名单，TTL 与令牌剩余有效期一致
func (s *Store) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // 已过期的令牌无需入黑名单
	}
	return s.client.Set(ctx, "jwt:blacklist:"+tokenID, "1", ttl).Err()
}

// IsTokenBlacklisted 判断令牌是否已注销
func (s *Store) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, "jwt:blacklist:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ========== 生命周期 ==========

// Close 关闭 Redis 连接
func (s *Store) Close() error {
	return s.client.Close()
}

// Health 健康检查
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
