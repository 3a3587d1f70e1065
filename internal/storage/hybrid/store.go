// Package hybrid 组合主存储与 Redis 辅助存储
//
// 业务实体走主存储（内存或 SQL），限流计数和 JWT 黑名单走 Redis。
package hybrid

import (
	"context"

	"neura/backend/internal/storage"
	redisstore "neura/backend/internal/storage/redis"
)

// Store 组合存储
type Store struct {
	storage.Store
	cache *redisstore.Store
}

// NewStore 以主存储和 Redis 辅助存储构建组合存储
func NewStore(primary storage.Store, cache *redisstore.Store) *Store {
	return &Store{Store: primary, cache: cache}
}

// Cache 返回 Redis 辅助存储
func (s *Store) Cache() *redisstore.Store {
	return s.cache
}

// Close 依次关闭 Redis 与主存储
func (s *Store) Close() error {
	cacheErr := s.cache.Close()
	if err := s.Store.Close(); err != nil {
		return err
	}
	return cacheErr
}

// Health 主存储与 Redis 均可达才视为健康
func (s *Store) Health(ctx context.Context) error {
	if err := s.Store.Health(ctx); err != nil {
		return err
	}
	return s.cache.Health(ctx)
}
