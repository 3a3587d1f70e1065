// Package service 实现密钥签发、用量计量、配额与订阅的业务逻辑
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neura/backend/internal/auth"
	"neura/backend/internal/domain"
	"neura/backend/internal/storage"
)

var (
	// ErrUserNotFound 目标用户不存在或已停用
	ErrUserNotFound = errors.New("user not found or disabled")
	// ErrKeyNotFound 密钥不存在或不属于该用户
	ErrKeyNotFound = errors.New("api key not found")
)

// IssuedKey 签发结果，Secret 只在此处出现一次
type IssuedKey struct {
	Key    *domain.APIKey `json:"key"`
	Secret string         `json:"secret"` // 密钥明文，仅签发响应返回
}

// KeyService API密钥签发服务
type KeyService struct {
	store  storage.Store
	logger *zap.Logger
}

// NewKeyService 创建密钥服务
func NewKeyService(store storage.Store, logger *zap.Logger) *KeyService {
	return &KeyService{store: store, logger: logger}
}

// Issue 为用户签发新密钥
//
// 返回的 Secret 不落库不落日志，存储层只保留 SHA-256 摘要。
func (s *KeyService) Issue(ctx context.Context, userID, name string) (*IssuedKey, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}

	secret, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	key := &domain.APIKey{
		ID:        uuid.New().String(),
		UserID:    userID,
		KeyHash:   auth.HashAPIKey(secret),
		KeyPrefix: auth.APIKeyDisplayPrefix(secret),
		Name:      name,
		RateLimit: 1000,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveAPIKey(ctx, key); err != nil {
		return nil, err
	}

	s.logger.Info("api key issued",
		zap.String("user_id", userID),
		zap.String("key_id", key.ID),
		zap.String("key_prefix", key.KeyPrefix))
	return &IssuedKey{Key: key, Secret: secret}, nil
}

// List 列出用户的全部密钥（不含明文和摘要）
func (s *KeyService) List(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	return s.store.ListAPIKeysByUserID(ctx, userID)
}

// Revoke 吊销用户的指定密钥
//
// 密钥必须属于该用户，吊销后的密钥认证时被拒绝。
func (s *KeyService) Revoke(ctx context.Context, userID, keyID string) error {
	key, err := s.store.GetAPIKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrKeyNotFound
		}
		return err
	}
	if key.UserID != userID {
		return ErrKeyNotFound
	}

	if err := s.store.DeactivateAPIKey(ctx, keyID); err != nil {
		return err
	}

	s.logger.Info("api key revoked",
		zap.String("user_id", userID),
		zap.String("key_id", keyID))
	return nil
}
