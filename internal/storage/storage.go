package storage

import (
	"context"
	"errors"
	"time"

	"neura/backend/internal/domain"
)

// 存储层通用错误
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// UserRepository 用户存储接口
type UserRepository interface {
	// CreateUser 创建用户，邮箱冲突返回 ErrAlreadyExists
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByID 按ID查询用户
	GetUserByID(ctx context.Context, id string) (*domain.User, error)

	// GetUserByEmail 按邮箱查询用户
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateUser 更新用户记录
	UpdateUser(ctx context.Context, user *domain.User) error

	// UpdateUserPlan 更新用户当前计划
	UpdateUserPlan(ctx context.Context, userID, planID string) error

	// UpdateLastLogin 记录最近登录时间
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// DeactivateUser 停用用户
	DeactivateUser(ctx context.Context, userID string) error
}

// APIKeyRepository API密钥存储接口
type APIKeyRepository interface {
	// SaveAPIKey 保存密钥记录（只含摘要，不含明文）
	SaveAPIKey(ctx context.Context, key *domain.APIKey) error

	// GetAPIKey 按ID查询密钥
	GetAPIKey(ctx context.Context, id string) (*domain.APIKey, error)

	// GetAPIKeyByHash 按摘要查询密钥，用于认证路径
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)

	// ListAPIKeysByUserID 列出用户的全部密钥
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*domain.APIKey, error)

	// DeactivateAPIKey 吊销密钥，幂等
	DeactivateAPIKey(ctx context.Context, id string) error
}

// UsageRepository 用量存储接口
type UsageRepository interface {
	// RecordUsage 原子地写入用量事件并自增对应密钥的累计计数和最近使用时间
	RecordUsage(ctx context.Context, event *domain.UsageEvent) error

	// IncrementMonthlyUsage 原子地对（用户，月份）聚合桶加一，桶不存在时创建
	IncrementMonthlyUsage(ctx context.Context, userID, month string) error

	// GetMonthlyUsage 查询指定月份的聚合计数，无记录时返回零值桶
	GetMonthlyUsage(ctx context.Context, userID, month string) (*domain.MonthlyUsage, error)

	// GetUserUsageSummary 统计用户全量用量
	GetUserUsageSummary(ctx context.Context, userID string) (*domain.UsageSummary, error)

	// ListRecentEvents 按时间倒序返回用户最近的用量事件
	ListRecentEvents(ctx context.Context, userID string, limit int) ([]*domain.UsageEvent, error)

	// DeleteEventsBefore 删除给定时间之前的用量事件，返回删除条数
	DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

// SubscriptionRepository 订阅存储接口
type SubscriptionRepository interface {
	// ActivateSubscription 原子地取代旧的 active 订阅并写入新订阅，同时更新用户计划
	ActivateSubscription(ctx context.Context, sub *domain.Subscription) error

	// GetActiveSubscription 查询用户当前 active 订阅，不存在返回 ErrNotFound
	GetActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error)

	// CancelActiveSubscription 取消 active 订阅并将用户计划重置为 free，
	// 无 active 订阅时返回 ErrNotFound
	CancelActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error)
}

// Store 聚合全部存储接口
type Store interface {
	UserRepository
	APIKeyRepository
	UsageRepository
	SubscriptionRepository

	// Close 关闭存储连接
	Close() error

	// Health 健康检查
	Health(ctx context.Context) error
}
