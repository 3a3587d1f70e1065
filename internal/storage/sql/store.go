// Package sql 提供基于 GORM 的关系型数据库存储实现
//
// 支持 PostgreSQL 和 MySQL，通过配置中的 Type 字段选择驱动。
package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"neura/backend/internal/config"
	"neura/backend/internal/domain"
	"neura/backend/internal/storage"
)

// Store 关系型数据库存储实现
type Store struct {
	db *gorm.DB
}

// NewStore 按配置建立数据库连接并自动迁移表结构
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Type) {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.APIKey{},
		&domain.UsageEvent{},
		&domain.MonthlyUsage{},
		&domain.Subscription{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB 以已有连接构建存储，主要用于测试
func NewStoreWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrAlreadyExists
	}
	return err
}

// ========== UserRepository ==========

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GetUserByID 按ID查询用户
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetUserByEmail 按邮箱查询用户
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// UpdateUser 更新用户记录
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"email":         strings.ToLower(user.Email),
			"password_hash": user.PasswordHash,
			"plan":          user.Plan,
			"is_active":     user.IsActive,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateUserPlan 更新用户当前计划
func (s *Store) UpdateUserPlan(ctx context.Context, userID, planID string) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"plan":       planID,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateLastLogin 记录最近登录时间
func (s *Store) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Update("last_login_at", at)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeactivateUser 停用用户
func (s *Store) DeactivateUser(ctx context.Context, userID string) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Update("is_active", false)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ========== APIKeyRepository ==========

// SaveAPIKey 保存密钥记录
func (s *Store) SaveAPIKey(ctx context.Context, key *domain.APIKey) error {
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GetAPIKey 按ID查询密钥
func (s *Store) GetAPIKey(ctx context.Context, id string) (*domain.APIKey, error) {
	var key domain.APIKey
	if err := s.db.WithContext(ctx).First(&key, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &key, nil
}

// GetAPIKeyByHash 按摘要查询密钥
func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	var key domain.APIKey
	if err := s.db.WithContext(ctx).First(&key, "key_hash = ?", keyHash).Error; err != nil {
		return nil, translateError(err)
	}
	return &key, nil
}

// ListAPIKeysByUserID 列出用户的全部密钥，按创建时间倒序
func (s *Store) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	var keys []*domain.APIKey
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error; err != nil {
		return nil, translateError(err)
	}
	return keys, nil
}

// DeactivateAPIKey 吊销密钥
func (s *Store) DeactivateAPIKey(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&domain.APIKey{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ========== UsageRepository ==========

// RecordUsage 在单个事务内写入用量事件并自增密钥计数
func (s *Store) RecordUsage(ctx context.Context, event *domain.UsageEvent) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		result := tx.Model(&domain.APIKey{}).
			Where("id = ?", event.APIKeyID).
			Updates(map[string]interface{}{
				"usage_count":  gorm.Expr("usage_count + 1"),
				"last_used_at": event.CreatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	return translateError(err)
}

// IncrementMonthlyUsage 以 upsert 方式对月度聚合桶加一
//
// ON CONFLICT DO UPDATE 由数据库保证并发下不丢计数，
// 绝不在应用层做读-改-写。
func (s *Store) IncrementMonthlyUsage(ctx context.Context, userID, month string) error {
	bucket := domain.MonthlyUsage{
		ID:            uuid.New().String(),
		UserID:        userID,
		Month:         month,
		RequestsCount: 1,
		CreatedAt:     time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"requests_count": gorm.Expr("requests_count + 1"),
		}),
	}).Create(&bucket).Error
	return translateError(err)
}

// GetMonthlyUsage 查询月度聚合计数，无记录时返回零值桶
func (s *Store) GetMonthlyUsage(ctx context.Context, userID, month string) (*domain.MonthlyUsage, error) {
	var bucket domain.MonthlyUsage
	err := s.db.WithContext(ctx).
		First(&bucket, "user_id = ? AND month = ?", userID, month).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.MonthlyUsage{UserID: userID, Month: month}, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &bucket, nil
}

// GetUserUsageSummary 统计用户全量用量
func (s *Store) GetUserUsageSummary(ctx context.Context, userID string) (*domain.UsageSummary, error) {
	var row struct {
		TotalRequests   int64
		AvgLatencyNs    float64
		UniqueEndpoints int
	}
	err := s.db.WithContext(ctx).Model(&domain.UsageEvent{}).
		Select("COUNT(*) AS total_requests, COALESCE(AVG(latency), 0) AS avg_latency_ns, COUNT(DISTINCT endpoint) AS unique_endpoints").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &domain.UsageSummary{
		TotalRequests:   row.TotalRequests,
		AvgLatencyMs:    row.AvgLatencyNs / float64(time.Millisecond),
		UniqueEndpoints: row.UniqueEndpoints,
	}, nil
}

// ListRecentEvents 按时间倒序返回用户最近的用量事件
func (s *Store) ListRecentEvents(ctx context.Context, userID string, limit int) ([]*domain.UsageEvent, error) {
	var events []*domain.UsageEvent
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, translateError(err)
	}
	return events, nil
}

// DeleteEventsBefore 删除给定时间之前的用量事件
func (s *Store) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&domain.UsageEvent{})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

// ========== SubscriptionRepository ==========

// ActivateSubscription 在单个事务内取代旧 active 订阅并写入新订阅，同时更新用户计划
func (s *Store) ActivateSubscription(ctx context.Context, sub *domain.Subscription) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.User{}).
			Where("id = ?", sub.UserID).
			Updates(map[string]interface{}{
				"plan":       sub.PlanID,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrNotFound
		}

		if err := tx.Model(&domain.Subscription{}).
			Where("user_id = ? AND status = ?", sub.UserID, domain.SubscriptionActive).
			Update("status", domain.SubscriptionCancelled).Error; err != nil {
			return err
		}

		sub.Status = domain.SubscriptionActive
		return tx.Create(sub).Error
	})
	return translateError(err)
}

// GetActiveSubscription 查询用户当前 active 订阅
func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.db.WithContext(ctx).
		First(&sub, "user_id = ? AND status = ?", userID, domain.SubscriptionActive).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &sub, nil
}

// CancelActiveSubscription 在单个事务内取消 active 订阅并将用户计划重置为 free
func (s *Store) CancelActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, "user_id = ? AND status = ?", userID, domain.SubscriptionActive).Error; err != nil {
			return err
		}

		sub.Status = domain.SubscriptionCancelled
		if err := tx.Model(&domain.Subscription{}).
			Where("id = ?", sub.ID).
			Update("status", domain.SubscriptionCancelled).Error; err != nil {
			return err
		}

		return tx.Model(&domain.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"plan":       domain.PlanFree,
				"updated_at": time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &sub, nil
}

// ========== 生命周期 ==========

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 健康检查
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
