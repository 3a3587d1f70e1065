package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neura/backend/internal/domain"
	"neura/backend/internal/storage"
)

// RecordInput 一次调用的计量输入
type RecordInput struct {
	KeyID      string
	UserID     string
	Endpoint   string
	Latency    time.Duration
	StatusCode int
}

// UsageService 用量计量服务
type UsageService struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time // 可注入时钟，便于测试月份边界
}

// NewUsageService 创建用量服务
func NewUsageService(store storage.Store, logger *zap.Logger) *UsageService {
	return &UsageService{store: store, logger: logger, now: time.Now}
}

// Record 记录一次已认证调用
//
// 请求处理完成后调用，无论业务处理成功与否都计量。
// 事件写入与密钥计数在存储层同一原子操作内完成，
// 月度聚合桶的自增同样由存储层原子执行。
func (s *UsageService) Record(ctx context.Context, in RecordInput) error {
	now := s.now()
	event := &domain.UsageEvent{
		ID:         uuid.New().String(),
		APIKeyID:   in.KeyID,
		UserID:     in.UserID,
		Endpoint:   in.Endpoint,
		Latency:    in.Latency,
		StatusCode: in.StatusCode,
		CreatedAt:  now,
	}

	if err := s.store.RecordUsage(ctx, event); err != nil {
		return err
	}
	return s.store.IncrementMonthlyUsage(ctx, in.UserID, domain.MonthKey(now))
}

// BucketFor 返回用户当前自然月的聚合桶，无记录时为零值桶
func (s *UsageService) BucketFor(ctx context.Context, userID string) (*domain.MonthlyUsage, error) {
	return s.store.GetMonthlyUsage(ctx, userID, domain.MonthKey(s.now()))
}

// Summary 返回用户的全量使用统计
func (s *UsageService) Summary(ctx context.Context, userID string) (*domain.UsageSummary, error) {
	return s.store.GetUserUsageSummary(ctx, userID)
}

// RecentEvents 按时间倒序返回用户最近的调用记录
func (s *UsageService) RecentEvents(ctx context.Context, userID string, limit int) ([]*domain.UsageEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListRecentEvents(ctx, userID, limit)
}

// PurgeExpired 删除超过保留期的用量事件，供后台定期调用
func (s *UsageService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.store.DeleteEventsBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("purged expired usage events", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
