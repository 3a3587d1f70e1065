package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neura/backend/internal/domain"
	"neura/backend/internal/payment"
	"neura/backend/internal/storage"
)

var (
	// ErrUnknownPlan 计划不存在于目录
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrNoActiveSubscription 用户没有生效中的订阅
	ErrNoActiveSubscription = errors.New("no active subscription")
)

// 订阅的计费周期长度
const subscriptionPeriod = 30 * 24 * time.Hour

// 配额拒绝原因
const (
	DenyQuotaExceeded     = "monthly quota exceeded"
	DenyUnknownPlan       = "unknown plan"
	DenyNoSubscription    = "no active subscription"
	DenySubscriptionEnded = "subscription period ended"
)

// BillingService 订阅与配额服务
type BillingService struct {
	store    storage.Store
	catalog  *domain.Catalog
	provider payment.Provider
	logger   *zap.Logger
	now      func() time.Time
}

// NewBillingService 创建订阅服务
func NewBillingService(store storage.Store, catalog *domain.Catalog, provider payment.Provider, logger *zap.Logger) *BillingService {
	return &BillingService{
		store:    store,
		catalog:  catalog,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Plans 返回计划目录
func (s *BillingService) Plans() []domain.Plan {
	return s.catalog.List()
}

// Subscribe 将用户订阅到指定计划
//
// 付费计划先经支付服务商扣费，扣费失败时本地状态不变；
// 扣费成功后在单个存储操作内取代旧订阅、写入新订阅并更新用户计划。
func (s *BillingService) Subscribe(ctx context.Context, userID, planID string) (*domain.Subscription, error) {
	plan, ok := s.catalog.Get(planID)
	if !ok {
		return nil, ErrUnknownPlan
	}

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

	var providerRef string
	if plan.Price > 0 {
		result, err := s.provider.Subscribe(ctx, payment.ChargeRequest{
			UserID: userID,
			PlanID: planID,
			Amount: plan.Price,
		})
		if err != nil {
			return nil, fmt.Errorf("subscription payment failed: %w", err)
		}
		providerRef = result.ProviderRef
	}

	now := s.now()
	sub := &domain.Subscription{
		ID:                 uuid.New().String(),
		UserID:             userID,
		PlanID:             planID,
		ProviderRef:        providerRef,
		Status:             domain.SubscriptionActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(subscriptionPeriod),
		CreatedAt:          now,
	}
	if err := s.store.ActivateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription activated",
		zap.String("user_id", userID),
		zap.String("plan_id", planID),
		zap.String("subscription_id", sub.ID))
	return sub, nil
}

// Cancel 取消用户当前订阅并回落到 free 计划
func (s *BillingService) Cancel(ctx context.Context, userID string) (*domain.Subscription, error) {
	active, err := s.store.GetActiveSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}

	if active.ProviderRef != "" {
		if err := s.provider.Cancel(ctx, active.ProviderRef); err != nil {
			return nil, fmt.Errorf("provider cancellation failed: %w", err)
		}
	}

	cancelled, err := s.store.CancelActiveSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}

	s.logger.Info("subscription cancelled",
		zap.String("user_id", userID),
		zap.String("subscription_id", cancelled.ID))
	return cancelled, nil
}

// Current 返回用户当前生效中的订阅
func (s *BillingService) Current(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := s.store.GetActiveSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}
	return sub, nil
}

// Check 判断用户本月是否还可以发起调用
//
// 拒绝是正常的业务结果而非错误：返回的决策携带拒绝原因与
// 当前用量，error 只表示存储层故障。
func (s *BillingService) Check(ctx context.Context, userID, planID string) (domain.QuotaDecision, error) {
	plan, ok := s.catalog.Get(planID)
	if !ok {
		return domain.QuotaDenied(DenyUnknownPlan, 0, 0, planID), nil
	}

	now := s.now()
	bucket, err := s.store.GetMonthlyUsage(ctx, userID, domain.MonthKey(now))
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	current := bucket.RequestsCount

	// 所有计划都要求存在未到期的 active 订阅，免费档也不例外，
	// 注册流程会自动为新用户开通免费订阅
	sub, err := s.store.GetActiveSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.QuotaDenied(DenyNoSubscription, current, plan.RequestsPerMonth, planID), nil
		}
		return domain.QuotaDecision{}, err
	}
	if sub.CurrentPeriodEnd.Before(now) {
		return domain.QuotaDenied(DenySubscriptionEnded, current, plan.RequestsPerMonth, planID), nil
	}

	if current >= plan.RequestsPerMonth {
		return domain.QuotaDenied(DenyQuotaExceeded, current, plan.RequestsPerMonth, planID), nil
	}
	return domain.QuotaAllowed(current, plan.RequestsPerMonth, planID), nil
}
