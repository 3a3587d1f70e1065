package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neura/backend/internal/domain"
	"neura/backend/internal/payment"
	"neura/backend/internal/storage/memory"
)

func newBillingFixture(t *testing.T) (*BillingService, *memory.Store, *payment.MockProvider) {
	t.Helper()
	store := memory.NewStore()
	provider := payment.NewMockProvider()
	svc := NewBillingService(store, domain.DefaultCatalog(), provider, zap.NewNop())
	return svc, store, provider
}

func TestSubscribePaidPlan(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.PlanFree)

	sub, err := svc.Subscribe(ctx, user.ID, "starter")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	assert.NotEmpty(t, sub.ProviderRef)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), sub.CurrentPeriodEnd, time.Minute)

	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "starter", got.Plan)
}

func TestSubscribeFreePlanSkipsPayment(t *testing.T) {
	svc, store, provider := newBillingFixture(t)
	ctx := context.Background()
	user := seedUser(t, store, "starter")

	// 即使支付被拒，免费计划也能订阅成功
	provider.SetDeclined(true)
	sub, err := svc.Subscribe(ctx, user.ID, domain.PlanFree)
	require.NoError(t, err)
	assert.Empty(t, sub.ProviderRef)
}

func TestSubscribePaymentDeclinedLeavesStateUntouched(t *testing.T) {
	svc, store, provider := newBillingFixture(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.PlanFree)

	provider.SetDeclined(true)
	_, err := svc.Subscribe(ctx, user.ID, "professional")
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrPaymentDeclined)

	// 本地状态不变
	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, got.Plan)
	_, err = svc.Current(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestSubscribeUnknownPlan(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	user := seedUser(t, store, domain.PlanFree)

	_, err := svc.Subscribe(context.Background(), user.ID, "platinum")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestSubscribeSupersedesPrevious(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.PlanFree)

	_, err := svc.Subscribe(ctx, user.ID, "starter")
	require.NoError(t, err)
	second, err := svc.Subscribe(ctx, user.ID, "professional")
	require.NoError(t, err)

	current, err := svc.Current(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.Equal(t, "professional", current.PlanID)
}

func TestCancelSubscription(t *testing.T) {
	svc, store, provider := newBillingFixture(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.PlanFree)

	sub, err := svc.Subscribe(ctx, user.ID, "starter")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, cancelled.Status)
	assert.Contains(t, provider.Cancelled(), sub.ProviderRef)

	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, got.Plan)

	_, err = svc.Cancel(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestCheckFreePlanWithinQuota(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.PlanFree)
	_, err := svc.Subscribe(ctx, user.ID, domain.PlanFree)
	require.NoError(t, err)

	decision, err := svc.Check(ctx, user.ID, domain.PlanFree)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(100), decision.MonthlyLimit)
	assert.Equal(t, int64(100), decision.Remaining)
}

func TestCheckFreePlanWithoutSubscriptionDenied(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	user := seedUser(t, store, domain.PlanFree)

	// 免费档同样要求持有 active 订阅
	decision, err := svc.Check(context.Background(), user.ID, domain.PlanFree)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenyNoSubscription, decision.Reason)
}

func TestCheckQuotaExceeded(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.PlanFree)
	_, err := svc.Subscribe(ctx, user.ID, domain.PlanFree)
	require.NoError(t, err)

	month := domain.MonthKey(time.Now())
	for i := 0; i < 100; i++ {
		require.NoError(t, store.IncrementMonthlyUsage(ctx, user.ID, month))
	}

	decision, err := svc.Check(ctx, user.ID, domain.PlanFree)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenyQuotaExceeded, decision.Reason)
	assert.Equal(t, int64(0), decision.Remaining)
}

func TestCheckLastRequestBeforeLimit(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.PlanFree)
	_, err := svc.Subscribe(ctx, user.ID, domain.PlanFree)
	require.NoError(t, err)

	// 已用 99 次，本月还剩最后 1 次可用
	month := domain.MonthKey(time.Now())
	for i := 0; i < 99; i++ {
		require.NoError(t, store.IncrementMonthlyUsage(ctx, user.ID, month))
	}

	decision, err := svc.Check(ctx, user.ID, domain.PlanFree)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(99), decision.CurrentUsage)
	assert.Equal(t, int64(1), decision.Remaining)
}

func TestCheckUnknownPlanDenied(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	user := seedUser(t, store, "platinum")

	decision, err := svc.Check(context.Background(), user.ID, "platinum")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenyUnknownPlan, decision.Reason)
}

func TestCheckPaidPlanWithoutSubscriptionDenied(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	user := seedUser(t, store, "starter")

	decision, err := svc.Check(context.Background(), user.ID, "starter")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenyNoSubscription, decision.Reason)
}

func TestCheckExpiredSubscriptionDenied(t *testing.T) {
	svc, store, _ := newBillingFixture(t)
	ctx := context.Background()
	user := seedUser(t, store, domain.PlanFree)

	// 订阅生效于 40 天前，计费周期已结束
	svc.now = func() time.Time { return time.Now().Add(-40 * 24 * time.Hour) }
	_, err := svc.Subscribe(ctx, user.ID, "starter")
	require.NoError(t, err)

	svc.now = time.Now
	decision, err := svc.Check(ctx, user.ID, "starter")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenySubscriptionEnded, decision.Reason)
}
