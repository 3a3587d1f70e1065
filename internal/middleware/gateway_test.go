package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neura/backend/internal/auth"
	"neura/backend/internal/auth/jwt"
	"neura/backend/internal/config"
	"neura/backend/internal/domain"
	"neura/backend/internal/monitoring"
	"neura/backend/internal/payment"
	"neura/backend/internal/service"
	"neura/backend/internal/storage"
	"neura/backend/internal/storage/memory"
)

type gatewayFixture struct {
	store   storage.Store
	keys    *service.KeyService
	usage   *service.UsageService
	jwt     *jwt.Manager
	router  *gin.Engine
	gateway *Gateway
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	return newGatewayFixtureWithStore(t, memory.NewStore())
}

func newGatewayFixtureWithStore(t *testing.T, store storage.Store) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	jwtManager := jwt.NewManager(config.JWTConfig{
		Secret:        "test-secret-key-at-least-32-characters",
		Issuer:        "neura",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
	})

	authenticator := auth.NewAuthenticator(store, jwtManager, nil, logger)
	billing := service.NewBillingService(store, domain.DefaultCatalog(), payment.NewMockProvider(), logger)
	usage := service.NewUsageService(store, logger)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	gw := NewGateway(authenticator, billing, usage, NewMemoryLimiter(), metrics, logger)

	router := gin.New()
	router.Use(gw.Handle())
	router.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})

	return &gatewayFixture{
		store:   store,
		keys:    service.NewKeyService(store, logger),
		usage:   usage,
		jwt:     jwtManager,
		router:  router,
		gateway: gw,
	}
}

func (f *gatewayFixture) seedUserWithKey(t *testing.T, plan string) (*domain.User, *service.IssuedKey) {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{
		ID:       "user-" + plan,
		Email:    plan + "@example.com",
		Plan:     plan,
		IsActive: true,
	}
	require.NoError(t, f.store.CreateUser(ctx, user))

	// 配额检查要求每个用户都有 active 订阅
	now := time.Now()
	require.NoError(t, f.store.ActivateSubscription(ctx, &domain.Subscription{
		ID:                 "sub-" + plan,
		UserID:             user.ID,
		PlanID:             plan,
		Status:             domain.SubscriptionActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(30 * 24 * time.Hour),
		CreatedAt:          now,
	}))

	issued, err := f.keys.Issue(ctx, user.ID, "test")
	require.NoError(t, err)
	return user, issued
}

func (f *gatewayFixture) do(credential string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestGatewayMissingCredential(t *testing.T) {
	f := newGatewayFixture(t)
	w := f.do("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGatewayAPIKeyFlowRecordsUsage(t *testing.T) {
	f := newGatewayFixture(t)
	user, issued := f.seedUserWithKey(t, domain.PlanFree)

	w := f.do(issued.Secret)
	assert.Equal(t, http.StatusOK, w.Code)

	bucket, err := f.usage.BucketFor(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bucket.RequestsCount)

	key, err := f.store.GetAPIKey(context.Background(), issued.Key.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), key.UsageCount)
	require.NotNil(t, key.LastUsedAt)
}

func TestGatewayXAPIKeyHeader(t *testing.T) {
	f := newGatewayFixture(t)
	_, issued := f.seedUserWithKey(t, domain.PlanFree)

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-API-Key", issued.Secret)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGatewayRevokedKeyRejected(t *testing.T) {
	f := newGatewayFixture(t)
	user, issued := f.seedUserWithKey(t, domain.PlanFree)

	require.NoError(t, f.keys.Revoke(context.Background(), user.ID, issued.Key.ID))

	w := f.do(issued.Secret)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGatewayQuotaExceeded(t *testing.T) {
	f := newGatewayFixture(t)
	user, issued := f.seedUserWithKey(t, domain.PlanFree)

	ctx := context.Background()
	month := domain.MonthKey(time.Now())
	for i := 0; i < 100; i++ {
		require.NoError(t, f.store.IncrementMonthlyUsage(ctx, user.ID, month))
	}

	w := f.do(issued.Secret)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "monthly quota exceeded")

	// 被配额拒绝的调用不计量
	bucket, err := f.usage.BucketFor(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), bucket.RequestsCount)
}

func TestGatewayJWTPathSkipsUsageEvent(t *testing.T) {
	f := newGatewayFixture(t)
	user, _ := f.seedUserWithKey(t, domain.PlanFree)

	pair, err := f.jwt.GenerateTokenPair(user.ID, user.Email, user.Plan)
	require.NoError(t, err)

	w := f.do(pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// JWT 调用不产生密钥用量
	bucket, err := f.usage.BucketFor(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bucket.RequestsCount)

	summary, err := f.usage.Summary(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalRequests)
}

// cancelAwareStore 模拟在上下文取消后拒绝写入的存储后端
type cancelAwareStore struct {
	storage.Store
}

func (s cancelAwareStore) RecordUsage(ctx context.Context, event *domain.UsageEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.RecordUsage(ctx, event)
}

func (s cancelAwareStore) IncrementMonthlyUsage(ctx context.Context, userID, month string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.IncrementMonthlyUsage(ctx, userID, month)
}

func TestGatewayRecordsUsageAfterClientDisconnect(t *testing.T) {
	f := newGatewayFixtureWithStore(t, cancelAwareStore{Store: memory.NewStore()})
	user, issued := f.seedUserWithKey(t, domain.PlanFree)

	// 业务处理期间客户端断开，请求上下文随之取消
	ctx, cancel := context.WithCancel(context.Background())
	f.router.GET("/api/slow", func(c *gin.Context) {
		cancel()
		c.JSON(http.StatusOK, gin.H{"done": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/slow", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+issued.Secret)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	bucket, err := f.usage.BucketFor(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bucket.RequestsCount)
}

func TestMemoryLimiterWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "key-1", 2)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "key-1", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// 其他密钥不受影响；零阈值表示不限流
	ok, err = limiter.Allow(ctx, "key-2", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = limiter.Allow(ctx, "key-1", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
