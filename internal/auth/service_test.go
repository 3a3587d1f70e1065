package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neura/backend/internal/domain"
	"neura/backend/internal/storage/memory"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.NewStore()
	return NewService(store, zap.NewNop()), store
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, domain.PlanFree, user.Plan)
	assert.True(t, user.IsActive)
	assert.NotEmpty(t, user.ID)
	// 密码只保存哈希
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, CheckPassword("password123", user.PasswordHash))
}

func TestRegisterInvalidEmail(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(context.Background(), "not-an-email", "password123")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(context.Background(), "alice@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "password456")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	user, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotNil(t, user.LastLoginAt)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestService()
	// 不存在的账户与密码错误返回同一错误
	_, err := svc.Login(context.Background(), "ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledUser(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, store.DeactivateUser(ctx, user.ID))

	_, err = svc.Login(ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "password123", "newpassword456"))

	_, err = svc.Login(ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "alice@example.com", "newpassword456")
	assert.NoError(t, err)
}

func TestChangePasswordWrongOld(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, "wrong", "newpassword456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
