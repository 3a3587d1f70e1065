package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neura/backend/internal/auth/jwt"
	"neura/backend/internal/config"
	"neura/backend/internal/domain"
	"neura/backend/internal/storage/memory"
)

type stubBlacklist struct {
	revoked map[string]bool
}

func (s *stubBlacklist) IsTokenBlacklisted(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], nil
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *memory.Store, *jwt.Manager) {
	t.Helper()
	store := memory.NewStore()
	manager := jwt.NewManager(config.JWTConfig{
		Secret:        "test-secret-key-at-least-32-characters",
		Issuer:        "neura",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
	})
	return NewAuthenticator(store, manager, nil, zap.NewNop()), store, manager
}

func seedUserWithKey(t *testing.T, store *memory.Store) (*domain.User, *domain.APIKey, string) {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{
		ID:       uuid.New().String(),
		Email:    "alice@example.com",
		Plan:     "starter",
		IsActive: true,
	}
	require.NoError(t, store.CreateUser(ctx, user))

	secret, err := GenerateAPIKey()
	require.NoError(t, err)

	key := &domain.APIKey{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		KeyHash:   HashAPIKey(secret),
		KeyPrefix: APIKeyDisplayPrefix(secret),
		RateLimit: 1000,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveAPIKey(ctx, key))
	return user, key, secret
}

func TestGenerateAPIKeyFormat(t *testing.T) {
	secret, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.Len(t, secret, len(APIKeySecretPrefix)+32)
	assert.True(t, IsAPIKey(secret))
	for _, r := range secret[len(APIKeySecretPrefix):] {
		assert.Contains(t, keyAlphabet, string(r))
	}

	// 两次生成不应相同
	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestAuthenticateAPIKey(t *testing.T) {
	a, store, _ := newTestAuthenticator(t)
	user, key, secret := seedUserWithKey(t, store)

	identity, err := a.Authenticate(context.Background(), secret)
	require.NoError(t, err)
	assert.Equal(t, MethodAPIKey, identity.Method)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, "starter", identity.Plan)
	assert.Equal(t, key.ID, identity.KeyID)
	assert.Equal(t, 1000, identity.RateLimit)
}

func TestAuthenticateRevokedAPIKey(t *testing.T) {
	a, store, _ := newTestAuthenticator(t)
	_, key, secret := seedUserWithKey(t, store)

	require.NoError(t, store.DeactivateAPIKey(context.Background(), key.ID))

	_, err := a.Authenticate(context.Background(), secret)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateAPIKeyDisabledUser(t *testing.T) {
	a, store, _ := newTestAuthenticator(t)
	user, _, secret := seedUserWithKey(t, store)

	require.NoError(t, store.DeactivateUser(context.Background(), user.ID))

	_, err := a.Authenticate(context.Background(), secret)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateUnknownAPIKey(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	_, err := a.Authenticate(context.Background(), "neura_00000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateJWT(t *testing.T) {
	a, store, manager := newTestAuthenticator(t)
	user, _, _ := seedUserWithKey(t, store)

	pair, err := manager.GenerateTokenPair(user.ID, user.Email, user.Plan)
	require.NoError(t, err)

	identity, err := a.Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, MethodJWT, identity.Method)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Empty(t, identity.KeyID)
}

func TestAuthenticateBlacklistedJWT(t *testing.T) {
	store := memory.NewStore()
	manager := jwt.NewManager(config.JWTConfig{
		Secret:        "test-secret-key-at-least-32-characters",
		Issuer:        "neura",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
	})
	blacklist := &stubBlacklist{revoked: map[string]bool{}}
	a := NewAuthenticator(store, manager, blacklist, zap.NewNop())

	user, _, _ := seedUserWithKey(t, store)
	pair, err := manager.GenerateTokenPair(user.ID, user.Email, user.Plan)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	blacklist.revoked[claims.ID] = true

	_, err = a.Authenticate(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateEmptyCredential(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	_, err := a.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
