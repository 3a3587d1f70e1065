package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neura/backend/internal/config"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:        "test-secret-key-at-least-32-characters",
		Issuer:        "neura",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	}
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := NewManager(testConfig())

	pair, err := m.GenerateTokenPair("user-1", "alice@example.com", "starter")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := m.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "starter", claims.Plan)
	assert.Equal(t, "neura", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	m := NewManager(testConfig())
	pair, err := m.GenerateTokenPair("user-1", "alice@example.com", "free")
	require.NoError(t, err)

	other := NewManager(config.JWTConfig{
		Secret:        "another-secret-key-also-32-characters!!",
		Issuer:        "neura",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
	})
	_, err = other.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := testConfig()
	cfg.AccessExpiry = -time.Minute
	m := NewManager(cfg)

	pair, err := m.GenerateTokenPair("user-1", "alice@example.com", "free")
	require.NoError(t, err)

	_, err = m.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	cfg := testConfig()
	cfg.Issuer = "someone-else"
	issuer := NewManager(cfg)

	pair, err := issuer.GenerateTokenPair("user-1", "alice@example.com", "free")
	require.NoError(t, err)

	m := NewManager(testConfig())
	_, err = m.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	m := NewManager(testConfig())
	_, err := m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
