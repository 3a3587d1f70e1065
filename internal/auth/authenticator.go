package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"neura/backend/internal/auth/jwt"
	"neura/backend/internal/storage"
)

// 认证方式
const (
	MethodAPIKey = "api_key"
	MethodJWT    = "jwt"
)

var (
	// ErrUnauthenticated 凭证无效、已吊销或所属用户已停用
	ErrUnauthenticated = errors.New("invalid or revoked credential")
)

// Identity 一次认证成功后的调用方身份
type Identity struct {
	UserID     string // 用户ID
	Email      string // 用户邮箱
	Plan       string // 用户当前计划
	Method     string // 认证方式: api_key 或 jwt
	KeyID      string // API密钥ID，仅 api_key 方式有值
	RateLimit  int    // 密钥限流阈值（每分钟），仅 api_key 方式有值
	UsageCount int64  // 密钥累计调用次数，仅 api_key 方式有值
}

// TokenBlacklist JWT 注销黑名单查询接口
type TokenBlacklist interface {
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator 统一凭证认证器
//
// 接受两类凭证：API密钥（neura_ 前缀）和 JWT 访问令牌，
// 按前缀分流，认证失败一律返回 ErrUnauthenticated，不区分失败原因。
type Authenticator struct {
	store     storage.Store
	jwt       *jwt.Manager
	blacklist TokenBlacklist // 可为 nil，表示不启用注销黑名单
	logger    *zap.Logger
}

// NewAuthenticator 创建认证器，blacklist 传 nil 时跳过黑名单检查
func NewAuthenticator(store storage.Store, jwtManager *jwt.Manager, blacklist TokenBlacklist, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		store:     store,
		jwt:       jwtManager,
		blacklist: blacklist,
		logger:    logger,
	}
}

// Authenticate 校验凭证并返回调用方身份
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, ErrUnauthenticated
	}
	if IsAPIKey(credential) {
		return a.authenticateAPIKey(ctx, credential)
	}
	return a.authenticateJWT(ctx, credential)
}

func (a *Authenticator) authenticateAPIKey(ctx context.Context, secret string) (*Identity, error) {
	key, err := a.store.GetAPIKeyByHash(ctx, HashAPIKey(secret))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !key.IsActive {
		return nil, ErrUnauthenticated
	}

	user, err := a.store.GetUserByID(ctx, key.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUnauthenticated
	}

	return &Identity{
		UserID:     user.ID,
		Email:      user.Email,
		Plan:       user.Plan,
		Method:     MethodAPIKey,
		KeyID:      key.ID,
		RateLimit:  key.RateLimit,
		UsageCount: key.UsageCount,
	}, nil
}

func (a *Authenticator) authenticateJWT(ctx context.Context, token string) (*Identity, error) {
	claims, err := a.jwt.ValidateToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if a.blacklist != nil && claims.ID != "" {
		revoked, err := a.blacklist.IsTokenBlacklisted(ctx, claims.ID)
		if err != nil {
			// 黑名单不可达时放行令牌本身有效的请求，只记录告警
			a.logger.Warn("token blacklist unavailable", zap.Error(err))
		} else if revoked {
			return nil, ErrUnauthenticated
		}
	}

	user, err := a.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUnauthenticated
	}

	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Plan:   user.Plan,
		Method: MethodJWT,
	}, nil
}
