package httptransport

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neura/backend/internal/auth"
	"neura/backend/internal/auth/jwt"
	"neura/backend/internal/domain"
	"neura/backend/internal/middleware"
	"neura/backend/internal/service"
)

// BlacklistWriter JWT 注销黑名单写入接口
type BlacklistWriter interface {
	BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

// AuthHandler 账户相关接口
type AuthHandler struct {
	authSvc   *auth.Service
	keySvc    *service.KeyService
	billing   *service.BillingService
	jwt       *jwt.Manager
	blacklist BlacklistWriter // 可为 nil
	logger    *zap.Logger
}

// NewAuthHandler 创建账户接口处理器
func NewAuthHandler(authSvc *auth.Service, keySvc *service.KeyService, billing *service.BillingService, jwtManager *jwt.Manager, blacklist BlacklistWriter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc:   authSvc,
		keySvc:    keySvc,
		billing:   billing,
		jwt:       jwtManager,
		blacklist: blacklist,
		logger:    logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册新用户
//
// 注册成功即开通免费订阅并签发一把初始API密钥，
// 密钥明文只在本响应中出现一次。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "邮箱和密码为必填项")
		return
	}

	user, err := h.authSvc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			Conflict(c, "邮箱已被注册")
		case errors.Is(err, auth.ErrInvalidEmail):
			BadRequest(c, "邮箱格式无效")
		case errors.Is(err, auth.ErrWeakPassword):
			BadRequest(c, "密码至少需要 8 个字符")
		default:
			h.logger.Error("register failed", zap.Error(err))
			InternalError(c, "注册失败")
		}
		return
	}

	// 配额检查要求所有用户持有 active 订阅，注册时自动开通免费档
	if _, err := h.billing.Subscribe(c.Request.Context(), user.ID, domain.PlanFree); err != nil {
		h.logger.Error("failed to activate free subscription",
			zap.String("user_id", user.ID), zap.Error(err))
		InternalError(c, "注册失败")
		return
	}

	issued, err := h.keySvc.Issue(c.Request.Context(), user.ID, "default")
	if err != nil {
		h.logger.Error("failed to issue initial api key",
			zap.String("user_id", user.ID), zap.Error(err))
		InternalError(c, "注册失败")
		return
	}

	pair, err := h.jwt.GenerateTokenPair(user.ID, user.Email, user.Plan)
	if err != nil {
		InternalError(c, "注册失败")
		return
	}

	Created(c, gin.H{
		"user":   user,
		"apiKey": issued,
		"tokens": pair,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录并签发令牌对
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "邮箱和密码为必填项")
		return
	}

	user, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			Unauthorized(c, "邮箱或密码错误")
		case errors.Is(err, auth.ErrUserDisabled):
			Unauthorized(c, "账户已停用")
		default:
			h.logger.Error("login failed", zap.Error(err))
			InternalError(c, "登录失败")
		}
		return
	}

	pair, err := h.jwt.GenerateTokenPair(user.ID, user.Email, user.Plan)
	if err != nil {
		InternalError(c, "登录失败")
		return
	}

	Success(c, gin.H{
		"user":   user,
		"tokens": pair,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh 用刷新令牌换取新的令牌对
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "缺少刷新令牌")
		return
	}

	claims, err := h.jwt.ValidateToken(req.RefreshToken)
	if err != nil {
		Unauthorized(c, "刷新令牌无效或已过期")
		return
	}

	// 以最新的用户状态签发，计划变更即时生效
	user, err := h.authSvc.GetUser(c.Request.Context(), claims.UserID)
	if err != nil || !user.IsActive {
		Unauthorized(c, "账户不可用")
		return
	}

	pair, err := h.jwt.GenerateTokenPair(user.ID, user.Email, user.Plan)
	if err != nil {
		InternalError(c, "刷新失败")
		return
	}
	Success(c, gin.H{"tokens": pair})
}

// Me 返回当前用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authSvc.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		NotFound(c, "用户不存在")
		return
	}
	Success(c, user)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ChangePassword 修改密码
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "新旧密码为必填项")
		return
	}

	err := h.authSvc.ChangePassword(c.Request.Context(), middleware.UserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			Unauthorized(c, "原密码错误")
		case errors.Is(err, auth.ErrWeakPassword):
			BadRequest(c, "密码至少需要 8 个字符")
		default:
			InternalError(c, "修改密码失败")
		}
		return
	}
	Success(c, gin.H{"changed": true})
}

// Logout 注销当前访问令牌
//
// 配置了 Redis 时令牌进入黑名单立即失效，否则令牌在到期前仍然有效。
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.blacklist == nil {
		Success(c, gin.H{"loggedOut": true})
		return
	}

	header := c.GetHeader("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		Unauthorized(c, "令牌无效")
		return
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := h.blacklist.BlacklistToken(c.Request.Context(), claims.ID, ttl); err != nil {
		h.logger.Error("failed to blacklist token", zap.Error(err))
		InternalError(c, "注销失败")
		return
	}
	Success(c, gin.H{"loggedOut": true})
}
