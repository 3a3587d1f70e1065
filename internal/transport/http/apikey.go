package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neura/backend/internal/middleware"
	"neura/backend/internal/service"
)

// KeyHandler API密钥管理接口
type KeyHandler struct {
	keySvc *service.KeyService
	logger *zap.Logger
}

// NewKeyHandler 创建密钥管理接口处理器
func NewKeyHandler(keySvc *service.KeyService, logger *zap.Logger) *KeyHandler {
	return &KeyHandler{keySvc: keySvc, logger: logger}
}

type createKeyRequest struct {
	Name string `json:"name"`
}

// Create 签发新密钥
func (h *KeyHandler) Create(c *gin.Context) {
	var req createKeyRequest
	_ = c.ShouldBindJSON(&req)
	if req.Name == "" {
		req.Name = "default"
	}

	issued, err := h.keySvc.Issue(c.Request.Context(), middleware.UserID(c), req.Name)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			NotFound(c, "用户不存在")
			return
		}
		h.logger.Error("failed to issue api key", zap.Error(err))
		InternalError(c, "签发密钥失败")
		return
	}

	// 明文只在本响应返回一次
	Created(c, issued)
}

// List 列出当前用户的密钥
func (h *KeyHandler) List(c *gin.Context) {
	keys, err := h.keySvc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("failed to list api keys", zap.Error(err))
		InternalError(c, "查询密钥失败")
		return
	}
	Success(c, gin.H{"keys": keys})
}

// Revoke 吊销指定密钥
func (h *KeyHandler) Revoke(c *gin.Context) {
	err := h.keySvc.Revoke(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			NotFound(c, "密钥不存在")
			return
		}
		h.logger.Error("failed to revoke api key", zap.Error(err))
		InternalError(c, "吊销密钥失败")
		return
	}
	Success(c, gin.H{"revoked": true})
}
