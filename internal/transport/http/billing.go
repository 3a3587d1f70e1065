package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neura/backend/internal/middleware"
	"neura/backend/internal/payment"
	"neura/backend/internal/service"
)

// BillingHandler 订阅与配额接口
type BillingHandler struct {
	billing *service.BillingService
	logger  *zap.Logger
}

// NewBillingHandler 创建订阅接口处理器
func NewBillingHandler(billing *service.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, logger: logger}
}

// Plans 返回计划目录
func (h *BillingHandler) Plans(c *gin.Context) {
	Success(c, gin.H{"plans": h.billing.Plans()})
}

type subscribeRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

// Subscribe 订阅指定计划
func (h *BillingHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "缺少计划ID")
		return
	}

	sub, err := h.billing.Subscribe(c.Request.Context(), middleware.UserID(c), req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPlan):
			BadRequest(c, "计划不存在")
		case errors.Is(err, service.ErrUserNotFound):
			NotFound(c, "用户不存在")
		case errors.Is(err, payment.ErrPaymentDeclined):
			PaymentRequired(c, "支付被拒绝")
		default:
			h.logger.Error("subscribe failed", zap.Error(err))
			InternalError(c, "订阅失败")
		}
		return
	}
	Created(c, sub)
}

// Cancel 取消当前订阅
func (h *BillingHandler) Cancel(c *gin.Context) {
	sub, err := h.billing.Cancel(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSubscription) {
			NotFound(c, "没有生效中的订阅")
			return
		}
		h.logger.Error("cancel subscription failed", zap.Error(err))
		InternalError(c, "取消订阅失败")
		return
	}
	Success(c, sub)
}

// Current 查询当前订阅
func (h *BillingHandler) Current(c *gin.Context) {
	sub, err := h.billing.Current(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSubscription) {
			NotFound(c, "没有生效中的订阅")
			return
		}
		InternalError(c, "查询订阅失败")
		return
	}
	Success(c, sub)
}

// Quota 查询本月配额状态
func (h *BillingHandler) Quota(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		Unauthorized(c, "未认证")
		return
	}

	decision, err := h.billing.Check(c.Request.Context(), identity.UserID, identity.Plan)
	if err != nil {
		h.logger.Error("quota check failed", zap.Error(err))
		InternalError(c, "查询配额失败")
		return
	}
	Success(c, decision)
}
