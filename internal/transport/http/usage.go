package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neura/backend/internal/middleware"
	"neura/backend/internal/service"
)

// UsageHandler 用量查询接口
type UsageHandler struct {
	usage  *service.UsageService
	logger *zap.Logger
}

// NewUsageHandler 创建用量接口处理器
func NewUsageHandler(usage *service.UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, logger: logger}
}

// Dashboard 返回用量面板数据：本月计数、全量统计与最近调用
func (h *UsageHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	bucket, err := h.usage.BucketFor(ctx, userID)
	if err != nil {
		h.logger.Error("failed to load monthly usage", zap.Error(err))
		InternalError(c, "查询用量失败")
		return
	}

	summary, err := h.usage.Summary(ctx, userID)
	if err != nil {
		h.logger.Error("failed to load usage summary", zap.Error(err))
		InternalError(c, "查询用量失败")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	events, err := h.usage.RecentEvents(ctx, userID, limit)
	if err != nil {
		h.logger.Error("failed to load recent events", zap.Error(err))
		InternalError(c, "查询用量失败")
		return
	}

	Success(c, gin.H{
		"month":   bucket,
		"summary": summary,
		"recent":  events,
	})
}
