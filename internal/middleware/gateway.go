package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neura/backend/internal/auth"
	"neura/backend/internal/monitoring"
	"neura/backend/internal/service"
)

// 上下文键
const (
	CtxUserID   = "userID"
	CtxIdentity = "identity"
)

// Gateway 产品端点的统一接入中间件
//
// 请求处理顺序：认证 -> 密钥限流 -> 配额检查 -> 业务处理 -> 用量记录。
// 用量记录在业务处理之后执行，无论处理成功与否都计入。
type Gateway struct {
	authenticator *auth.Authenticator
	billing       *service.BillingService
	usage         *service.UsageService
	limiter       KeyLimiter
	metrics       *monitoring.Metrics
	logger        *zap.Logger
}

// NewGateway 创建接入中间件
func NewGateway(
	authenticator *auth.Authenticator,
	billing *service.BillingService,
	usage *service.UsageService,
	limiter KeyLimiter,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		authenticator: authenticator,
		billing:       billing,
		usage:         usage,
		limiter:       limiter,
		metrics:       metrics,
		logger:        logger,
	}
}

// credential 从请求中提取凭证，优先 Authorization，其次 X-API-Key
func credential(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.GetHeader("X-API-Key")
}

// Handle 返回网关中间件
func (g *Gateway) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		identity, err := g.authenticator.Authenticate(ctx, credential(c))
		if err != nil {
			kind := "api_key"
			if !auth.IsAPIKey(credential(c)) {
				kind = "jwt"
			}
			g.metrics.AuthFailuresTotal.WithLabelValues(kind).Inc()
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or revoked credential",
			})
			c.Abort()
			return
		}

		c.Set(CtxUserID, identity.UserID)
		c.Set(CtxIdentity, identity)

		// 密钥级限流只作用于 API 密钥凭证
		if identity.Method == auth.MethodAPIKey && g.limiter != nil {
			allowed, err := g.limiter.Allow(ctx, identity.KeyID, identity.RateLimit)
			if err != nil {
				// 限流器不可达时放行，配额仍会兜底
				g.logger.Warn("rate limiter unavailable", zap.Error(err))
			} else if !allowed {
				g.metrics.RateLimitedTotal.Inc()
				c.JSON(http.StatusTooManyRequests, gin.H{
					"error": "rate limit exceeded",
				})
				c.Abort()
				return
			}
		}

		decision, err := g.billing.Check(ctx, identity.UserID, identity.Plan)
		if err != nil {
			g.logger.Error("quota check failed",
				zap.String("user_id", identity.UserID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "internal server error",
			})
			c.Abort()
			return
		}
		if !decision.Allowed {
			g.metrics.QuotaDeniedTotal.WithLabelValues(decision.Reason).Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": decision.Reason,
				"quota": decision,
			})
			c.Abort()
			return
		}

		start := time.Now()
		c.Next()

		// JWT 凭证的调用不产生密钥用量事件
		if identity.Method != auth.MethodAPIKey {
			return
		}

		// 客户端提前断开不应丢计量，记录阶段与请求上下文解耦
		err = g.usage.Record(context.WithoutCancel(ctx), service.RecordInput{
			KeyID:      identity.KeyID,
			UserID:     identity.UserID,
			Endpoint:   c.FullPath(),
			Latency:    time.Since(start),
			StatusCode: c.Writer.Status(),
		})
		if err != nil {
			g.logger.Error("failed to record usage",
				zap.String("key_id", identity.KeyID),
				zap.Error(err))
			return
		}
		g.metrics.UsageEventsTotal.Inc()
	}
}

// Metrics 返回请求指标中间件
func Metrics(m *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
