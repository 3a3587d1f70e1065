package httptransport

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"neura/backend/internal/health"
	"neura/backend/internal/middleware"
	"neura/backend/internal/monitoring"
)

// 请求体大小上限
const maxBodyBytes = 1 << 20 // 1MB

// RouterDependencies 路由依赖
type RouterDependencies struct {
	Auth     *AuthHandler
	Keys     *KeyHandler
	Billing  *BillingHandler
	Usage    *UsageHandler
	Products *ProductHandler

	Gateway *middleware.Gateway
	JWTAuth *middleware.JWTAuth
	Metrics *monitoring.Metrics
	Health  *health.Checker

	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter 组装路由与中间件
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.Metrics(deps.Metrics))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(maxBodyBytes))

	corsConfig := cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(deps.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowOrigins = nil
		// 通配源不允许携带凭证
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	// 探针与指标
	router.GET("/healthz", gin.WrapF(deps.Health.LiveHandler()))
	router.GET("/readyz", gin.WrapF(deps.Health.ReadyHandler()))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", deps.Auth.Register)
			authGroup.POST("/login", deps.Auth.Login)
			authGroup.POST("/refresh", deps.Auth.Refresh)

			protected := authGroup.Group("")
			protected.Use(deps.JWTAuth.RequireUser())
			{
				protected.GET("/me", deps.Auth.Me)
				protected.POST("/change-password", deps.Auth.ChangePassword)
				protected.POST("/logout", deps.Auth.Logout)
			}
		}

		// 管理接口只接受 JWT 凭证
		keys := v1.Group("/api-keys")
		keys.Use(deps.JWTAuth.RequireUser())
		{
			keys.POST("", deps.Keys.Create)
			keys.GET("", deps.Keys.List)
			keys.DELETE("/:id", deps.Keys.Revoke)
		}

		billing := v1.Group("/billing")
		{
			billing.GET("/plans", deps.Billing.Plans)

			protected := billing.Group("")
			protected.Use(deps.JWTAuth.RequireUser())
			{
				protected.POST("/subscribe", deps.Billing.Subscribe)
				protected.GET("/subscription", deps.Billing.Current)
				protected.DELETE("/subscription", deps.Billing.Cancel)
				protected.GET("/quota", deps.Billing.Quota)
			}
		}

		usage := v1.Group("/usage")
		usage.Use(deps.JWTAuth.RequireUser())
		{
			usage.GET("/dashboard", deps.Usage.Dashboard)
		}
	}

	// 产品端点走统一网关：认证 -> 限流 -> 配额 -> 计量
	api := router.Group("/api")
	api.Use(deps.Gateway.Handle())
	{
		api.POST("/resume/review", deps.Products.ReviewResume)
		api.POST("/landing-page/generate", deps.Products.GenerateLandingCopy)
		api.POST("/names/generate", deps.Products.GenerateNames)
		api.POST("/seo/audit", deps.Products.AuditSEO)
		api.POST("/logo/generate", deps.Products.GenerateLogoSpec)
	}

	return router
}
