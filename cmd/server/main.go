package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"neura/backend/internal/auth"
	jwtpkg "neura/backend/internal/auth/jwt"
	"neura/backend/internal/config"
	"neura/backend/internal/domain"
	"neura/backend/internal/health"
	"neura/backend/internal/logger"
	"neura/backend/internal/middleware"
	"neura/backend/internal/monitoring"
	"neura/backend/internal/payment"
	"neura/backend/internal/service"
	"neura/backend/internal/storage"
	"neura/backend/internal/storage/hybrid"
	"neura/backend/internal/storage/memory"
	redisstore "neura/backend/internal/storage/redis"
	sqlstore "neura/backend/internal/storage/sql"
	httptransport "neura/backend/internal/transport/http"
)

// main 启动认证与用量网关服务
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting neura gateway",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(cfg.Database)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	// Redis 承载限流计数与 JWT 黑名单，未启用时退化为进程内实现
	var cache *redisstore.Store
	var limiter middleware.KeyLimiter = middleware.NewMemoryLimiter()
	var blacklistReader auth.TokenBlacklist
	var blacklistWriter httptransport.BlacklistWriter
	if cfg.Redis.Enabled {
		cache, err = redisstore.NewStore(cfg.Redis)
		if err != nil {
			panic(fmt.Sprintf("failed to connect redis: %v", err))
		}
		store = hybrid.NewStore(store, cache)
		limiter = middleware.NewRedisLimiter(cache)
		blacklistReader = cache
		blacklistWriter = cache
		log.Info("redis enabled", zap.String("address", cfg.Redis.Address))
	}
	defer store.Close()

	// 支付服务商：未配置外部地址时使用本地 mock
	var provider payment.Provider
	if cfg.Payment.Endpoint != "" {
		provider = payment.NewHTTPProvider(cfg.Payment, log)
		log.Info("using external payment provider", zap.String("endpoint", cfg.Payment.Endpoint))
	} else {
		provider = payment.NewMockProvider()
		log.Info("using mock payment provider")
	}

	// 服务层
	catalog := domain.DefaultCatalog()
	jwtManager := jwtpkg.NewManager(cfg.JWT)
	authService := auth.NewService(store, log)
	authenticator := auth.NewAuthenticator(store, jwtManager, blacklistReader, log)
	keyService := service.NewKeyService(store, log)
	usageService := service.NewUsageService(store, log)
	billingService := service.NewBillingService(store, catalog, provider, log)
	productService := service.NewProductService()

	metrics := monitoring.NewDefaultMetrics()
	checker := health.NewChecker(store, log)

	gateway := middleware.NewGateway(authenticator, billingService, usageService, limiter, metrics, log)
	jwtAuth := middleware.NewJWTAuth(authenticator)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Auth:     httptransport.NewAuthHandler(authService, keyService, billingService, jwtManager, blacklistWriter, log),
		Keys:     httptransport.NewKeyHandler(keyService, log),
		Billing:  httptransport.NewBillingHandler(billingService, log),
		Usage:    httptransport.NewUsageHandler(usageService, log),
		Products: httptransport.NewProductHandler(productService),
		Gateway:  gateway,
		JWTAuth:  jwtAuth,
		Metrics:  metrics,
		Health:   checker,
		Logger:   log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清理过期用量事件 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Usage.SweepInterval)
		defer ticker.Stop()

		retention := time.Duration(cfg.Usage.RetentionDays) * 24 * time.Hour
		log.Info("starting usage event retention task",
			zap.Duration("interval", cfg.Usage.SweepInterval),
			zap.Int("retention_days", cfg.Usage.RetentionDays),
		)

		for {
			select {
			case <-groupCtx.Done():
				log.Info("retention task stopped")
				return nil
			case <-ticker.C:
				if _, err := usageService.PurgeExpired(groupCtx, retention); err != nil {
					log.Error("failed to purge expired usage events", zap.Error(err))
				}
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
