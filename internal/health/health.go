// Package health 提供存活/就绪探针
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"neura/backend/internal/storage"
)

// Checker 健康检查器
type Checker struct {
	handler healthcheck.Handler
	store   storage.Store
	logger  *zap.Logger
}

// NewChecker 创建健康检查器
func NewChecker(store storage.Store, logger *zap.Logger) *Checker {
	c := &Checker{
		handler: healthcheck.NewHandler(),
		store:   store,
		logger:  logger,
	}

	c.handler.AddReadinessCheck("storage", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return store.Health(ctx)
	})
	c.handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))

	return c
}

// LiveHandler 存活探针
func (c *Checker) LiveHandler() http.HandlerFunc {
	return c.handler.LiveEndpoint
}

// ReadyHandler 就绪探针
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return c.handler.ReadyEndpoint
}
