// Package payment 封装外部支付服务商
package payment

import (
	"context"
	"errors"
)

var (
	// ErrPaymentDeclined 支付服务商拒绝了本次订阅
	ErrPaymentDeclined = errors.New("payment declined by provider")
)

// ChargeRequest 订阅扣费请求
type ChargeRequest struct {
	UserID string  `json:"userId"`
	PlanID string  `json:"planId"`
	Amount float64 `json:"amount"` // 月费（美元）
}

// ChargeResult 扣费结果
type ChargeResult struct {
	ProviderRef string `json:"providerRef"` // 服务商侧订阅标识，用于后续取消
}

// Provider 支付服务商接口
//
// Subscribe 失败时本地不得产生任何订阅状态变更。
type Provider interface {
	// Subscribe 发起订阅扣费
	Subscribe(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// Cancel 取消服务商侧的订阅，幂等
	Cancel(ctx context.Context, providerRef string) error
}
