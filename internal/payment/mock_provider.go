package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockProvider 本地模拟支付服务商
//
// 未配置外部支付服务时使用，也用于测试失败路径。
type MockProvider struct {
	mu        sync.Mutex
	declined  bool
	cancelled []string
}

// NewMockProvider 创建模拟支付服务商
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetDeclined 控制后续 Subscribe 是否被拒绝
func (p *MockProvider) SetDeclined(declined bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.declined = declined
}

// Cancelled 返回已取消的服务商订阅标识
func (p *MockProvider) Cancelled() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.cancelled))
	copy(out, p.cancelled)
	return out
}

// Subscribe 模拟扣费
func (p *MockProvider) Subscribe(_ context.Context, _ ChargeRequest) (*ChargeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declined {
		return nil, ErrPaymentDeclined
	}
	return &ChargeResult{ProviderRef: "mock_" + uuid.New().String()}, nil
}

// Cancel 模拟取消
func (p *MockProvider) Cancel(_ context.Context, providerRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, providerRef)
	return nil
}
