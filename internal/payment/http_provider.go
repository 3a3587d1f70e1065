package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"neura/backend/internal/config"
)

// HTTPProvider 通过 HTTP JSON API 对接支付服务商
type HTTPProvider struct {
	endpoint  string
	secretKey string
	client    *http.Client
	logger    *zap.Logger
}

// NewHTTPProvider 创建 HTTP 支付客户端
func NewHTTPProvider(cfg config.PaymentConfig, logger *zap.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		endpoint:  cfg.Endpoint,
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Subscribe 发起订阅扣费
func (p *HTTPProvider) Subscribe(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/subscriptions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ErrPaymentDeclined
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var result ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}

	p.logger.Info("subscription charged",
		zap.String("plan_id", req.PlanID),
		zap.String("provider_ref", result.ProviderRef))
	return &result, nil
}

// Cancel 取消服务商侧的订阅
func (p *HTTPProvider) Cancel(ctx context.Context, providerRef string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.endpoint+"/v1/subscriptions/"+providerRef, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("payment provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	// 已不存在视为取消成功
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}
	return nil
}
