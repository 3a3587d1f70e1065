// Package monitoring 暴露 Prometheus 指标
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 网关运行指标集合
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	AuthFailuresTotal *prometheus.CounterVec
	QuotaDeniedTotal  *prometheus.CounterVec
	RateLimitedTotal  prometheus.Counter
	UsageEventsTotal  prometheus.Counter
}

// NewMetrics 注册并返回指标集合
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neura",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "neura",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		AuthFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neura",
			Subsystem: "gateway",
			Name:      "auth_failures_total",
			Help:      "Rejected authentication attempts by credential kind.",
		}, []string{"kind"}),
		QuotaDeniedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neura",
			Subsystem: "gateway",
			Name:      "quota_denied_total",
			Help:      "Requests denied by quota policy, by reason.",
		}, []string{"reason"}),
		RateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "neura",
			Subsystem: "gateway",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by per-key rate limiting.",
		}),
		UsageEventsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "neura",
			Subsystem: "gateway",
			Name:      "usage_events_total",
			Help:      "Usage events recorded against API keys.",
		}),
	}
}

// NewDefaultMetrics 注册到默认 Registry
func NewDefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}
