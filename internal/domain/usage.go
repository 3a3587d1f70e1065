package domain

import "time"

// UsageEvent 一次已认证调用的不可变记录，只追加不修改
type UsageEvent struct {
	ID         string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	APIKeyID   string        `json:"apiKeyId" gorm:"type:varchar(36);index;not null"`
	UserID     string        `json:"userId" gorm:"type:varchar(36);index;not null"`
	Endpoint   string        `json:"endpoint" gorm:"type:varchar(255);index"`
	Latency    time.Duration `json:"latency"`    // 响应耗时
	StatusCode int           `json:"statusCode"` // 响应状态码
	CreatedAt  time.Time     `json:"createdAt" gorm:"index"`
}

// MonthlyUsage 按（用户，自然月）聚合的调用计数
//
// Month 格式为 "YYYY-MM"。首次调用时惰性创建，此后原子自增。
type MonthlyUsage struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `json:"userId" gorm:"type:varchar(36);uniqueIndex:idx_user_month;not null"`
	Month          string    `json:"month" gorm:"type:varchar(7);uniqueIndex:idx_user_month;not null"`
	RequestsCount  int64     `json:"requestsCount" gorm:"default:0"`
	OverageCharges float64   `json:"overageCharges" gorm:"default:0"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UsageSummary 用户全量使用统计
type UsageSummary struct {
	TotalRequests   int64   `json:"totalRequests"`
	AvgLatencyMs    float64 `json:"avgLatencyMs"`
	UniqueEndpoints int     `json:"uniqueEndpoints"`
}

// MonthKey 返回给定时间所在自然月的聚合键
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
