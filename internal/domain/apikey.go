package domain

import "time"

// APIKey API密钥实体
//
// 密钥明文只在签发时返回一次，存储层只保留 SHA-256 摘要。
type APIKey struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string     `json:"userId" gorm:"type:varchar(36);index;not null"`
	KeyHash    string     `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"` // 密钥摘要（hex）
	KeyPrefix  string     `json:"keyPrefix" gorm:"type:varchar(20);not null"`     // 展示用前缀
	Name       string     `json:"name" gorm:"type:varchar(100)"`                  // 密钥名称/描述
	UsageCount int64      `json:"usageCount" gorm:"default:0"`                    // 累计调用次数
	RateLimit  int        `json:"rateLimit" gorm:"default:1000"`                  // 每分钟请求上限
	IsActive   bool       `json:"isActive" gorm:"default:true"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}
