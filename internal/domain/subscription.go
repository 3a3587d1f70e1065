package domain

import "time"

// SubscriptionStatus 订阅生命周期状态
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription 用户订阅实体
//
// 同一用户同一时刻至多存在一条 active 订阅，由存储层保证。
type Subscription struct {
	ID                 string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID             string             `json:"userId" gorm:"type:varchar(36);index;not null"`
	PlanID             string             `json:"planId" gorm:"type:varchar(20);not null"`
	ProviderRef        string             `json:"-" gorm:"type:varchar(255)"` // 支付服务商的订阅标识
	Status             SubscriptionStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	CurrentPeriodStart time.Time          `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time          `json:"currentPeriodEnd"`
	CreatedAt          time.Time          `json:"createdAt"`
}
