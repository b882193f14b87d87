package model

import "time"

type SubscriberRole string

const (
	SubscriberRoleCustomer SubscriberRole = "customer"
	SubscriberRoleOperator SubscriberRole = "operator"
)

// Web Push の購読情報。endpointで一意。
type PushSubscription struct {
	Endpoint  string         `gorm:"type:text;primaryKey" json:"endpoint"`
	P256dh    string         `gorm:"type:varchar(255);not null" json:"p256dh"`
	Auth      string         `gorm:"type:varchar(255);not null" json:"auth"`
	Role      SubscriberRole `gorm:"type:varchar(20);not null;index" json:"role"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

// ニュースレター購読者
type NewsletterSubscriber struct {
	Email     string    `gorm:"type:varchar(255);primaryKey" json:"email"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
