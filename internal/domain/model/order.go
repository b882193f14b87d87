package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// 注文明細（注文時点のサイズ・数量・単価）
type OrderItem struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
}

// 1回のチェックアウト。
// 明細はjsonbで注文行にまとめて保存する。
type Order struct {
	ID              int64       `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderNumber     string      `gorm:"type:varchar(32);not null;uniqueIndex" json:"orderNumber"`
	CustomerName    string      `gorm:"type:varchar(255);not null" json:"customerName"`
	CustomerPhone   string      `gorm:"type:varchar(30);not null" json:"customerPhone"`
	CustomerEmail   string      `gorm:"type:varchar(255);index" json:"customerEmail,omitempty"`
	DeliveryAddress string      `gorm:"type:text;not null" json:"deliveryAddress"`
	DeliveryZone    string      `gorm:"type:varchar(100)" json:"deliveryZone,omitempty"`
	DeliveryFee     int64       `gorm:"not null" json:"deliveryFee"`
	TotalAmount     int64       `gorm:"not null" json:"totalAmount"`
	Items           []OrderItem `gorm:"type:jsonb;serializer:json;not null" json:"items"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt       time.Time   `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time   `gorm:"not null" json:"updatedAt"`
}

// 呼び出し側が書き換えても元の注文に影響しないコピーを返す
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return c
}
