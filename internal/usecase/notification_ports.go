package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
)

// プッシュ側が「この購読はもう存在しない」（404/410）と返した
var ErrSubscriptionGone = errors.New("push subscription gone")

type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// 注文・在庫イベント（Kafka等へ流す）
type OrderEvent struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	OrderNumber string    `json:"order_number,omitempty"`
	TotalAmount int64     `json:"total_amount,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	Stock       int64     `json:"stock,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

const (
	EventOrderCreated = "order.created"
	EventStockLow     = "stock.low"
)

type PushSender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload PushPayload) error
}

type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// バックグラウンド実行の窓口。結果はレスポンスを待たせない。
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context) error)
}
