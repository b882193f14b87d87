package repository

import (
	"context"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
)

// Web Push 購読の保存・一覧・削除
type PushSubscriptionRepository interface {
	// endpointが同じなら上書き
	Save(ctx context.Context, sub model.PushSubscription) error

	// roleで絞り込み。空なら全件
	ListByRole(ctx context.Context, role model.SubscriberRole) ([]model.PushSubscription, error)

	// 無ければ ErrNotFound
	Delete(ctx context.Context, endpoint string) error
}

// ニュースレター購読者
type NewsletterRepository interface {
	// 既にあれば有効化だけ行う
	Subscribe(ctx context.Context, email string) error

	ListActiveEmails(ctx context.Context) ([]string, error)
}

// 過去に注文した顧客のメール一覧
type CustomerDirectory interface {
	ListCustomerEmails(ctx context.Context) ([]string, error)
}
