package repository

import (
	"context"
	"errors"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")

	// 注文番号の一意制約に当たった（採番し直して再試行する）
	ErrDuplicateOrderNumber = errors.New("duplicate order number")

	// ストアに到達できない・応答が不正
	ErrTierUnavailable = errors.New("order tier unavailable")
)

// 注文の保存先（リモート / DB / メモリ）が共通で守る約束。
type OrderStore interface {
	// ログ・メトリクス用の名前
	Name() string

	// プロセス再起動で消えないか
	Durable() bool

	// 注文を保存し、保存後の注文を返す
	Create(ctx context.Context, order model.Order) (model.Order, error)

	// 注文番号で1件取得。無ければ ErrNotFound
	FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, error)
}
