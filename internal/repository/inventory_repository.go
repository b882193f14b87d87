package repository

import (
	"context"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
)

type InventoryRepository interface {
	// 商品を取得（更新用にロック）
	FindForUpdate(ctx context.Context, productID string) (model.Product, error)

	// 在庫の現在値を設定
	SetStock(ctx context.Context, productID string, newStock int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
