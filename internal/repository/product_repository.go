package repository

import (
	"context"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
)

// 在庫確認用の商品参照（ロックなし）
type ProductRepository interface {
	// 無ければ ErrNotFound
	FindByID(ctx context.Context, id string) (model.Product, error)

	// 名前順
	List(ctx context.Context) ([]model.Product, error)
}
