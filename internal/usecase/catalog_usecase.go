package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"go.uber.org/zap"
)

const CodeProductNotFound = "PRODUCT_NOT_FOUND"

type StockUpdateInput struct {
	Stock  int64  `json:"stock"`
	Reason string `json:"reason"`
}

// CatalogUsecase は運営者による在庫の確認と棚卸し補正。
// 注文による減算は InventoryLedger が行う。
type CatalogUsecase struct {
	products repo.ProductRepository
	tx       repo.TransactionManager
	timeout  time.Duration
	logger   *zap.Logger
}

// DI
func NewCatalogUsecase(products repo.ProductRepository, tx repo.TransactionManager, timeout time.Duration, logger *zap.Logger) *CatalogUsecase {
	return &CatalogUsecase{
		products: products,
		tx:       tx,
		timeout:  timeout,
		logger:   logger,
	}
}

func (u *CatalogUsecase) ListProducts(ctx context.Context) ([]model.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	items, err := u.products.List(ctx)
	if err != nil {
		u.logger.Error("list products failed", zap.Error(err))
		return nil, &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
	}
	return items, nil
}

// SetStock は在庫を「現在値」に置き換え、差分を調整履歴に残す。
func (u *CatalogUsecase) SetStock(ctx context.Context, operator string, productID string, in StockUpdateInput) (model.Product, error) {
	productID = strings.TrimSpace(productID)
	reason := strings.TrimSpace(in.Reason)

	if productID == "" {
		return model.Product{}, NewValidationError("productId", "Le produit est requis.")
	}
	if in.Stock < 0 {
		return model.Product{}, NewValidationError("stock", "Le stock ne peut pas être négatif.")
	}
	if reason == "" {
		return model.Product{}, NewValidationError("reason", "Le motif est requis.")
	}
	if len(reason) > 200 {
		return model.Product{}, NewValidationError("reason", "Le motif est trop long.")
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	var updated model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Inventory().FindForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if err := r.Inventory().SetStock(ctx, productID, in.Stock); err != nil {
			return err
		}
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:  productID,
			Delta:      in.Stock - p.Stock,
			StockAfter: in.Stock,
			Reason:     "manual by " + operator + ": " + reason,
		}); err != nil {
			return err
		}

		p.Stock = in.Stock
		updated = p
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, CodeProductNotFound, "Produit introuvable.")
	}
	if err != nil {
		u.logger.Error("manual stock update failed",
			zap.String("product_id", productID),
			zap.String("operator", operator),
			zap.Error(err))
		return model.Product{}, &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
	}

	u.logger.Info("stock set manually",
		zap.String("product_id", productID),
		zap.String("operator", operator),
		zap.Int64("stock", in.Stock))
	return updated, nil
}
