package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/metrics"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"go.uber.org/zap"
)

// 1商品分の在庫変化
type StockChange struct {
	ProductID                string
	ProductName              string
	PreviousStock            int64
	NewStock                 int64
	CrossedLowStockThreshold bool
}

// InventoryLedger は明細ごとに在庫を読んで減らして書き戻す。
// 注文全体を1つのTxにはしない（途中の明細で失敗しても前の明細は戻さない）。
type InventoryLedger struct {
	tx        repo.TransactionManager
	threshold int64
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewInventoryLedger(tx repo.TransactionManager, threshold int64, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *InventoryLedger {
	return &InventoryLedger{
		tx:        tx,
		threshold: threshold,
		timeout:   timeout,
		logger:    logger,
		metrics:   m,
	}
}

// Decrement は在庫を qty 減らす。
// 在庫が足りなくてもマイナスのまま適用する（注文は既に保存済みのため拒否しない）。
func (l *InventoryLedger) Decrement(ctx context.Context, orderNumber string, productID string, qty int64) (StockChange, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var change StockChange

	err := l.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Inventory().FindForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		newStock := p.Stock - qty
		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			return err
		}

		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			OrderNumber: orderNumber,
			Delta:       -qty,
			StockAfter:  newStock,
			Reason:      "order " + orderNumber,
		}); err != nil {
			return err
		}

		change = StockChange{
			ProductID:                productID,
			ProductName:              p.Name,
			PreviousStock:            p.Stock,
			NewStock:                 newStock,
			CrossedLowStockThreshold: p.Stock > l.threshold && newStock <= l.threshold,
		}
		return nil
	})
	if err != nil {
		return StockChange{}, fmt.Errorf("%w: product %s: %w", ErrInventoryUpdate, productID, err)
	}
	return change, nil
}

// ApplyOrder は明細順に Decrement する。失敗はログに残して次の明細へ進む。
func (l *InventoryLedger) ApplyOrder(ctx context.Context, order model.Order) []StockChange {
	changes := make([]StockChange, 0, len(order.Items))

	for _, it := range order.Items {
		change, err := l.Decrement(ctx, order.OrderNumber, it.ProductID, it.Quantity)
		if err != nil {
			l.metrics.Inventory.WithLabelValues("failure").Inc()
			l.logger.Warn("inventory decrement skipped",
				zap.String("order_number", order.OrderNumber),
				zap.String("product_id", it.ProductID),
				zap.Int64("quantity", it.Quantity),
				zap.Error(err))
			continue
		}

		l.metrics.Inventory.WithLabelValues("success").Inc()
		if change.NewStock < 0 {
			l.logger.Warn("stock went negative",
				zap.String("order_number", order.OrderNumber),
				zap.String("product_id", it.ProductID),
				zap.Int64("stock", change.NewStock))
		}
		changes = append(changes, change)
	}

	return changes
}
