package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/metrics"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"go.uber.org/zap"
)

const (
	msgPersistenceExhausted = "Impossible d'enregistrer la commande pour le moment. Veuillez réessayer."
	msgDegradedTier         = "Commande enregistrée en mode dégradé : elle pourrait nécessiter une confirmation manuelle."
	msgOrderNotFound        = "Commande introuvable."
)

type CheckoutItemInput struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
}

// POST /orders の入力（クライアントのJSONそのまま）
type CheckoutInput struct {
	CustomerName    string              `json:"customerName"`
	CustomerPhone   string              `json:"customerPhone"`
	CustomerEmail   string              `json:"customerEmail"`
	DeliveryAddress string              `json:"deliveryAddress"`
	DeliveryZone    string              `json:"deliveryZone"`
	DeliveryFee     int64               `json:"deliveryFee"`
	TotalAmount     int64               `json:"totalAmount"`
	Items           []CheckoutItemInput `json:"items"`
}

type OrderOutput struct {
	model.Order
	Warning string `json:"warning,omitempty"`
}

type CheckoutResult struct {
	Order OrderOutput
	// 注文を止めない指摘（メール形式など）
	Notes []string
}

// 入力チェック。正規化済みの入力と、拒否しない指摘を返す。
type OrderValidator interface {
	ValidateCheckout(ctx context.Context, in CheckoutInput) (CheckoutInput, []string, error)
}

type OrderNumberSource interface {
	Generate() string
}

type Notifier interface {
	NotifyOrderCreated(ctx context.Context, order model.Order) error
	NotifyLowStock(ctx context.Context, productName string, stock int64) error
}

type OrderUsecaseDeps struct {
	Validator OrderValidator
	Numbers   OrderNumberSource
	Tiers     *TierChain
	Inventory *InventoryLedger
	Notifier  Notifier
	Runner    TaskRunner
	Clock     Clock
	Attempts  int
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// OrderUsecase は注文受付の流れをまとめる。
// 検証 → 保存（階層を順に）→ 在庫 → 通知（非同期）
type OrderUsecase struct {
	validator OrderValidator
	numbers   OrderNumberSource
	tiers     *TierChain
	inventory *InventoryLedger
	notifier  Notifier
	runner    TaskRunner
	clock     Clock
	attempts  int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewOrderUsecase(d OrderUsecaseDeps) *OrderUsecase {
	attempts := d.Attempts
	if attempts < 1 {
		attempts = 1
	}
	clock := d.Clock
	if clock == nil {
		clock = RealClock{}
	}
	return &OrderUsecase{
		validator: d.Validator,
		numbers:   d.Numbers,
		tiers:     d.Tiers,
		inventory: d.Inventory,
		notifier:  d.Notifier,
		runner:    d.Runner,
		clock:     clock,
		attempts:  attempts,
		logger:    d.Logger,
		metrics:   d.Metrics,
	}
}

func (u *OrderUsecase) PlaceOrder(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	// Validating
	normalized, notes, err := u.validator.ValidateCheckout(ctx, in)
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			u.metrics.Rejections.WithLabelValues(he.Code).Inc()
		}
		return CheckoutResult{}, err
	}

	// 検証を通ったあとはクライアントが切断しても最後まで進める（各階層のタイムアウトが上限）
	ctx = context.WithoutCancel(ctx)

	// Persisting
	order, res, err := u.persist(ctx, u.newOrder(normalized))
	if err != nil {
		u.metrics.Rejections.WithLabelValues(CodePersistenceExhausted).Inc()
		u.logger.Error("order persistence exhausted", zap.Error(err))
		return CheckoutResult{}, &HTTPError{
			Status:  http.StatusServiceUnavailable,
			Code:    CodePersistenceExhausted,
			Message: msgPersistenceExhausted,
			Err:     err,
		}
	}
	u.metrics.Orders.WithLabelValues(res.Tier).Inc()

	// 以降は組み立てた注文（+採番）を正とし、階層の返す内容は使わない
	if res.Order.Status != order.Status {
		u.logger.Warn("tier returned a different order status",
			zap.String("order_number", order.OrderNumber),
			zap.String("tier", res.Tier),
			zap.String("status", string(res.Order.Status)))
	}
	u.logger.Info("order persisted",
		zap.String("order_number", order.OrderNumber),
		zap.String("tier", res.Tier),
		zap.Bool("durable", res.Durable),
		zap.Int("items", len(order.Items)))

	// InventoryUpdating
	changes := u.inventory.ApplyOrder(ctx, order)

	// Notifying（結果は待たない）
	u.scheduleNotifications(order, changes)

	out := OrderOutput{Order: order.Clone()}
	if !res.Durable {
		out.Warning = msgDegradedTier
	}
	return CheckoutResult{Order: out, Notes: notes}, nil
}

func (u *OrderUsecase) newOrder(in CheckoutInput) model.Order {
	now := u.clock.Now().UTC().Truncate(time.Microsecond)

	items := make([]model.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, model.OrderItem{
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	return model.Order{
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerEmail:   in.CustomerEmail,
		DeliveryAddress: in.DeliveryAddress,
		DeliveryZone:    in.DeliveryZone,
		DeliveryFee:     in.DeliveryFee,
		TotalAmount:     in.TotalAmount,
		Items:           items,
		Status:          model.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// 注文番号が重複したときだけ番号を振り直して再試行する。
// 採番済みの注文と、保存した階層の結果を返す。
func (u *OrderUsecase) persist(ctx context.Context, order model.Order) (model.Order, PersistResult, error) {
	var lastErr error
	for attempt := 1; attempt <= u.attempts; attempt++ {
		order.OrderNumber = u.numbers.Generate()

		res, err := u.tiers.Create(ctx, order)
		if err == nil {
			return order, res, nil
		}
		if !errors.Is(err, repo.ErrDuplicateOrderNumber) {
			return model.Order{}, PersistResult{}, err
		}

		u.logger.Warn("order number collision, regenerating",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt))
		lastErr = err
	}
	return model.Order{}, PersistResult{}, errors.Join(ErrPersistenceExhausted, lastErr)
}

func (u *OrderUsecase) scheduleNotifications(order model.Order, changes []StockChange) {
	if u.notifier == nil || u.runner == nil {
		return
	}

	snapshot := order.Clone()
	u.runner.Go("notify order "+snapshot.OrderNumber, func(ctx context.Context) error {
		return u.notifier.NotifyOrderCreated(ctx, snapshot)
	})

	for _, c := range changes {
		if !c.CrossedLowStockThreshold {
			continue
		}
		name := c.ProductName
		if strings.TrimSpace(name) == "" {
			name = c.ProductID
		}
		stock := c.NewStock
		u.runner.Go("notify low stock "+c.ProductID, func(ctx context.Context) error {
			return u.notifier.NotifyLowStock(ctx, name, stock)
		})
	}
}

// GetOrder は保存と同じ順に階層を探す。
func (u *OrderUsecase) GetOrder(ctx context.Context, orderNumber string) (OrderOutput, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return OrderOutput{}, NewValidationError("orderNumber", "Le numéro de commande est requis.")
	}

	res, err := u.tiers.Fetch(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return OrderOutput{}, NewHTTPError(http.StatusNotFound, CodeOrderNotFound, msgOrderNotFound)
		}
		return OrderOutput{}, &HTTPError{
			Status:  http.StatusServiceUnavailable,
			Code:    CodePersistenceExhausted,
			Message: msgPersistenceExhausted,
			Err:     err,
		}
	}

	out := OrderOutput{Order: res.Order.Clone()}
	if !res.Durable {
		out.Warning = msgDegradedTier
	}
	return out, nil
}
