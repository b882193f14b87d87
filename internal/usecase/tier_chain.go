package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/metrics"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"go.uber.org/zap"
)

// 保存できた注文と、それを受け取った階層
type PersistResult struct {
	Order   model.Order
	Tier    string
	Durable bool
}

// TierChain は優先順に並んだ注文ストアを順に試す。
// 最初に成功した階層で確定し、同じ呼び出しの中で同じ階層を二度試すことはない。
type TierChain struct {
	tiers   []repo.OrderStore
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewTierChain(tiers []repo.OrderStore, logger *zap.Logger, m *metrics.Metrics) *TierChain {
	return &TierChain{tiers: tiers, logger: logger, metrics: m}
}

func (c *TierChain) TierNames() []string {
	names := make([]string, 0, len(c.tiers))
	for _, t := range c.tiers {
		names = append(names, t.Name())
	}
	return names
}

// Create は階層を順に試す。
// 注文番号の重複だけは下位へ流さずにそのまま返す（採番し直しは呼び出し側）。
func (c *TierChain) Create(ctx context.Context, order model.Order) (PersistResult, error) {
	failures := make([]error, 0, len(c.tiers))

	for _, tier := range c.tiers {
		saved, err := tier.Create(ctx, order)
		if err == nil {
			c.metrics.TierAttempts.WithLabelValues(tier.Name(), "success").Inc()
			return PersistResult{Order: saved, Tier: tier.Name(), Durable: tier.Durable()}, nil
		}

		if errors.Is(err, repo.ErrDuplicateOrderNumber) {
			c.metrics.TierAttempts.WithLabelValues(tier.Name(), "duplicate").Inc()
			c.logger.Warn("order number already taken",
				zap.String("tier", tier.Name()),
				zap.String("order_number", order.OrderNumber))
			return PersistResult{}, err
		}

		c.metrics.TierAttempts.WithLabelValues(tier.Name(), "failure").Inc()
		c.logger.Warn("order tier failed, falling through",
			zap.String("tier", tier.Name()),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		failures = append(failures, fmt.Errorf("%s: %w", tier.Name(), err))
	}

	return PersistResult{}, fmt.Errorf("%w: %w", ErrPersistenceExhausted, errors.Join(failures...))
}

// Fetch は同じ順で問い合わせ、最初に見つかった注文を返す。
// どの階層も応答できなかったときだけ ErrTierUnavailable。
func (c *TierChain) Fetch(ctx context.Context, orderNumber string) (PersistResult, error) {
	answered := false

	for _, tier := range c.tiers {
		o, err := tier.FindByOrderNumber(ctx, orderNumber)
		if err == nil {
			return PersistResult{Order: o, Tier: tier.Name(), Durable: tier.Durable()}, nil
		}
		if errors.Is(err, repo.ErrNotFound) {
			answered = true
			continue
		}
		c.logger.Warn("order tier lookup failed",
			zap.String("tier", tier.Name()),
			zap.String("order_number", orderNumber),
			zap.Error(err))
	}

	if !answered && len(c.tiers) > 0 {
		return PersistResult{}, repo.ErrTierUnavailable
	}
	return PersistResult{}, repo.ErrNotFound
}
