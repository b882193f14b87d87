package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// 一意制約違反
const pgUniqueViolation = "23505"

// OrderGormRepository はDBに直接書く注文ストア（durable）。
type OrderGormRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewOrderGormRepository(db *gorm.DB, timeout time.Duration) *OrderGormRepository {
	return &OrderGormRepository{db: db, timeout: timeout}
}

func (r *OrderGormRepository) Name() string  { return "postgres" }
func (r *OrderGormRepository) Durable() bool { return true }

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	o := order.Clone()
	o.ID = 0
	if err := r.db.WithContext(ctx).Create(&o).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Order{}, repo.ErrDuplicateOrderNumber
		}
		return model.Order{}, fmt.Errorf("%w: %w", repo.ErrTierUnavailable, err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var o model.Order
	err := r.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %w", repo.ErrTierUnavailable, err)
	}
	return o, nil
}

// 注文履歴にあるメールアドレス（重複なし）
func (r *OrderGormRepository) ListCustomerEmails(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var emails []string
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Distinct("customer_email").
		Where("customer_email <> ''").
		Order("customer_email").
		Pluck("customer_email", &emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// TranslateError無しのドライバ向け
	return strings.Contains(err.Error(), "SQLSTATE "+pgUniqueViolation)
}
