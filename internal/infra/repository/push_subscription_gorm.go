package repository

import (
	"context"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type pushSubscriptionGormRepository struct {
	db *gorm.DB //DB接続（GORM）
}

// GORM実装
func NewPushSubscriptionRepository(db *gorm.DB) repo.PushSubscriptionRepository {
	return &pushSubscriptionGormRepository{db: db}
}

// endpointが同じなら鍵とroleを上書き
func (r *pushSubscriptionGormRepository) Save(ctx context.Context, sub model.PushSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "role"}),
		}).
		Create(&sub).Error
}

func (r *pushSubscriptionGormRepository) ListByRole(ctx context.Context, role model.SubscriberRole) ([]model.PushSubscription, error) {
	q := r.db.WithContext(ctx).Model(&model.PushSubscription{})
	if role != "" {
		q = q.Where("role = ?", role)
	}

	var subs []model.PushSubscription
	if err := q.Order("created_at").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *pushSubscriptionGormRepository) Delete(ctx context.Context, endpoint string) error {
	res := r.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&model.PushSubscription{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
