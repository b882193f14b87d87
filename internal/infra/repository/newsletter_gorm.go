package repository

import (
	"context"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type newsletterGormRepository struct {
	db *gorm.DB
}

func NewNewsletterRepository(db *gorm.DB) repo.NewsletterRepository {
	return &newsletterGormRepository{db: db}
}

// 解除済みの購読者は再度有効にする
func (r *newsletterGormRepository) Subscribe(ctx context.Context, email string) error {
	sub := model.NewsletterSubscriber{Email: email, IsActive: true}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.Assignments(map[string]any{"is_active": true}),
		}).
		Create(&sub).Error
}

func (r *newsletterGormRepository) ListActiveEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).
		Model(&model.NewsletterSubscriber{}).
		Where("is_active = ?", true).
		Order("email").
		Pluck("email", &emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}
