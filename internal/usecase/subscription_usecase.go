package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// 簡易メール形式チェック
func IsEmailLike(s string) bool {
	return emailPattern.MatchString(s)
}

type PushSubscribeInput struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	Role string `json:"role"`
}

type SubscriptionUsecase struct {
	push       repo.PushSubscriptionRepository
	newsletter repo.NewsletterRepository
	logger     *zap.Logger
}

func NewSubscriptionUsecase(push repo.PushSubscriptionRepository, newsletter repo.NewsletterRepository, logger *zap.Logger) *SubscriptionUsecase {
	return &SubscriptionUsecase{push: push, newsletter: newsletter, logger: logger}
}

func (u *SubscriptionUsecase) SubscribePush(ctx context.Context, in PushSubscribeInput) error {
	endpoint := strings.TrimSpace(in.Endpoint)
	if endpoint == "" {
		return NewValidationError("endpoint", "L'endpoint est requis.")
	}
	if parsed, err := url.Parse(endpoint); err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return NewValidationError("endpoint", "L'endpoint doit être une URL https.")
	}
	if strings.TrimSpace(in.Keys.P256dh) == "" || strings.TrimSpace(in.Keys.Auth) == "" {
		return NewValidationError("keys", "Les clés p256dh et auth sont requises.")
	}

	role := model.SubscriberRoleCustomer
	switch strings.TrimSpace(in.Role) {
	case "", string(model.SubscriberRoleCustomer):
	case string(model.SubscriberRoleOperator):
		role = model.SubscriberRoleOperator
	default:
		return NewValidationError("role", "Rôle invalide : customer ou operator.")
	}

	err := u.push.Save(ctx, model.PushSubscription{
		Endpoint: endpoint,
		P256dh:   strings.TrimSpace(in.Keys.P256dh),
		Auth:     strings.TrimSpace(in.Keys.Auth),
		Role:     role,
	})
	if err != nil {
		u.logger.Error("save push subscription failed", zap.Error(err))
		return &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
	}
	return nil
}

func (u *SubscriptionUsecase) UnsubscribePush(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return NewValidationError("endpoint", "L'endpoint est requis.")
	}

	err := u.push.Delete(ctx, endpoint)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "SUBSCRIPTION_NOT_FOUND", "Abonnement introuvable.")
	}
	if err != nil {
		u.logger.Error("delete push subscription failed", zap.Error(err))
		return &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
	}
	return nil
}

func (u *SubscriptionUsecase) SubscribeNewsletter(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return NewValidationError("email", "L'adresse e-mail est requise.")
	}
	if !IsEmailLike(email) {
		return NewValidationError("email", "L'adresse e-mail n'est pas valide.")
	}

	if err := u.newsletter.Subscribe(ctx, email); err != nil {
		u.logger.Error("newsletter subscribe failed", zap.Error(err))
		return &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
	}
	return nil
}
