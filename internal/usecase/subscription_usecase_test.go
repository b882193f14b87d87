package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/memstore"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSubscriptionUsecase() (*usecase.SubscriptionUsecase, *memstore.PushSubscriptionStore, *memstore.NewsletterStore) {
	push := memstore.NewPushSubscriptionStore()
	news := memstore.NewNewsletterStore()
	return usecase.NewSubscriptionUsecase(push, news, zap.NewNop()), push, news
}

func pushInput(endpoint, role string) usecase.PushSubscribeInput {
	in := usecase.PushSubscribeInput{Endpoint: endpoint, Role: role}
	in.Keys.P256dh = "BPk"
	in.Keys.Auth = "au"
	return in
}

func TestSubscribePush_DefaultsToCustomer(t *testing.T) {
	uc, push, _ := newSubscriptionUsecase()

	require.NoError(t, uc.SubscribePush(context.Background(), pushInput(" https://push.example/1 ", "")))

	subs, err := push.ListByRole(context.Background(), model.SubscriberRoleCustomer)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example/1", subs[0].Endpoint)
}

func TestSubscribePush_Operator(t *testing.T) {
	uc, push, _ := newSubscriptionUsecase()

	require.NoError(t, uc.SubscribePush(context.Background(), pushInput("https://push.example/op", "operator")))

	subs, _ := push.ListByRole(context.Background(), model.SubscriberRoleOperator)
	assert.Len(t, subs, 1)
}

func TestSubscribePush_Rejects(t *testing.T) {
	uc, _, _ := newSubscriptionUsecase()

	cases := []struct {
		name  string
		in    usecase.PushSubscribeInput
		field string
	}{
		{"no endpoint", pushInput("", ""), "endpoint"},
		{"plain http", pushInput("http://push.example/1", ""), "endpoint"},
		{"unknown role", pushInput("https://push.example/1", "admin"), "role"},
		{"missing keys", usecase.PushSubscribeInput{Endpoint: "https://push.example/1"}, "keys"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			he := requireHTTPError(t, uc.SubscribePush(context.Background(), tc.in))
			assert.Equal(t, http.StatusBadRequest, he.Status)
			assert.Equal(t, usecase.CodeValidation, he.Code)
			assert.Equal(t, tc.field, he.Field)
		})
	}
}

func TestUnsubscribePush(t *testing.T) {
	uc, _, _ := newSubscriptionUsecase()
	require.NoError(t, uc.SubscribePush(context.Background(), pushInput("https://push.example/1", "")))

	require.NoError(t, uc.UnsubscribePush(context.Background(), "https://push.example/1"))

	he := requireHTTPError(t, uc.UnsubscribePush(context.Background(), "https://push.example/1"))
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, "SUBSCRIPTION_NOT_FOUND", he.Code)
}

func TestSubscribeNewsletter(t *testing.T) {
	uc, _, news := newSubscriptionUsecase()

	require.NoError(t, uc.SubscribeNewsletter(context.Background(), " Fatou@Example.GN "))
	he := requireHTTPError(t, uc.SubscribeNewsletter(context.Background(), "fatou@"))
	assert.Equal(t, usecase.CodeValidation, he.Code)

	emails, _ := news.ListActiveEmails(context.Background())
	assert.Equal(t, []string{"fatou@example.gn"}, emails)
}
