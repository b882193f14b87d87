package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/memstore"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/metrics"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type dispatcherFixture struct {
	d        *usecase.NotificationDispatcher
	push     *PushSenderMock
	email    *EmailSenderMock
	events   *EventPublisherMock
	pushSubs *memstore.PushSubscriptionStore
}

func newDispatcher(t *testing.T, newsletter, customers staticEmails, operators []string) *dispatcherFixture {
	t.Helper()

	f := &dispatcherFixture{
		push:     new(PushSenderMock),
		email:    new(EmailSenderMock),
		events:   new(EventPublisherMock),
		pushSubs: memstore.NewPushSubscriptionStore(),
	}
	f.d = usecase.NewNotificationDispatcher(usecase.DispatcherDeps{
		Push:           f.push,
		Email:          f.email,
		Events:         f.events,
		PushSubs:       f.pushSubs,
		Newsletter:     newsletter,
		Customers:      customers,
		OperatorEmails: operators,
		Timeout:        time.Second,
		Concurrency:    4,
		Logger:         zap.NewNop(),
		Metrics:        metrics.NewNop(),
	})
	return f
}

func (f *dispatcherFixture) subscribe(t *testing.T, endpoint string, role model.SubscriberRole) model.PushSubscription {
	t.Helper()
	sub := model.PushSubscription{Endpoint: endpoint, P256dh: "key", Auth: "auth", Role: role}
	require.NoError(t, f.pushSubs.Save(context.Background(), sub))
	saved, err := f.pushSubs.ListByRole(context.Background(), "")
	require.NoError(t, err)
	for _, s := range saved {
		if s.Endpoint == endpoint {
			return s
		}
	}
	t.Fatalf("subscription %s not saved", endpoint)
	return model.PushSubscription{}
}

// =====================
// ResolveAudience
// =====================

// 購読元が重なっても1人1回
func TestResolveAudience_All_Deduplicates(t *testing.T) {
	f := newDispatcher(t,
		staticEmails{"fatou@example.gn", "mamadou@example.gn"},
		staticEmails{"FATOU@example.gn ", "ibrahima@example.gn"},
		nil)
	f.subscribe(t, "https://push.example/a", model.SubscriberRoleCustomer)
	f.subscribe(t, "https://push.example/op", model.SubscriberRoleOperator)

	got := f.d.ResolveAudience(context.Background(), usecase.AudienceAll)

	keys := make([]string, 0, len(got))
	for _, r := range got {
		keys = append(keys, r.Key())
	}
	assert.ElementsMatch(t, []string{
		"email:fatou@example.gn",
		"email:mamadou@example.gn",
		"email:ibrahima@example.gn",
		"push:https://push.example/a",
	}, keys)
}

func TestResolveAudience_Newsletter(t *testing.T) {
	f := newDispatcher(t, staticEmails{"a@example.gn"}, staticEmails{"b@example.gn"}, nil)
	f.subscribe(t, "https://push.example/a", model.SubscriberRoleCustomer)

	got := f.d.ResolveAudience(context.Background(), usecase.AudienceNewsletter)

	require.Len(t, got, 1)
	assert.Equal(t, "a@example.gn", got[0].Email)
}

// =====================
// Dispatch
// =====================

// 1件の購読切れで他の配信は止まらず、切れた購読は消える
func TestDispatch_GoneSubscription_IsolatedAndRemoved(t *testing.T) {
	f := newDispatcher(t, nil, nil, nil)
	good1 := f.subscribe(t, "https://push.example/1", model.SubscriberRoleCustomer)
	gone := f.subscribe(t, "https://push.example/gone", model.SubscriberRoleCustomer)
	good2 := f.subscribe(t, "https://push.example/2", model.SubscriberRoleCustomer)

	f.push.On("Send", mock.Anything, good1, mock.Anything).Return(nil).Once()
	f.push.On("Send", mock.Anything, gone, mock.Anything).Return(usecase.ErrSubscriptionGone).Once()
	f.push.On("Send", mock.Anything, good2, mock.Anything).Return(nil).Once()

	recipients := []usecase.Recipient{{Push: &good1}, {Push: &gone}, {Push: &good2}}
	report := f.d.Dispatch(context.Background(), recipients, usecase.Message{Title: "Promo", Body: "-20%"})

	assert.Equal(t, usecase.DispatchReport{Attempted: 3, Delivered: 2, Failed: 1, Removed: 1}, report)
	f.push.AssertExpectations(t)

	left, err := f.pushSubs.ListByRole(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

// 送信上限が未設定でも、既定の上限で送れる
func TestDispatch_ZeroTimeout_UsesDefault(t *testing.T) {
	email := new(EmailSenderMock)
	d := usecase.NewNotificationDispatcher(usecase.DispatcherDeps{
		Email:   email,
		Logger:  zap.NewNop(),
		Metrics: metrics.NewNop(),
	})
	email.On("Send", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ctx.Err() == nil && ok && time.Until(deadline) > time.Second
	}), mock.Anything).Return(nil).Once()

	report := d.Dispatch(context.Background(), []usecase.Recipient{{Email: "a@example.gn"}}, usecase.Message{Title: "x", Body: "y"})

	assert.Equal(t, usecase.DispatchReport{Attempted: 1, Delivered: 1}, report)
	email.AssertExpectations(t)
}

// 一時的な失敗では購読は消さない
func TestDispatch_TransientFailure_Kept(t *testing.T) {
	f := newDispatcher(t, nil, nil, nil)
	sub := f.subscribe(t, "https://push.example/flaky", model.SubscriberRoleCustomer)
	f.push.On("Send", mock.Anything, sub, mock.Anything).Return(errors.New("503")).Once()

	report := f.d.Dispatch(context.Background(), []usecase.Recipient{{Push: &sub}}, usecase.Message{Title: "x", Body: "y"})

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Removed)
	left, _ := f.pushSubs.ListByRole(context.Background(), "")
	assert.Len(t, left, 1)
}

// メール失敗も他の宛先に影響しない
func TestDispatch_EmailFailure_Isolated(t *testing.T) {
	f := newDispatcher(t, nil, nil, nil)
	f.email.On("Send", mock.Anything, mock.MatchedBy(func(m usecase.EmailMessage) bool { return m.To == "bad@example.gn" })).
		Return(errors.New("mailbox full")).Once()
	f.email.On("Send", mock.Anything, mock.MatchedBy(func(m usecase.EmailMessage) bool { return m.To == "ok@example.gn" })).
		Return(nil).Once()

	report := f.d.Dispatch(context.Background(),
		[]usecase.Recipient{{Email: "bad@example.gn"}, {Email: "ok@example.gn"}},
		usecase.Message{Title: "x", Body: "y", URL: "https://grandson.gn"})

	assert.Equal(t, usecase.DispatchReport{Attempted: 2, Delivered: 1, Failed: 1}, report)
	f.email.AssertExpectations(t)
}

// =====================
// Broadcast
// =====================

func TestBroadcast_InvalidAudience(t *testing.T) {
	f := newDispatcher(t, nil, nil, nil)

	_, err := f.d.Broadcast(context.Background(), usecase.BroadcastInput{Audience: "operators", Title: "x", Body: "y"})

	he := requireHTTPError(t, err)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "audience", he.Field)
}

func TestBroadcast_MissingTitle(t *testing.T) {
	f := newDispatcher(t, nil, nil, nil)

	_, err := f.d.Broadcast(context.Background(), usecase.BroadcastInput{Audience: "all", Body: "y"})

	he := requireHTTPError(t, err)
	assert.Equal(t, "title", he.Field)
}

func TestBroadcast_Newsletter(t *testing.T) {
	f := newDispatcher(t, staticEmails{"a@example.gn", "b@example.gn"}, nil, nil)
	f.email.On("Send", mock.Anything, mock.AnythingOfType("usecase.EmailMessage")).Return(nil).Twice()

	report, err := f.d.Broadcast(context.Background(), usecase.BroadcastInput{Audience: "newsletter", Title: "Drop", Body: "Nouvelle collection"})

	require.NoError(t, err)
	assert.Equal(t, usecase.DispatchReport{Attempted: 2, Delivered: 2}, report)
}

// =====================
// NotifyOrderCreated / NotifyLowStock
// =====================

func TestNotifyOrderCreated_OperatorsCustomerAndEvent(t *testing.T) {
	f := newDispatcher(t, nil, nil, []string{"ops@grandson.gn"})
	op := f.subscribe(t, "https://push.example/op", model.SubscriberRoleOperator)
	f.subscribe(t, "https://push.example/customer", model.SubscriberRoleCustomer)

	order := sampleOrder("GS00000042")
	order.CustomerEmail = "aissatou@example.gn"

	f.push.On("Send", mock.Anything, op, mock.MatchedBy(func(p usecase.PushPayload) bool {
		return p.Title == "Nouvelle commande GS00000042"
	})).Return(nil).Once()
	f.email.On("Send", mock.Anything, mock.MatchedBy(func(m usecase.EmailMessage) bool {
		return m.To == "ops@grandson.gn"
	})).Return(nil).Once()
	f.email.On("Send", mock.Anything, mock.MatchedBy(func(m usecase.EmailMessage) bool {
		return m.To == "aissatou@example.gn" && m.Subject == "Confirmation de votre commande GS00000042"
	})).Return(nil).Once()
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(ev usecase.OrderEvent) bool {
		return ev.Type == usecase.EventOrderCreated && ev.OrderNumber == "GS00000042" && ev.EventID != ""
	})).Return(nil).Once()

	err := f.d.NotifyOrderCreated(context.Background(), order)

	require.NoError(t, err)
	f.push.AssertExpectations(t)
	f.email.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestNotifyOrderCreated_FailureReported(t *testing.T) {
	f := newDispatcher(t, nil, nil, []string{"ops@grandson.gn"})
	f.email.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	err := f.d.NotifyOrderCreated(context.Background(), sampleOrder("GS00000043"))

	assert.ErrorIs(t, err, usecase.ErrNotification)
}

func TestNotifyLowStock(t *testing.T) {
	f := newDispatcher(t, nil, nil, []string{"ops@grandson.gn"})
	f.email.On("Send", mock.Anything, mock.MatchedBy(func(m usecase.EmailMessage) bool {
		return m.Subject == "Stock faible : Hoodie Grandson"
	})).Return(nil).Once()
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(ev usecase.OrderEvent) bool {
		return ev.Type == usecase.EventStockLow && ev.Stock == 1
	})).Return(nil).Once()

	err := f.d.NotifyLowStock(context.Background(), "Hoodie Grandson", 1)

	require.NoError(t, err)
	f.email.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestParseAudience(t *testing.T) {
	for _, s := range []string{"newsletter", "customers", "all"} {
		_, ok := usecase.ParseAudience(s)
		assert.True(t, ok, s)
	}
	_, ok := usecase.ParseAudience("operators")
	assert.False(t, ok)
}
