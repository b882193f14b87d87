package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"

	"github.com/stretchr/testify/mock"
)

// =====================
// OrderStore モック
// =====================

type OrderStoreMock struct {
	mock.Mock
	name    string
	durable bool
}

func newStoreMock(name string, durable bool) *OrderStoreMock {
	return &OrderStoreMock{name: name, durable: durable}
}

func (m *OrderStoreMock) Name() string  { return m.name }
func (m *OrderStoreMock) Durable() bool { return m.durable }

func (m *OrderStoreMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	args := m.Called(ctx, order)
	// 受け取った注文をそのまま返すケース
	if fn, ok := args.Get(0).(func(context.Context, model.Order) model.Order); ok {
		return fn(ctx, order), args.Error(1)
	}
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderStoreMock) FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	args := m.Called(ctx, orderNumber)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

var _ repo.OrderStore = (*OrderStoreMock)(nil)

// 常に失敗する階層（タイムアウト相当）
type downStore struct {
	name  string
	calls int
	mu    sync.Mutex
}

func (s *downStore) Name() string  { return s.name }
func (s *downStore) Durable() bool { return true }

func (s *downStore) Create(ctx context.Context, order model.Order) (model.Order, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return model.Order{}, repo.ErrTierUnavailable
}

func (s *downStore) FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	return model.Order{}, repo.ErrTierUnavailable
}

func (s *downStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// =====================
// 時計
// =====================

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// =====================
// TaskRunner（登録だけして、テストから実行する）
// =====================

type queuedRunner struct {
	mu    sync.Mutex
	names []string
	tasks []func(ctx context.Context) error
}

func (r *queuedRunner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.tasks = append(r.tasks, fn)
}

func (r *queuedRunner) RunAll() []error {
	r.mu.Lock()
	tasks := append([]func(ctx context.Context) error(nil), r.tasks...)
	r.tasks = nil
	r.mu.Unlock()

	var errs []error
	for _, fn := range tasks {
		errs = append(errs, fn(context.Background()))
	}
	return errs
}

func (r *queuedRunner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

var _ usecase.TaskRunner = (*queuedRunner)(nil)

// =====================
// Notifier モック
// =====================

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) NotifyOrderCreated(ctx context.Context, order model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *NotifierMock) NotifyLowStock(ctx context.Context, productName string, stock int64) error {
	args := m.Called(ctx, productName, stock)
	return args.Error(0)
}

// =====================
// 送信側モック
// =====================

type PushSenderMock struct {
	mock.Mock
}

func (m *PushSenderMock) Send(ctx context.Context, sub model.PushSubscription, payload usecase.PushPayload) error {
	args := m.Called(ctx, sub, payload)
	return args.Error(0)
}

type EmailSenderMock struct {
	mock.Mock
}

func (m *EmailSenderMock) Send(ctx context.Context, msg usecase.EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type EventPublisherMock struct {
	mock.Mock
}

func (m *EventPublisherMock) Publish(ctx context.Context, event usecase.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// 固定の宛先
type staticEmails []string

func (s staticEmails) ListActiveEmails(ctx context.Context) ([]string, error) { return s, nil }
func (s staticEmails) ListCustomerEmails(ctx context.Context) ([]string, error) {
	return s, nil
}
func (s staticEmails) Subscribe(ctx context.Context, email string) error { return nil }
