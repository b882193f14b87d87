package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/memstore"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/orderclient"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/metrics"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// helper
// =====================

type pipeline struct {
	uc       *usecase.OrderUsecase
	catalog  *memstore.Catalog
	runner   *queuedRunner
	notifier *NotifierMock
	clock    *fixedClock
}

func newPipeline(t *testing.T, tiers ...repo.OrderStore) *pipeline {
	t.Helper()

	m := metrics.NewNop()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	catalog := memstore.NewCatalog(model.Product{ID: "p1", Name: "Hoodie Grandson", Price: 80000, Stock: 5})
	runner := &queuedRunner{}
	notifier := new(NotifierMock)

	uc := usecase.NewOrderUsecase(usecase.OrderUsecaseDeps{
		Validator: validator.NewOrderValidator(),
		Numbers:   usecase.NewOrderNumberGenerator("GS", 8, clock),
		Tiers:     usecase.NewTierChain(tiers, zap.NewNop(), m),
		Inventory: usecase.NewInventoryLedger(catalog, 2, time.Second, zap.NewNop(), m),
		Notifier:  notifier,
		Runner:    runner,
		Clock:     clock,
		Attempts:  3,
		Logger:    zap.NewNop(),
		Metrics:   m,
	})

	return &pipeline{uc: uc, catalog: catalog, runner: runner, notifier: notifier, clock: clock}
}

func validCheckout() usecase.CheckoutInput {
	return usecase.CheckoutInput{
		CustomerName:    "Aissatou",
		CustomerPhone:   "+224621000001",
		DeliveryAddress: "Kaloum",
		DeliveryFee:     35000,
		TotalAmount:     115000,
		Items: []usecase.CheckoutItemInput{
			{ProductID: "p1", Size: "L", Quantity: 1, Price: 80000},
		},
	}
}

func requireHTTPError(t *testing.T, err error) *usecase.HTTPError {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	return he
}

// =====================
// PlaceOrder
// =====================

func TestPlaceOrder_EndToEnd(t *testing.T) {
	p := newPipeline(t, memstore.NewOrderStore())

	res, err := p.uc.PlaceOrder(context.Background(), validCheckout())

	require.NoError(t, err)
	assert.Regexp(t, orderNumberFormat, res.Order.OrderNumber)
	assert.Equal(t, model.OrderStatusPending, res.Order.Status)
	assert.Equal(t, int64(115000), res.Order.TotalAmount)
	assert.Equal(t, p.clock.Now(), res.Order.CreatedAt)
	assert.Len(t, res.Order.Items, 1)
}

// 空のカートはどの階層にも触れずに拒否
func TestPlaceOrder_EmptyItems_NoTierContacted(t *testing.T) {
	store := newStoreMock("postgres", true)
	p := newPipeline(t, store)

	in := validCheckout()
	in.Items = nil

	_, err := p.uc.PlaceOrder(context.Background(), in)

	he := requireHTTPError(t, err)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, usecase.CodeValidation, he.Code)
	assert.Equal(t, "items", he.Field)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, p.runner.Names())
}

// 数量0の明細は位置つきで拒否
func TestPlaceOrder_NonPositiveQuantity_IdentifiesItem(t *testing.T) {
	store := newStoreMock("postgres", true)
	p := newPipeline(t, store)

	in := validCheckout()
	in.Items = append(in.Items, usecase.CheckoutItemInput{ProductID: "p2", Size: "M", Quantity: 0, Price: 1000})

	_, err := p.uc.PlaceOrder(context.Background(), in)

	he := requireHTTPError(t, err)
	assert.Equal(t, "items[1].quantity", he.Field)
	assert.Contains(t, he.Message, "Article 2")
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_InvalidPhone(t *testing.T) {
	p := newPipeline(t, memstore.NewOrderStore())

	in := validCheckout()
	in.CustomerPhone = "12345"

	_, err := p.uc.PlaceOrder(context.Background(), in)

	he := requireHTTPError(t, err)
	assert.Equal(t, "customerPhone", he.Field)
}

// リモートが落ちてもDBで保存できれば警告は付かない
func TestPlaceOrder_RemoteDown_DurableSucceeds_NoWarning(t *testing.T) {
	remote := &downStore{name: "remote"}
	db := newStoreMock("postgres", true)
	db.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).
		Return(func(_ context.Context, o model.Order) model.Order { return o }, nil).Once()
	p := newPipeline(t, remote, db, memstore.NewOrderStore())

	res, err := p.uc.PlaceOrder(context.Background(), validCheckout())

	require.NoError(t, err)
	assert.Empty(t, res.Order.Warning)
	assert.Equal(t, 1, remote.Calls())
	db.AssertExpectations(t)
}

// リモート・DBが落ちたらメモリで受けて警告付き。その後の参照でも同じ注文
func TestPlaceOrder_TransientTier_WarningAndFetch(t *testing.T) {
	p := newPipeline(t, &downStore{name: "remote"}, &downStore{name: "postgres"}, memstore.NewOrderStore())

	res, err := p.uc.PlaceOrder(context.Background(), validCheckout())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Order.Warning)

	got, err := p.uc.GetOrder(context.Background(), res.Order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, res.Order.Order, got.Order)

	again, err := p.uc.GetOrder(context.Background(), res.Order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestPlaceOrder_AllTiersDown_Exhausted(t *testing.T) {
	p := newPipeline(t, &downStore{name: "remote"}, &downStore{name: "postgres"})

	_, err := p.uc.PlaceOrder(context.Background(), validCheckout())

	he := requireHTTPError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, he.Status)
	assert.Equal(t, usecase.CodePersistenceExhausted, he.Code)
	assert.ErrorIs(t, err, usecase.ErrPersistenceExhausted)

	// 在庫・通知は動かない
	prod, _ := p.catalog.Product("p1")
	assert.Equal(t, int64(5), prod.Stock)
	assert.Empty(t, p.runner.Names())
}

// 番号重複は新しい番号で再試行
func TestPlaceOrder_DuplicateNumber_Regenerates(t *testing.T) {
	db := newStoreMock("postgres", true)
	var seen []string
	db.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).
		Run(func(args mock.Arguments) { seen = append(seen, args.Get(1).(model.Order).OrderNumber) }).
		Return(model.Order{}, repo.ErrDuplicateOrderNumber).Once()
	db.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).
		Run(func(args mock.Arguments) { seen = append(seen, args.Get(1).(model.Order).OrderNumber) }).
		Return(func(_ context.Context, o model.Order) model.Order { return o }, nil).Once()
	p := newPipeline(t, db)

	res, err := p.uc.PlaceOrder(context.Background(), validCheckout())

	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.NotEqual(t, seen[0], seen[1])
	assert.Equal(t, seen[1], res.Order.OrderNumber)
}

// 重複が続いたら回数上限で諦める
func TestPlaceOrder_DuplicateNumber_BoundedRetry(t *testing.T) {
	db := newStoreMock("postgres", true)
	db.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).
		Return(model.Order{}, repo.ErrDuplicateOrderNumber)
	p := newPipeline(t, db)

	_, err := p.uc.PlaceOrder(context.Background(), validCheckout())

	he := requireHTTPError(t, err)
	assert.Equal(t, usecase.CodePersistenceExhausted, he.Code)
	db.AssertNumberOfCalls(t, "Create", 3)
}

// stock=5, qty=2 を3回 → 3, 1, -1（マイナスでも注文は拒否しない）
func TestPlaceOrder_InventorySequence(t *testing.T) {
	p := newPipeline(t, memstore.NewOrderStore())

	in := validCheckout()
	in.Items[0].Quantity = 2

	for _, want := range []int64{3, 1, -1} {
		_, err := p.uc.PlaceOrder(context.Background(), in)
		require.NoError(t, err)

		prod, ok := p.catalog.Product("p1")
		require.True(t, ok)
		assert.Equal(t, want, prod.Stock)
	}
	assert.Len(t, p.catalog.Adjustments(), 3)
}

// 階層が別の形の注文を返しても、組み立てた注文で在庫と通知を進める
func TestPlaceOrder_TierReplyDoesNotReplaceOrder(t *testing.T) {
	tier := newStoreMock("postgres", true)
	tier.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).
		Return(func(_ context.Context, o model.Order) model.Order {
			return model.Order{OrderNumber: o.OrderNumber, Status: "received"}
		}, nil).Once()
	p := newPipeline(t, tier)
	p.notifier.On("NotifyOrderCreated", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusPending && len(o.Items) == 1 && o.CustomerName == "Aissatou"
	})).Return(nil).Once()

	res, err := p.uc.PlaceOrder(context.Background(), validCheckout())

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, res.Order.Status)
	assert.Equal(t, "Aissatou", res.Order.CustomerName)
	assert.Len(t, res.Order.Items, 1)

	prod, ok := p.catalog.Product("p1")
	require.True(t, ok)
	assert.Equal(t, int64(4), prod.Stock)

	p.runner.RunAll()
	p.notifier.AssertExpectations(t)
}

// リモートの注文サービスが部分的な注文を返すケース
func TestPlaceOrder_RemotePartialEcho(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sent model.Order
		_ = json.NewDecoder(r.Body).Decode(&sent)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{"order": map[string]any{
				"orderNumber": sent.OrderNumber,
				"status":      "received",
			}},
		})
	}))
	defer srv.Close()

	mem := memstore.NewOrderStore()
	p := newPipeline(t, orderclient.NewRemoteStore(srv.URL, time.Second), mem)

	res, err := p.uc.PlaceOrder(context.Background(), validCheckout())

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, res.Order.Status)
	assert.Equal(t, "Aissatou", res.Order.CustomerName)
	assert.Len(t, res.Order.Items, 1)
	assert.Empty(t, res.Order.Warning)
	assert.Equal(t, 0, mem.Len())

	prod, ok := p.catalog.Product("p1")
	require.True(t, ok)
	assert.Equal(t, int64(4), prod.Stock)
}

// 在庫が見つからない商品があっても注文は成立
func TestPlaceOrder_UnknownProduct_StillSucceeds(t *testing.T) {
	p := newPipeline(t, memstore.NewOrderStore())

	in := validCheckout()
	in.Items[0].ProductID = "unknown"

	res, err := p.uc.PlaceOrder(context.Background(), in)

	require.NoError(t, err)
	assert.NotEmpty(t, res.Order.OrderNumber)
}

// 通知はレスポンス後に実行され、失敗しても結果に影響しない
func TestPlaceOrder_NotificationsScheduled(t *testing.T) {
	p := newPipeline(t, memstore.NewOrderStore())
	p.notifier.On("NotifyOrderCreated", mock.Anything, mock.AnythingOfType("model.Order")).
		Return(errors.New("smtp down")).Once()
	p.notifier.On("NotifyLowStock", mock.Anything, "Hoodie Grandson", int64(2)).Return(nil).Once()

	in := validCheckout()
	in.Items[0].Quantity = 3 // 5 -> 2（しきい値2）

	res, err := p.uc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Order.OrderNumber)

	// まだ何も送っていない
	p.notifier.AssertNotCalled(t, "NotifyOrderCreated", mock.Anything, mock.Anything)
	assert.Len(t, p.runner.Names(), 2)

	errs := p.runner.RunAll()
	assert.Error(t, errs[0])
	assert.NoError(t, errs[1])
	p.notifier.AssertExpectations(t)
}

// メール形式の誤りは拒否しない
func TestPlaceOrder_InvalidEmail_IsNote(t *testing.T) {
	p := newPipeline(t, memstore.NewOrderStore())

	in := validCheckout()
	in.CustomerEmail = "not-an-email"

	res, err := p.uc.PlaceOrder(context.Background(), in)

	require.NoError(t, err)
	assert.Empty(t, res.Order.CustomerEmail)
	assert.Len(t, res.Notes, 1)
}

// 検証後はクライアントの切断で止まらない
func TestPlaceOrder_ClientCancelAfterValidation(t *testing.T) {
	p := newPipeline(t, memstore.NewOrderStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.uc.PlaceOrder(ctx, validCheckout())

	require.NoError(t, err)
	assert.NotEmpty(t, res.Order.OrderNumber)
}

// =====================
// GetOrder
// =====================

func TestGetOrder_NotFound(t *testing.T) {
	p := newPipeline(t, memstore.NewOrderStore())

	_, err := p.uc.GetOrder(context.Background(), "GS00000000")

	he := requireHTTPError(t, err)
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, usecase.CodeOrderNotFound, he.Code)
}

func TestGetOrder_Blank(t *testing.T) {
	p := newPipeline(t, memstore.NewOrderStore())

	_, err := p.uc.GetOrder(context.Background(), "  ")

	he := requireHTTPError(t, err)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}
