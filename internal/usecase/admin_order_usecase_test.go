package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/memory"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

func newAdminMocks() (*StoreMock, *OrderRepoMock, *AuditRepoMock, *PublisherMock, *AdminOrderUsecase) {
	orders := new(OrderRepoMock)
	audit := new(AuditRepoMock)
	store := &StoreMock{Repos: &TxReposMock{orders: orders, audit: audit}}
	events := new(PublisherMock)
	uc := NewAdminOrderUsecase(OrderDeps{Store: store, Events: events, IDs: &seqIDs{}, Clock: fixedClock{testNow}})
	return store, orders, audit, events, uc
}

func assertErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), sub), "error %q does not contain %q", err.Error(), sub)
	}
}

func TestAdminOrderUsecase_UpdateStatus_NonAdminRejected(t *testing.T) {
	store, orders, audit, events, uc := newAdminMocks()

	_, err := uc.UpdateStatus(context.Background(), userA, "o1", "shipped")
	assert.True(t, IsKind(err, KindNotAuthorized))

	_, err = uc.UpdateStatus(context.Background(), nobody, "o1", "shipped")
	assert.True(t, IsKind(err, KindNotAuthenticated))

	// トランザクションにも入らない
	store.AssertNotCalled(t, "WithinTx", mock.Anything)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "PublishOrderEvent", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_InvalidStatus(t *testing.T) {
	store, _, _, _, uc := newAdminMocks()

	_, err := uc.UpdateStatus(context.Background(), admin, "o1", "lost-in-mail")
	assert.True(t, IsKind(err, KindInvalidStatus))
	assertErrContains(t, err, "invalid status")
	store.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_NotFound(t *testing.T) {
	store, orders, _, _, uc := newAdminMocks()
	store.On("WithinTx", mock.Anything).Return(nil)
	orders.On("FindByID", mock.Anything, "o404").Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.UpdateStatus(context.Background(), admin, "o404", "shipped")
	assert.True(t, IsKind(err, KindOrderNotFound))
	assert.Equal(t, ClassNotFound, KindOrderNotFound.Class())
}

func TestAdminOrderUsecase_UpdateStatus_SameStatusIsNoop(t *testing.T) {
	store, orders, audit, events, uc := newAdminMocks()
	store.On("WithinTx", mock.Anything).Return(nil)
	orders.On("FindByID", mock.Anything, "o1").Return(model.Order{ID: "o1", Status: model.OrderStatusShipped}, nil)

	o, err := uc.UpdateStatus(context.Background(), admin, "o1", "SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, o.Status)

	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "PublishOrderEvent", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_TerminalRejected(t *testing.T) {
	store, orders, audit, _, uc := newAdminMocks()
	store.On("WithinTx", mock.Anything).Return(nil)
	orders.On("FindByID", mock.Anything, "o1").Return(model.Order{ID: "o1", Status: model.OrderStatusCancelled}, nil)

	_, err := uc.UpdateStatus(context.Background(), admin, "o1", "shipped")
	assert.True(t, IsKind(err, KindInvalidTransition))
	assertErrContains(t, err, "cannot change cancelled order")
	audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_WritesAuditAndPublishes(t *testing.T) {
	store, orders, audit, events, uc := newAdminMocks()
	store.On("WithinTx", mock.Anything).Return(nil)
	orders.On("FindByID", mock.Anything, "o1").
		Return(model.Order{ID: "o1", UserID: "u1", Status: model.OrderStatusPending, Total: decimal.NewFromInt(25)}, nil)
	orders.On("UpdateStatus", mock.Anything, "o1", model.OrderStatusPending, model.OrderStatusShipped, testNow).Return(nil)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == "admin-1" &&
			l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceType == model.AuditResourceOrder &&
			l.ResourceID == "o1" &&
			l.BeforeJSON == `{"status":"pending"}` &&
			l.AfterJSON == `{"status":"shipped"}`
	})).Return(nil)
	events.On("PublishOrderEvent", mock.Anything, mock.MatchedBy(func(ev model.OrderEvent) bool {
		return ev.Type == model.EventOrderStatusChanged &&
			ev.PreviousStatus == model.OrderStatusPending &&
			ev.Status == model.OrderStatusShipped &&
			ev.ActorUserID == "admin-1"
	})).Return(nil)

	o, err := uc.UpdateStatus(context.Background(), admin, "o1", "Shipped")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, o.Status)
	assert.Equal(t, testNow, o.UpdatedAt)

	orders.AssertExpectations(t)
	audit.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestAdminOrderUsecase_UpdateStatus_PublishFailureIsNotSurfaced(t *testing.T) {
	store, orders, audit, events, uc := newAdminMocks()
	store.On("WithinTx", mock.Anything).Return(nil)
	orders.On("FindByID", mock.Anything, "o1").Return(model.Order{ID: "o1", Status: model.OrderStatusShipped}, nil)
	orders.On("UpdateStatus", mock.Anything, "o1", model.OrderStatusShipped, model.OrderStatusDelivered, testNow).Return(nil)
	audit.On("Create", mock.Anything, mock.Anything).Return(nil)
	events.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	o, err := uc.UpdateStatus(context.Background(), admin, "o1", "delivered")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, o.Status)
}

func TestAdminOrderUsecase_UpdateStatus_AuditFailureFails(t *testing.T) {
	store, orders, audit, events, uc := newAdminMocks()
	store.On("WithinTx", mock.Anything).Return(nil)
	orders.On("FindByID", mock.Anything, "o1").Return(model.Order{ID: "o1", Status: model.OrderStatusPending}, nil)
	orders.On("UpdateStatus", mock.Anything, "o1", model.OrderStatusPending, model.OrderStatusProcessing, testNow).Return(nil)
	audit.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := uc.UpdateStatus(context.Background(), admin, "o1", "processing")
	assert.True(t, IsKind(err, KindStoreUnavailable))
	events.AssertNotCalled(t, "PublishOrderEvent", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_List(t *testing.T) {
	_, orders, _, _, uc := newAdminMocks()
	want := []model.Order{{ID: "o2"}, {ID: "o1"}}
	orders.On("List", mock.Anything, repo.OrderListFilter{Status: model.OrderStatusPending, Page: 1, Limit: 50}).Return(want, nil)

	got, err := uc.List(context.Background(), admin, AdminOrderListInput{Status: "Pending"})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = uc.List(context.Background(), admin, AdminOrderListInput{Status: "nope"})
	assert.True(t, IsKind(err, KindInvalidStatus))

	_, err = uc.List(context.Background(), admin, AdminOrderListInput{Limit: 1000})
	assert.True(t, IsKind(err, KindInvalidInput))

	_, err = uc.List(context.Background(), userA, AdminOrderListInput{})
	assert.True(t, IsKind(err, KindNotAuthorized))
}

// メモリストアで注文作成からステータス遷移まで通す
func TestAdminOrderUsecase_LifecycleWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	f := newOrderFixture(t, s)
	f.fillCart(t, "u1")
	o, err := f.orders.CreateOrder(ctx, "u1", CreateOrderInput{ShippingAddress: validAddress()})
	require.NoError(t, err)

	uc := NewAdminOrderUsecase(OrderDeps{Store: s, IDs: &seqIDs{}, Clock: fixedClock{testNow}})

	// 本人でもステータスは変えられない
	_, err = uc.UpdateStatus(ctx, userA, o.ID, "shipped")
	assert.True(t, IsKind(err, KindNotAuthorized))
	stored, err := f.orders.GetOrder(ctx, userA, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, stored.Status)

	for _, st := range []string{"processing", "shipped", "delivered"} {
		_, err = uc.UpdateStatus(ctx, admin, o.ID, st)
		require.NoError(t, err, st)
	}

	// 後戻りは不可
	_, err = uc.UpdateStatus(ctx, admin, o.ID, "pending")
	assert.True(t, IsKind(err, KindInvalidTransition))
	_, err = uc.Cancel(ctx, admin, o.ID)
	assert.True(t, IsKind(err, KindInvalidTransition))

	stored, err = f.orders.GetOrder(ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, stored.Status)
	// 明細・合計・住所は変わらない
	assert.Equal(t, o.Items, stored.Items)
	assert.True(t, o.Total.Equal(stored.Total))
	assert.Equal(t, o.ShippingAddress, stored.ShippingAddress)

	logs, err := uc.AuditLogs(ctx, admin, repo.AuditLogFilter{ResourceID: o.ID})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, `{"status":"delivered"}`, logs[0].AfterJSON)
}

func TestAdminOrderUsecase_Cancel(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	f := newOrderFixture(t, s)
	f.fillCart(t, "u1")
	o, err := f.orders.CreateOrder(ctx, "u1", CreateOrderInput{ShippingAddress: validAddress()})
	require.NoError(t, err)

	uc := NewAdminOrderUsecase(OrderDeps{Store: s, IDs: &seqIDs{}, Clock: fixedClock{testNow}})

	_, err = uc.Cancel(ctx, userA, o.ID)
	assert.True(t, IsKind(err, KindNotAuthorized))

	got, err := uc.Cancel(ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)

	logs, err := uc.AuditLogs(ctx, admin, repo.AuditLogFilter{Action: model.AuditActionCancelOrder})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = uc.UpdateStatus(ctx, admin, o.ID, "shipped")
	assert.True(t, IsKind(err, KindInvalidTransition))
}

// 読み取りをロックしないストア（READ COMMITTED や session なしの Mongo 相当）。
// FindByID の後で両方の読み取りが揃うまで待たせる
type unlockedTxStore struct {
	*memory.Store
	reads sync.WaitGroup
}

func (s *unlockedTxStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(unlockedRepos{s})
}

type unlockedRepos struct{ s *unlockedTxStore }

func (r unlockedRepos) Orders() repo.OrderRepository {
	return &barrierOrders{OrderRepository: r.s.Store.Orders(), reads: &r.s.reads}
}
func (r unlockedRepos) Carts() repo.CartRepository         { return r.s.Store.Carts() }
func (r unlockedRepos) AuditLogs() repo.AuditLogRepository { return r.s.Store.AuditLogs() }

type barrierOrders struct {
	repo.OrderRepository
	reads *sync.WaitGroup
}

func (b *barrierOrders) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	o, err := b.OrderRepository.FindByID(ctx, orderID)
	b.reads.Done()
	b.reads.Wait()
	return o, err
}

func TestAdminOrderUsecase_ConcurrentTransitionsOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	f := newOrderFixture(t, mem)
	f.fillCart(t, "u1")
	o, err := f.orders.CreateOrder(ctx, "u1", CreateOrderInput{ShippingAddress: validAddress()})
	require.NoError(t, err)

	s := &unlockedTxStore{Store: mem}
	s.reads.Add(2)
	uc := NewAdminOrderUsecase(OrderDeps{Store: s, IDs: &seqIDs{}, Clock: fixedClock{testNow}})

	var (
		wg                 sync.WaitGroup
		shipped, cancelled model.Order
		shipErr, cancelErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		shipped, shipErr = uc.UpdateStatus(ctx, admin, o.ID, "shipped")
	}()
	go func() {
		defer wg.Done()
		cancelled, cancelErr = uc.Cancel(ctx, admin, o.ID)
	}()
	wg.Wait()

	// 片方だけが通り、もう片方は競合になる
	var winner model.OrderStatus
	switch {
	case shipErr == nil:
		assert.True(t, IsKind(cancelErr, KindConflict), "cancel: %v", cancelErr)
		winner = shipped.Status
	case cancelErr == nil:
		assert.True(t, IsKind(shipErr, KindConflict), "ship: %v", shipErr)
		winner = cancelled.Status
	default:
		t.Fatalf("both transitions failed: %v / %v", shipErr, cancelErr)
	}

	stored, err := mem.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, winner, stored.Status)

	logs, err := uc.AuditLogs(ctx, admin, repo.AuditLogFilter{ResourceID: o.ID})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
