package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/memory"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

// =====================
// 共通フェイク
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// 連番ID
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func fastRetry(tries uint) RetryPolicy {
	return RetryPolicy{MaxTries: tries, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

var (
	userA  = model.Actor{UserID: "u1", Role: model.RoleUser}
	userB  = model.Actor{UserID: "u2", Role: model.RoleUser}
	admin  = model.Actor{UserID: "admin-1", Role: model.RoleAdmin}
	nobody = model.Actor{}
)

func validAddress() model.ShippingAddress {
	return model.ShippingAddress{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}
}

// トランザクション非対応ストアの代わり
type sequentialStore struct {
	*memory.Store
}

func (sequentialStore) Atomic() bool { return false }

// Save を指定回数だけ競合させる
type flakyCarts struct {
	repo.CartRepository
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (f *flakyCarts) Save(ctx context.Context, c model.Cart, expected int64) (model.Cart, error) {
	f.mu.Lock()
	f.saves++
	if f.conflicts > 0 {
		f.conflicts--
		f.mu.Unlock()
		return model.Cart{}, repo.ErrConflict
	}
	f.mu.Unlock()
	return f.CartRepository.Save(ctx, c, expected)
}

// =====================
// testify mocks
// =====================

type CartCacheMock struct{ mock.Mock }

func (m *CartCacheMock) Get(ctx context.Context, userID string) (model.Cart, bool, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Bool(1), args.Error(2)
}

func (m *CartCacheMock) Set(ctx context.Context, cart model.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *CartCacheMock) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// StoreMock は WithinTx の中で渡す repos を固定して unit テストを回す
type StoreMock struct {
	mock.Mock
	Repos *TxReposMock
}

func (m *StoreMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

func (m *StoreMock) Atomic() bool                       { return true }
func (m *StoreMock) Carts() repo.CartRepository         { return m.Repos.carts }
func (m *StoreMock) Orders() repo.OrderRepository       { return m.Repos.orders }
func (m *StoreMock) Products() repo.ProductRepository   { panic("not used") }
func (m *StoreMock) AuditLogs() repo.AuditLogRepository { return m.Repos.audit }

type TxReposMock struct {
	orders repo.OrderRepository
	carts  repo.CartRepository
	audit  repo.AuditLogRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository       { return r.orders }
func (r *TxReposMock) Carts() repo.CartRepository         { return r.carts }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository { return r.audit }

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID string, from, to model.OrderStatus, updatedAt time.Time) error {
	args := m.Called(ctx, orderID, from, to, updatedAt)
	return args.Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, f)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}
