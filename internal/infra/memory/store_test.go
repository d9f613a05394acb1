package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository/repotest"
)

func TestStoreContract(t *testing.T) {
	repotest.RunStoreContract(t, func(t *testing.T) repo.Store { return NewStore() })
}

func TestCartRepo_SaveVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	carts := s.Carts()

	_, err := carts.FindByUserID(ctx, "u1")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	c := model.NewEmptyCart("u1")
	c.MergeItem("p1", 1, model.ProductSnapshot{Name: "Widget", UnitPrice: decimal.NewFromInt(10)}, time.Now())

	saved, err := carts.Save(ctx, c, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	// 古い version での書き込みは競合
	_, err = carts.Save(ctx, c, 0)
	assert.ErrorIs(t, err, repo.ErrConflict)

	saved, err = carts.Save(ctx, saved, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	// 存在しないのに version>0 も競合
	_, err = carts.Save(ctx, model.NewEmptyCart("u2"), 3)
	assert.ErrorIs(t, err, repo.ErrConflict)
}

func TestCartRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	c := model.NewEmptyCart("u1")
	c.MergeItem("p1", 1, model.ProductSnapshot{Name: "Widget", UnitPrice: decimal.NewFromInt(10)}, time.Now())
	_, err := s.Carts().Save(ctx, c, 0)
	require.NoError(t, err)

	got, err := s.Carts().FindByUserID(ctx, "u1")
	require.NoError(t, err)
	got.Items[0].Quantity = 50

	again, err := s.Carts().FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Items[0].Quantity)
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().Create(ctx, model.Order{ID: "o1", UserID: "u1", Status: model.OrderStatusPending}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Orders().FindByID(ctx, "o1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestWithinTx_Commit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.Orders().Create(ctx, model.Order{ID: "o1", UserID: "u1", Status: model.OrderStatusPending})
	})
	require.NoError(t, err)

	o, err := s.Orders().FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "u1", o.UserID)
}

func TestOrderRepo_DuplicateIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orders := s.Orders()

	require.NoError(t, orders.Create(ctx, model.Order{ID: "o1", UserID: "u1", IdempotencyKey: "k"}))
	assert.ErrorIs(t, orders.Create(ctx, model.Order{ID: "o2", UserID: "u1", IdempotencyKey: "k"}), repo.ErrDuplicate)
	assert.ErrorIs(t, orders.Create(ctx, model.Order{ID: "o1", UserID: "u2"}), repo.ErrDuplicate)

	// 別ユーザーなら同じキーでもよい
	require.NoError(t, orders.Create(ctx, model.Order{ID: "o3", UserID: "u2", IdempotencyKey: "k"}))

	o, found, err := orders.FindByIdempotencyKey(ctx, "u1", "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "o1", o.ID)
}

func TestOrderRepo_ListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orders := s.Orders()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, st := range []model.OrderStatus{model.OrderStatusPending, model.OrderStatusShipped, model.OrderStatusPending} {
		require.NoError(t, orders.Create(ctx, model.Order{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, orders.Create(ctx, model.Order{ID: "z", UserID: "u2", Status: model.OrderStatusPending, CreatedAt: base}))

	mine, err := orders.List(ctx, repo.OrderListFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, "c", mine[0].ID)

	pending, err := orders.List(ctx, repo.OrderListFilter{Status: model.OrderStatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	page2, err := orders.List(ctx, repo.OrderListFilter{UserID: "u1", Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "a", page2[0].ID)
}
