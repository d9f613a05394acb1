// Package repotest はストア実装ごとに同じ振る舞いを確認する共通テスト。
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

// 秒単位に揃える（バックエンドごとに時刻の精度が違う）
var base = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

// RunStoreContract は newStore が返す空のストアに対して共通の振る舞いを確認する。
// newStore はサブテストごとに呼ばれる。
func RunStoreContract(t *testing.T, newStore func(t *testing.T) repo.Store) {
	t.Run("CartVersioning", func(t *testing.T) { testCartVersioning(t, newStore(t)) })
	t.Run("OrderUniqueness", func(t *testing.T) { testOrderUniqueness(t, newStore(t)) })
	t.Run("OrderListAndStatus", func(t *testing.T) { testOrderListAndStatus(t, newStore(t)) })
	t.Run("Products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("AuditLogs", func(t *testing.T) { testAuditLogs(t, newStore(t)) })
	if s := newStore(t); s.Atomic() {
		t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, s) })
	}
}

func cartWith(userID string, items ...model.CartItem) model.Cart {
	c := model.NewEmptyCart(userID)
	c.Items = append(c.Items, items...)
	c.CreatedAt = base
	c.UpdatedAt = base
	c.Recalculate()
	return c
}

func item(id string, price string, qty int64) model.CartItem {
	return model.CartItem{
		ProductID: id,
		Name:      "Item " + id,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
		AddedAt:   base,
	}
}

func testCartVersioning(t *testing.T, s repo.Store) {
	ctx := context.Background()
	carts := s.Carts()

	_, err := carts.FindByUserID(ctx, "u1")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	// 存在しないのに version>0 を期待したら競合
	_, err = carts.Save(ctx, cartWith("u1"), 3)
	assert.ErrorIs(t, err, repo.ErrConflict)

	saved, err := carts.Save(ctx, cartWith("u1", item("p1", "10.50", 2)), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	// 2回目の新規作成は負ける
	_, err = carts.Save(ctx, cartWith("u1"), 0)
	assert.ErrorIs(t, err, repo.ErrConflict)

	next := cartWith("u1", item("p1", "10.50", 2), item("p2", "0.99", 3))
	next.UpdatedAt = base.Add(time.Minute)
	saved, err = carts.Save(ctx, next, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	// 古い version では書けない
	_, err = carts.Save(ctx, cartWith("u1"), 1)
	assert.ErrorIs(t, err, repo.ErrConflict)

	got, err := carts.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	assert.Equal(t, "p2", got.Items[1].ProductID)
	assert.True(t, got.Items[1].UnitPrice.Equal(decimal.RequireFromString("0.99")))
	assert.True(t, got.Total.Equal(decimal.RequireFromString("23.97")), got.Total.String())
	assert.Equal(t, int64(5), got.ItemCount)
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Minute)))

	// 空カートも保存できる
	saved, err = carts.Save(ctx, cartWith("u1"), 2)
	require.NoError(t, err)
	got, err = carts.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.NotNil(t, got.Items)
	assert.Equal(t, saved.Version, got.Version)

	require.NoError(t, carts.Delete(ctx, "u1"))
	_, err = carts.FindByUserID(ctx, "u1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func order(id, userID, key string, at time.Time) model.Order {
	c := cartWith(userID, item("p1", "10", 2), item("p2", "5", 1))
	addr := model.ShippingAddress{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}
	return model.NewOrderFromCart(id, c, addr, key, at)
}

func testOrderUniqueness(t *testing.T, s repo.Store) {
	ctx := context.Background()
	orders := s.Orders()

	require.NoError(t, orders.Create(ctx, order("o1", "u1", "k1", base)))

	err := orders.Create(ctx, order("o1", "u2", "", base))
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	err = orders.Create(ctx, order("o2", "u1", "k1", base))
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	// 冪等キーはユーザーごと。空キーは何件でも可
	require.NoError(t, orders.Create(ctx, order("o3", "u2", "k1", base)))
	require.NoError(t, orders.Create(ctx, order("o4", "u1", "", base)))
	require.NoError(t, orders.Create(ctx, order("o5", "u1", "", base)))

	got, found, err := orders.FindByIdempotencyKey(ctx, "u1", "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "o1", got.ID)

	_, found, err = orders.FindByIdempotencyKey(ctx, "u1", "nope")
	require.NoError(t, err)
	assert.False(t, found)

	o, err := orders.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, int64(3), o.ItemCount)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "p1", o.Items[0].ProductID)
	assert.Equal(t, int64(2), o.Items[0].Quantity)
	assert.Equal(t, "Springfield", o.ShippingAddress.City)
	assert.Equal(t, "62701", o.ShippingAddress.ZipCode)
	assert.True(t, o.CreatedAt.Equal(base))

	_, err = orders.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func testOrderListAndStatus(t *testing.T, s repo.Store) {
	ctx := context.Background()
	orders := s.Orders()

	for i, id := range []string{"a", "b", "c", "d"} {
		userID := "u1"
		if id == "c" {
			userID = "u2"
		}
		require.NoError(t, orders.Create(ctx, order(id, userID, "", base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := orders.List(ctx, repo.OrderListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids(all))

	mine, err := orders.List(ctx, repo.OrderListFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "a"}, ids(mine))

	page2, err := orders.List(ctx, repo.OrderListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(page2))

	page3, err := orders.List(ctx, repo.OrderListFilter{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page3)

	later := base.Add(24 * time.Hour)
	require.NoError(t, orders.UpdateStatus(ctx, "b", model.OrderStatusPending, model.OrderStatusShipped, later))

	shipped, err := orders.List(ctx, repo.OrderListFilter{Status: model.OrderStatusShipped})
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, ids(shipped))
	assert.True(t, shipped[0].UpdatedAt.Equal(later))
	assert.True(t, shipped[0].CreatedAt.Equal(base.Add(time.Hour)))
	assert.Len(t, shipped[0].Items, 2)

	err = orders.UpdateStatus(ctx, "zzz", model.OrderStatusPending, model.OrderStatusShipped, later)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	// 読んだ時点の status と違えば書き換えない
	err = orders.UpdateStatus(ctx, "b", model.OrderStatusPending, model.OrderStatusCancelled, later.Add(time.Hour))
	assert.ErrorIs(t, err, repo.ErrConflict)
	got, err := orders.FindByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, got.Status)
	assert.True(t, got.UpdatedAt.Equal(later))
}

func ids(orders []model.Order) []string {
	out := []string{}
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func testProducts(t *testing.T, s repo.Store) {
	ctx := context.Background()
	products := s.Products()

	_, err := products.FindByID(ctx, "p1")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	p := model.Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("9.99"), Category: "tools", InStock: true, CreatedAt: base, UpdatedAt: base}
	require.NoError(t, products.Upsert(ctx, p))

	p.Name = "Widget v2"
	p.InStock = false
	p.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, products.Upsert(ctx, p))

	got, err := products.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", got.Name)
	assert.False(t, got.InStock)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("9.99")))
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))

	for i, c := range []string{"books", "tools", "books"} {
		id := fmt.Sprintf("p%d", i+2)
		require.NoError(t, products.Upsert(ctx, model.Product{
			ID: id, Name: id, Price: decimal.NewFromInt(1), Category: c, InStock: true,
			CreatedAt: base.Add(time.Duration(i+1) * time.Hour), UpdatedAt: base,
		}))
	}

	all, err := products.List(ctx, repo.ProductListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p3", "p2", "p1"}, productIDs(all))

	books, err := products.List(ctx, repo.ProductListFilter{Category: "books"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p2"}, productIDs(books))

	page2, err := products.List(ctx, repo.ProductListFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, productIDs(page2))

	require.NoError(t, products.Delete(ctx, "p3"))
	assert.ErrorIs(t, products.Delete(ctx, "p3"), repo.ErrNotFound)
	_, err = products.FindByID(ctx, "p3")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	tools, err := products.List(ctx, repo.ProductListFilter{Category: "tools"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, productIDs(tools))
}

func productIDs(products []model.Product) []string {
	out := []string{}
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func testAuditLogs(t *testing.T, s repo.Store) {
	ctx := context.Background()
	logs := s.AuditLogs()

	for i, id := range []string{"l1", "l2", "l3"} {
		action := model.AuditActionUpdateOrderStatus
		if id == "l3" {
			action = model.AuditActionCancelOrder
		}
		require.NoError(t, logs.Create(ctx, model.AuditLog{
			ID:           id,
			ActorUserID:  "admin-1",
			Action:       action,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   "o1",
			BeforeJSON:   `{"status":"pending"}`,
			AfterJSON:    `{"status":"shipped"}`,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := logs.List(ctx, repo.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "l3", all[0].ID)
	assert.Equal(t, "l1", all[2].ID)
	assert.Equal(t, `{"status":"pending"}`, all[2].BeforeJSON)

	cancels, err := logs.List(ctx, repo.AuditLogFilter{Action: model.AuditActionCancelOrder})
	require.NoError(t, err)
	require.Len(t, cancels, 1)
	assert.Equal(t, "l3", cancels[0].ID)

	from := base.Add(30 * time.Second)
	recent, err := logs.List(ctx, repo.AuditLogFilter{CreatedFrom: &from, Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "l3", recent[0].ID)
}

var errAbort = errors.New("abort")

func testTxRollback(t *testing.T, s repo.Store) {
	ctx := context.Background()

	_, err := s.Carts().Save(ctx, cartWith("u1", item("p1", "10", 1)), 0)
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Carts().Save(ctx, cartWith("u1"), 1); err != nil {
			return err
		}
		if err := r.Orders().Create(ctx, order("o1", "u1", "k", base)); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	c, err := s.Carts().FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Version)
	assert.Len(t, c.Items, 1)
	_, err = s.Orders().FindByID(ctx, "o1")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	err = s.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Carts().Save(ctx, cartWith("u1"), 1); err != nil {
			return err
		}
		return r.Orders().Create(ctx, order("o1", "u1", "k", base))
	})
	require.NoError(t, err)

	c, err = s.Carts().FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Version)
	assert.Empty(t, c.Items)
	_, err = s.Orders().FindByID(ctx, "o1")
	assert.NoError(t, err)
}
