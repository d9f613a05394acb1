package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	cases := map[string]OrderStatus{
		"pending":     OrderStatusPending,
		"PENDING":     OrderStatusPending,
		" Processing": OrderStatusProcessing,
		"Shipped":     OrderStatusShipped,
		"delivered":   OrderStatusDelivered,
		"Cancelled":   OrderStatusCancelled,
		"CANCELED":    OrderStatusCancelled,
	}
	for in, want := range cases {
		got, ok := ParseOrderStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseOrderStatus("lost")
	assert.False(t, ok)
	_, ok = ParseOrderStatus("")
	assert.False(t, ok)
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusProcessing))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusShipped))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusProcessing.CanTransitionTo(OrderStatusShipped))
	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))

	// 後戻り・終端からの遷移は不可
	assert.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusShipped))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusDelivered))

	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestNewOrderFromCart_DeepCopiesItems(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cart := NewEmptyCart("u1")
	cart.MergeItem("p1", 2, ProductSnapshot{Name: "Widget", UnitPrice: decimal.NewFromInt(10)}, now)
	cart.MergeItem("p2", 1, ProductSnapshot{Name: "Bolt", UnitPrice: decimal.NewFromInt(5)}, now)

	addr := ShippingAddress{Street: "1 Main", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}
	o := NewOrderFromCart("o1", cart, addr, "k1", now)

	require.Len(t, o.Items, 2)
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, int64(3), o.ItemCount)
	assert.Equal(t, now, o.CreatedAt)
	assert.Equal(t, now, o.UpdatedAt)
	assert.Equal(t, addr, o.ShippingAddress)

	// カートを後から変更しても注文は変わらない
	cart.Items[0].Quantity = 99
	cart.Items[0].UnitPrice = decimal.NewFromInt(1000)
	cart.Recalculate()

	assert.Equal(t, int64(2), o.Items[0].Quantity)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(25)))
}

func TestShippingAddress_Validate(t *testing.T) {
	ok := ShippingAddress{Street: " 1 Main ", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}.Normalize()
	assert.NoError(t, ok.Validate())
	assert.Equal(t, "1 Main", ok.Street)

	missing := ShippingAddress{Street: "1 Main", City: "   ", State: "IL", ZipCode: "62701", Country: "US"}.Normalize()
	assert.Error(t, missing.Validate())

	assert.Error(t, ShippingAddress{}.Validate())
}

func TestActor_CanAccessUser(t *testing.T) {
	assert.True(t, Actor{UserID: "u1", Role: RoleUser}.CanAccessUser("u1"))
	assert.False(t, Actor{UserID: "u1", Role: RoleUser}.CanAccessUser("u2"))
	assert.True(t, Actor{UserID: "a1", Role: RoleAdmin}.CanAccessUser("u2"))
	assert.False(t, Actor{Role: RoleAdmin}.CanAccessUser("u2"))
}
