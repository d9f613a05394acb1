package graphql

import (
	"context"
	"strings"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/usecase"
)

type args = map[string]interface{}

func (r *resolver) cart(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	userID, err := usecase.ResolveUser(actor, str(a, "userId"))
	if err != nil {
		return nil, err
	}
	c, err := r.Carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cartMap(c), nil
}

func (r *resolver) addToCart(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	userID, err := usecase.ResolveUser(actor, str(a, "userId"))
	if err != nil {
		return nil, err
	}
	c, err := r.Carts.AddProduct(ctx, userID, str(a, "productId"), int64(intArg(a, "quantity", 1)))
	if err != nil {
		return nil, err
	}
	return cartMap(c), nil
}

func (r *resolver) removeFromCart(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	userID, err := usecase.ResolveUser(actor, str(a, "userId"))
	if err != nil {
		return nil, err
	}
	c, err := r.Carts.RemoveItem(ctx, userID, str(a, "productId"))
	if err != nil {
		return nil, err
	}
	return cartMap(c), nil
}

func (r *resolver) updateCartQuantity(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	userID, err := usecase.ResolveUser(actor, str(a, "userId"))
	if err != nil {
		return nil, err
	}
	c, err := r.Carts.UpdateItemQuantity(ctx, userID, str(a, "productId"), int64(intArg(a, "quantity", 0)))
	if err != nil {
		return nil, err
	}
	return cartMap(c), nil
}

func (r *resolver) clearCart(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	userID, err := usecase.ResolveUser(actor, str(a, "userId"))
	if err != nil {
		return nil, err
	}
	c, err := r.Carts.ClearCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cartMap(c), nil
}

func (r *resolver) createOrder(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	userID, err := usecase.ResolveUser(actor, str(a, "userId"))
	if err != nil {
		return nil, err
	}
	o, err := r.Orders.CreateOrder(ctx, userID, usecase.CreateOrderInput{
		ShippingAddress: addressArg(a["shippingAddress"]),
		IdempotencyKey:  str(a, "idempotencyKey"),
	})
	if err != nil {
		return nil, err
	}
	return orderMap(o), nil
}

func (r *resolver) order(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	o, err := r.Orders.GetOrder(ctx, actor, str(a, "orderId"))
	if err != nil {
		return nil, err
	}
	return orderMap(o), nil
}

func (r *resolver) ordersByUserID(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	orders, err := r.Orders.ListOrders(ctx, actor, str(a, "userId"))
	if err != nil {
		return nil, err
	}
	return ordersList(orders), nil
}

func (r *resolver) adminOrders(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	orders, err := r.Admin.List(ctx, actor, usecase.AdminOrderListInput{
		Status: str(a, "status"),
		UserID: str(a, "userId"),
		Page:   intArg(a, "page", 0),
		Limit:  intArg(a, "limit", 0),
	})
	if err != nil {
		return nil, err
	}
	return ordersList(orders), nil
}

func (r *resolver) updateOrderStatus(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	o, err := r.Admin.UpdateStatus(ctx, actor, str(a, "orderId"), str(a, "status"))
	if err != nil {
		return nil, err
	}
	return orderMap(o), nil
}

func (r *resolver) cancelOrder(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	o, err := r.Admin.Cancel(ctx, actor, str(a, "orderId"))
	if err != nil {
		return nil, err
	}
	return orderMap(o), nil
}

func (r *resolver) product(ctx context.Context, _ model.Actor, a args) (interface{}, error) {
	p, err := r.Products.GetProduct(ctx, str(a, "id"))
	if err != nil {
		return nil, err
	}
	return productMap(p), nil
}

func (r *resolver) products(ctx context.Context, _ model.Actor, a args) (interface{}, error) {
	out, err := r.Products.ListProducts(ctx, usecase.ListProductsInput{
		Category: str(a, "category"),
		Page:     intArg(a, "page", 0),
		Limit:    intArg(a, "limit", 0),
	})
	if err != nil {
		return nil, err
	}
	return productsList(out.Items), nil
}

// 画面のカテゴリ棚用。先頭 100 件まで
func (r *resolver) productsByCategory(ctx context.Context, _ model.Actor, a args) (interface{}, error) {
	category := strings.TrimSpace(str(a, "category"))
	if category == "" {
		return nil, usecase.NewAppError(usecase.KindInvalidInput, "category required")
	}
	out, err := r.Products.ListProducts(ctx, usecase.ListProductsInput{Category: category, Limit: 100})
	if err != nil {
		return nil, err
	}
	return productsList(out.Items), nil
}

func (r *resolver) deleteProduct(ctx context.Context, actor model.Actor, a args) (interface{}, error) {
	if err := r.Products.AdminDeleteProduct(ctx, actor, str(a, "id")); err != nil {
		return nil, err
	}
	return true, nil
}
