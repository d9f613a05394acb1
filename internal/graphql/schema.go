package graphql

import (
	"context"
	"log/slog"

	gql "github.com/graphql-go/graphql"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/usecase"
)

type Deps struct {
	Carts    *usecase.CartUsecase
	Orders   *usecase.OrderUsecase
	Admin    *usecase.AdminOrderUsecase
	Products *usecase.ProductUsecase
	Logger   *slog.Logger
}

type ctxKey struct{}

// WithActor はリゾルバから見える呼び出し元を積む。
func WithActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func actorFrom(ctx context.Context) model.Actor {
	a, _ := ctx.Value(ctxKey{}).(model.Actor)
	return a
}

type resolver struct {
	Deps
}

// wrap はエラーを extensions 付きに変換する。
func (r *resolver) wrap(fn func(ctx context.Context, actor model.Actor, args map[string]interface{}) (interface{}, error)) gql.FieldResolveFn {
	return func(p gql.ResolveParams) (interface{}, error) {
		ctx := p.Context
		if ctx == nil {
			ctx = context.Background()
		}
		out, err := fn(ctx, actorFrom(ctx), p.Args)
		if err != nil {
			return nil, toGQLError(ctx, r.Logger, err)
		}
		return out, nil
	}
}

func str(args map[string]interface{}, k string) string {
	s, _ := args[k].(string)
	return s
}

func intArg(args map[string]interface{}, k string, def int) int {
	if v, ok := args[k].(int); ok {
		return v
	}
	return def
}

// NewSchema は Query / Mutation を組み立てる。
func NewSchema(d Deps) (gql.Schema, error) {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	r := &resolver{Deps: d}

	userArg := &gql.ArgumentConfig{Type: gql.String, Description: "Defaults to the caller; other users require admin."}

	query := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"cart": &gql.Field{
				Type:    cartType,
				Args:    gql.FieldConfigArgument{"userId": userArg},
				Resolve: r.wrap(r.cart),
			},
			"order": &gql.Field{
				Type:    orderType,
				Args:    gql.FieldConfigArgument{"orderId": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}},
				Resolve: r.wrap(r.order),
			},
			"ordersByUserId": &gql.Field{
				Type:    gql.NewList(gql.NewNonNull(orderType)),
				Args:    gql.FieldConfigArgument{"userId": userArg},
				Resolve: r.wrap(r.ordersByUserID),
			},
			"orders": &gql.Field{
				Type: gql.NewList(gql.NewNonNull(orderType)),
				Args: gql.FieldConfigArgument{
					"status": &gql.ArgumentConfig{Type: gql.String},
					"userId": &gql.ArgumentConfig{Type: gql.String},
					"page":   &gql.ArgumentConfig{Type: gql.Int},
					"limit":  &gql.ArgumentConfig{Type: gql.Int},
				},
				Resolve: r.wrap(r.adminOrders),
			},
			"product": &gql.Field{
				Type:    productType,
				Args:    gql.FieldConfigArgument{"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}},
				Resolve: r.wrap(r.product),
			},
			"products": &gql.Field{
				Type: gql.NewList(gql.NewNonNull(productType)),
				Args: gql.FieldConfigArgument{
					"category": &gql.ArgumentConfig{Type: gql.String},
					"page":     &gql.ArgumentConfig{Type: gql.Int},
					"limit":    &gql.ArgumentConfig{Type: gql.Int},
				},
				Resolve: r.wrap(r.products),
			},
			"productsByCategory": &gql.Field{
				Type:    gql.NewList(gql.NewNonNull(productType)),
				Args:    gql.FieldConfigArgument{"category": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)}},
				Resolve: r.wrap(r.productsByCategory),
			},
		},
	})

	productIDArg := &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}
	orderIDArg := &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}

	mutation := gql.NewObject(gql.ObjectConfig{
		Name: "Mutation",
		Fields: gql.Fields{
			"addToCart": &gql.Field{
				Type: cartType,
				Args: gql.FieldConfigArgument{
					"userId":    userArg,
					"productId": productIDArg,
					"quantity":  &gql.ArgumentConfig{Type: gql.Int, DefaultValue: 1},
				},
				Resolve: r.wrap(r.addToCart),
			},
			"removeFromCart": &gql.Field{
				Type:    cartType,
				Args:    gql.FieldConfigArgument{"userId": userArg, "productId": productIDArg},
				Resolve: r.wrap(r.removeFromCart),
			},
			"updateCartQuantity": &gql.Field{
				Type: cartType,
				Args: gql.FieldConfigArgument{
					"userId":    userArg,
					"productId": productIDArg,
					"quantity":  &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)},
				},
				Resolve: r.wrap(r.updateCartQuantity),
			},
			"clearCart": &gql.Field{
				Type:    cartType,
				Args:    gql.FieldConfigArgument{"userId": userArg},
				Resolve: r.wrap(r.clearCart),
			},
			"createOrder": &gql.Field{
				Type: orderType,
				Args: gql.FieldConfigArgument{
					"userId":          userArg,
					"shippingAddress": &gql.ArgumentConfig{Type: gql.NewNonNull(shippingAddressInput)},
					"idempotencyKey":  &gql.ArgumentConfig{Type: gql.String},
				},
				Resolve: r.wrap(r.createOrder),
			},
			"updateOrderStatus": &gql.Field{
				Type: orderType,
				Args: gql.FieldConfigArgument{
					"orderId": orderIDArg,
					"status":  &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
				},
				Resolve: r.wrap(r.updateOrderStatus),
			},
			"cancelOrder": &gql.Field{
				Type:    orderType,
				Args:    gql.FieldConfigArgument{"orderId": orderIDArg},
				Resolve: r.wrap(r.cancelOrder),
			},
			"deleteProduct": &gql.Field{
				Type:    gql.NewNonNull(gql.Boolean),
				Args:    gql.FieldConfigArgument{"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}},
				Resolve: r.wrap(r.deleteProduct),
			},
		},
	})

	return gql.NewSchema(gql.SchemaConfig{Query: query, Mutation: mutation})
}
