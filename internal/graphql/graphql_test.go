package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/memory"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/middleware"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/usecase"
)

type stubVerifier map[string]model.Actor

func (s stubVerifier) Verify(_ context.Context, raw string) (model.Actor, error) {
	if a, ok := s[raw]; ok {
		return a, nil
	}
	return model.Actor{}, errors.New("bad token")
}

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string                 `json:"message"`
		Extensions map[string]interface{} `json:"extensions"`
	} `json:"errors"`
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := memory.NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Products().Upsert(context.Background(), model.Product{
		ID: "p1", Name: "Widget", Price: decimal.RequireFromString("12.50"), Category: "tools", InStock: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.Products().Upsert(context.Background(), model.Product{
		ID: "p2", Name: "Field Guide", Price: decimal.NewFromInt(30), Category: "books", InStock: true, CreatedAt: now.Add(time.Hour), UpdatedAt: now,
	}))

	retry := usecase.RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	deps := usecase.OrderDeps{Store: store, Retry: retry}
	schema, err := NewSchema(Deps{
		Carts:    usecase.NewCartUsecase(store.Carts(), store.Products(), nil, nil, retry, nil),
		Orders:   usecase.NewOrderUsecase(deps),
		Admin:    usecase.NewAdminOrderUsecase(deps),
		Products: usecase.NewProductUsecase(store.Products(), nil),
	})
	require.NoError(t, err)

	e := echo.New()
	verifier := stubVerifier{
		"u1":    {UserID: "u1", Role: model.RoleUser},
		"admin": {UserID: "a1", Role: model.RoleAdmin},
	}
	NewHandler(schema).RegisterRoutes(e, middleware.Authenticate(verifier, false))
	return e
}

func exec(t *testing.T, e *echo.Echo, token, query string, vars map[string]interface{}) gqlResponse {
	t.Helper()
	body, err := json.Marshal(Request{Query: query, Variables: vars})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func field[T any](t *testing.T, res gqlResponse, name string) T {
	t.Helper()
	require.Empty(t, res.Errors)
	var v T
	require.NoError(t, json.Unmarshal(res.Data[name], &v))
	return v
}

type cartView struct {
	UserID string `json:"userId"`
	Items  []struct {
		ProductID string `json:"productId"`
		UnitPrice string `json:"unitPrice"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	Total     string `json:"total"`
	ItemCount int    `json:"itemCount"`
}

type orderView struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	Total           string `json:"total"`
	ItemCount       int    `json:"itemCount"`
	ShippingAddress struct {
		ZipCode string `json:"zipCode"`
	} `json:"shippingAddress"`
}

const cartFields = `userId items { productId unitPrice quantity } total itemCount`

func TestCartMutations(t *testing.T) {
	e := newServer(t)

	res := exec(t, e, "u1", `mutation { addToCart(productId: "p1", quantity: 2) { `+cartFields+` } }`, nil)
	c := field[cartView](t, res, "addToCart")
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "25", c.Total)
	assert.Equal(t, 2, c.ItemCount)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "12.5", c.Items[0].UnitPrice)

	// quantity 省略時は1
	res = exec(t, e, "u1", `mutation { addToCart(productId: "p1") { `+cartFields+` } }`, nil)
	assert.Equal(t, 3, field[cartView](t, res, "addToCart").ItemCount)

	res = exec(t, e, "u1", `mutation { updateCartQuantity(productId: "p1", quantity: 1) { `+cartFields+` } }`, nil)
	assert.Equal(t, "12.5", field[cartView](t, res, "updateCartQuantity").Total)

	res = exec(t, e, "u1", `mutation { removeFromCart(productId: "p1") { `+cartFields+` } }`, nil)
	c = field[cartView](t, res, "removeFromCart")
	assert.Empty(t, c.Items)
	assert.Equal(t, "0", c.Total)

	res = exec(t, e, "u1", `mutation { clearCart { itemCount } }`, nil)
	assert.Equal(t, 0, field[cartView](t, res, "clearCart").ItemCount)
}

func TestErrorsCarryCodeAndClass(t *testing.T) {
	e := newServer(t)

	cases := []struct {
		name, token, query, code, class string
	}{
		{"anonymous", "", `{ cart { total } }`, "NOT_AUTHENTICATED", "authentication_required"},
		{"other user's cart", "u1", `{ cart(userId: "u2") { total } }`, "NOT_AUTHORIZED", "forbidden"},
		{"bad quantity", "u1", `mutation { addToCart(productId: "p1", quantity: 0) { total } }`, "INVALID_QUANTITY", "bad_input"},
		{"unknown product", "u1", `mutation { addToCart(productId: "zz") { total } }`, "PRODUCT_NOT_FOUND", "not_found"},
		{"empty cart", "u1", `mutation { createOrder(shippingAddress: {street: "s", city: "c", state: "st", zipCode: "1", country: "US"}) { id } }`, "EMPTY_CART", "bad_input"},
		{"missing order", "u1", `{ order(orderId: "nope") { id } }`, "ORDER_NOT_FOUND", "not_found"},
		{"admin list as user", "u1", `{ orders { id } }`, "NOT_AUTHORIZED", "forbidden"},
		{"quantity over limit", "u1", `mutation { addToCart(productId: "p1", quantity: 1000) { total } }`, "INVALID_QUANTITY", "bad_input"},
		{"delete product as user", "u1", `mutation { deleteProduct(id: "p1") }`, "NOT_AUTHORIZED", "forbidden"},
		{"blank category", "", `{ productsByCategory(category: " ") { id } }`, "INVALID_INPUT", "bad_input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := exec(t, e, tc.token, tc.query, nil)
			require.Len(t, res.Errors, 1)
			assert.Equal(t, tc.code, res.Errors[0].Extensions["code"])
			assert.Equal(t, tc.class, res.Errors[0].Extensions["class"])
		})
	}
}

func TestOrderFlow(t *testing.T) {
	e := newServer(t)

	exec(t, e, "u1", `mutation { addToCart(productId: "p1", quantity: 2) { total } }`, nil)

	const create = `mutation Create($addr: ShippingAddressInput!, $key: String) {
		createOrder(shippingAddress: $addr, idempotencyKey: $key) { id status total itemCount shippingAddress { zipCode } }
	}`
	vars := map[string]interface{}{
		"addr": map[string]interface{}{"street": "1 Main St", "city": "Springfield", "state": "IL", "zipCode": "62701", "country": "US"},
		"key":  "checkout-1",
	}
	o := field[orderView](t, exec(t, e, "u1", create, vars), "createOrder")
	assert.Equal(t, "pending", o.Status)
	assert.Equal(t, "25", o.Total)
	assert.Equal(t, 2, o.ItemCount)
	assert.Equal(t, "62701", o.ShippingAddress.ZipCode)

	again := field[orderView](t, exec(t, e, "u1", create, vars), "createOrder")
	assert.Equal(t, o.ID, again.ID)

	c := field[cartView](t, exec(t, e, "u1", `{ cart { items { productId } total } }`, nil), "cart")
	assert.Empty(t, c.Items)

	list := field[[]orderView](t, exec(t, e, "u1", `{ ordersByUserId(userId: "u1") { id } }`, nil), "ordersByUserId")
	require.Len(t, list, 1)

	res := exec(t, e, "u1", `mutation { updateOrderStatus(orderId: "`+o.ID+`", status: "shipped") { status } }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "NOT_AUTHORIZED", res.Errors[0].Extensions["code"])

	res = exec(t, e, "admin", `mutation { updateOrderStatus(orderId: "`+o.ID+`", status: "SHIPPED") { status } }`, nil)
	assert.Equal(t, "shipped", field[orderView](t, res, "updateOrderStatus").Status)

	res = exec(t, e, "admin", `mutation { cancelOrder(orderId: "`+o.ID+`") { status } }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "INVALID_TRANSITION", res.Errors[0].Extensions["code"])

	res = exec(t, e, "admin", `mutation { updateOrderStatus(orderId: "`+o.ID+`", status: "lost") { status } }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "INVALID_STATUS", res.Errors[0].Extensions["code"])

	shipped := field[[]orderView](t, exec(t, e, "admin", `{ orders(status: "shipped") { id status } }`, nil), "orders")
	require.Len(t, shipped, 1)
	assert.Equal(t, o.ID, shipped[0].ID)

	got := field[orderView](t, exec(t, e, "admin", `{ order(orderId: "`+o.ID+`") { id status } }`, nil), "order")
	assert.Equal(t, "shipped", got.Status)
}

func TestProductQuery(t *testing.T) {
	e := newServer(t)
	res := exec(t, e, "", `{ product(id: "p1") { name price inStock } }`, nil)
	p := field[map[string]interface{}](t, res, "product")
	assert.Equal(t, "Widget", p["name"])
	assert.Equal(t, "12.5", p["price"])
	assert.Equal(t, true, p["inStock"])
}

func TestProductListingAndDelete(t *testing.T) {
	e := newServer(t)
	type productView struct {
		ID       string `json:"id"`
		Category string `json:"category"`
	}
	ids := func(ps []productView) []string {
		out := []string{}
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	res := exec(t, e, "", `{ products { id category } }`, nil)
	assert.Equal(t, []string{"p2", "p1"}, ids(field[[]productView](t, res, "products")))

	res = exec(t, e, "", `{ products(limit: 1, page: 2) { id } }`, nil)
	assert.Equal(t, []string{"p1"}, ids(field[[]productView](t, res, "products")))

	res = exec(t, e, "", `{ productsByCategory(category: "books") { id category } }`, nil)
	books := field[[]productView](t, res, "productsByCategory")
	require.Len(t, books, 1)
	assert.Equal(t, "p2", books[0].ID)
	assert.Equal(t, "books", books[0].Category)

	res = exec(t, e, "admin", `mutation { deleteProduct(id: "p2") }`, nil)
	assert.True(t, field[bool](t, res, "deleteProduct"))

	res = exec(t, e, "admin", `mutation { deleteProduct(id: "p2") }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "PRODUCT_NOT_FOUND", res.Errors[0].Extensions["code"])

	res = exec(t, e, "", `{ productsByCategory(category: "books") { id } }`, nil)
	assert.Empty(t, field[[]productView](t, res, "productsByCategory"))
}

func TestHandler_RejectsEmptyQuery(t *testing.T) {
	e := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToGQLError_HidesInternalDetail(t *testing.T) {
	err := toGQLError(context.Background(), slog.New(slog.DiscardHandler), errors.New("pq: connection refused"))
	var ge gqlError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "internal error", ge.Error())
	assert.Equal(t, "INTERNAL", ge.Extensions()["code"])
}
