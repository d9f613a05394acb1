package server

import (
	"github.com/labstack/echo/v4"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/graphql"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/handler"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/identity"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/middleware"
)

type Handlers struct {
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	Product      *handler.ProductHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminProduct *handler.AdminProductHandler
	Health       *handler.HealthHandler
	GraphQL      *graphql.Handler
}

// RegisterRoutes は REST と /graphql を登録する。/admin は管理者のみ
func RegisterRoutes(e *echo.Echo, verifier identity.TokenVerifier, h Handlers) {
	required := middleware.Authenticate(verifier, true)
	optional := middleware.Authenticate(verifier, false)

	h.Health.RegisterRoutes(e)
	h.Product.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, required)
	h.Order.RegisterRoutes(e, required)
	h.GraphQL.RegisterRoutes(e, optional)

	admin := e.Group("/admin", required, middleware.AdminRoleGuard())
	h.AdminOrder.RegisterRoutes(admin)
	h.AdminProduct.RegisterRoutes(admin)
}
