package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/usecase"
)

//contextに入っているActorがADMINかどうかを確認します。

func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := ActorFromContext(c)
			if !actor.IsAuthenticated() {
				return unauthorized(c)
			}

			//USERは拒否、ADMINだけ許可
			if !actor.IsAdmin() {
				return c.JSON(http.StatusForbidden, errorResponse{
					Error: "admin only",
					Class: string(usecase.ClassForbidden),
				})
			}

			return next(c)
		}
	}
}
