package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/usecase"
)

// ErrorResponse は画面側が class で出し分けられる形。
type ErrorResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

// SuccessResponse は本文の無い成功。
type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	ctx := c.Request().Context()
	reqID := c.Response().Header().Get(echo.HeaderXRequestID)
	if ae, ok := usecase.AsAppError(err); ok {
		if ae.Kind == usecase.KindStoreUnavailable {
			slog.ErrorContext(ctx, "store unavailable", "request_id", reqID, "path", c.Path(), "err", ae.Err)
		}
		return c.JSON(ae.Kind.HTTPStatus(), ErrorResponse{Error: ae.Message, Class: string(ae.Class())})
	}

	//500
	slog.ErrorContext(ctx, "unhandled error", "request_id", reqID, "path", c.Path(), "err", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Class: string(usecase.ClassUnavailable)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Class: string(usecase.ClassBadInput)})
}

// queryInt は空なら def。数字でなければ ok=false。
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}
