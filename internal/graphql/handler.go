package graphql

import (
	"net/http"

	gql "github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/labstack/echo/v4"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/middleware"
)

// Request は標準的な GraphQL over HTTP のリクエスト本文。
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

type Handler struct {
	schema gql.Schema
}

func NewHandler(schema gql.Schema) *Handler {
	return &Handler{schema: schema}
}

// POST /graphql。auth はトークン任意のもの（未ログインでも到達し、リゾルバが弾く）
func (h *Handler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.POST("/graphql", h.serve, auth)
}

func (h *Handler) serve(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil || req.Query == "" {
		return c.JSON(http.StatusBadRequest, &gql.Result{
			Errors: []gqlerrors.FormattedError{gqlerrors.NewFormattedError("query is required")},
		})
	}

	ctx := WithActor(c.Request().Context(), middleware.ActorFromContext(c))
	res := gql.Do(gql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	// 実行時エラーも GraphQL の慣習どおり 200 で返す
	return c.JSON(http.StatusOK, res)
}
