package graphql

import (
	"context"
	"log/slog"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/usecase"
)

// gqlError は errors[].extensions に code / class を載せる。
// graphql-go は元エラーが Extensions() を持っていればそれを使う。
type gqlError struct {
	message    string
	extensions map[string]interface{}
}

func (e gqlError) Error() string { return e.message }

func (e gqlError) Extensions() map[string]interface{} { return e.extensions }

// toGQLError は内部の詳細（ドライバのエラー文など）を外に出さない。
func toGQLError(ctx context.Context, log *slog.Logger, err error) error {
	if ae, ok := usecase.AsAppError(err); ok {
		if ae.Kind == usecase.KindStoreUnavailable {
			log.ErrorContext(ctx, "store unavailable", "err", ae.Err)
		}
		return gqlError{message: ae.Message, extensions: ae.Extensions()}
	}

	log.ErrorContext(ctx, "unhandled resolver error", "err", err)
	return gqlError{
		message: "internal error",
		extensions: map[string]interface{}{
			"code":  "INTERNAL",
			"class": string(usecase.ClassUnavailable),
		},
	}
}
