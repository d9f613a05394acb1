package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier は bearer トークンを検証して呼び出し元を返す。
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (model.Actor, error)
}

// role クレームは大小文字を区別しない。未知の値は USER 扱い。
func roleFromClaim(v interface{}) model.Role {
	s, ok := v.(string)
	if !ok {
		return model.RoleUser
	}
	if strings.EqualFold(strings.TrimSpace(s), string(model.RoleAdmin)) {
		return model.RoleAdmin
	}
	return model.RoleUser
}
