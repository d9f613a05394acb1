package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier は Firebase Authentication の ID トークンを検証する。
// 管理者はカスタムクレーム admin=true か role=ADMIN。
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, rawToken string) (model.Actor, error) {
	tok, err := v.client.VerifyIDToken(ctx, rawToken)
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok == nil || tok.UID == "" {
		return model.Actor{}, ErrInvalidToken
	}

	role := roleFromClaim(tok.Claims["role"])
	if isAdmin, _ := tok.Claims["admin"].(bool); isAdmin {
		role = model.RoleAdmin
	}
	return model.Actor{UserID: tok.UID, Role: role}, nil
}
