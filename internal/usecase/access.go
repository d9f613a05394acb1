package usecase

import (
	"strings"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

// ResolveUser は操作対象のユーザーを決める。userID が空なら actor 自身。
// 本人以外のカート・注文は管理者だけが触れる。
func ResolveUser(actor model.Actor, userID string) (string, error) {
	if !actor.IsAuthenticated() {
		return "", errNotAuthenticated
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return actor.UserID, nil
	}
	if !actor.CanAccessUser(userID) {
		return "", errNotAuthorized
	}
	return userID, nil
}

// requireAdmin は管理者以外を弾く。
func requireAdmin(actor model.Actor) error {
	if !actor.IsAuthenticated() {
		return errNotAuthenticated
	}
	if !actor.IsAdmin() {
		return errNotAuthorized
	}
	return nil
}
