package model

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Actor はトークン検証済みの呼び出し元。UserID が空なら未認証。
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != ""
}

func (a Actor) IsAdmin() bool {
	return a.IsAuthenticated() && a.Role == RoleAdmin
}

// CanAccessUser は userID のカート・注文に触れてよいか（本人 or 管理者）。
func (a Actor) CanAccessUser(userID string) bool {
	return a.IsAdmin() || (a.IsAuthenticated() && a.UserID == userID)
}
