package repository

import (
	"context"
	"time"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

// 一覧の絞り込み条件。空文字は条件なし。
type OrderListFilter struct {
	UserID string
	Status model.OrderStatus
	Page   int
	Limit  int
}

// Offset は Page/Limit から読み飛ばし件数を出す。
func (f OrderListFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (model.Order, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error)

	// 新しい順
	List(ctx context.Context, f OrderListFilter) ([]model.Order, error)

	// ID または (userID, 冪等キー) が重複したら ErrDuplicate
	Create(ctx context.Context, order model.Order) error

	// 現在の status が from のときだけ to に書き換える（compare-and-set）。
	// 注文が無ければ ErrNotFound、status が from でなければ ErrConflict
	UpdateStatus(ctx context.Context, orderID string, from, to model.OrderStatus, updatedAt time.Time) error
}
