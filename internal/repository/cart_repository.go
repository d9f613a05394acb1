package repository

import (
	"context"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

// カート（docID = userID）の保存・取得の約束。
type CartRepository interface {
	// 無ければ ErrNotFound
	FindByUserID(ctx context.Context, userID string) (model.Cart, error)

	// 保存済みの version が expectedVersion と一致するときだけ丸ごと書き込む。
	// expectedVersion=0 は「まだ存在しない」。一致しなければ ErrConflict。
	// 戻り値は version を進めたカート。
	Save(ctx context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error)

	Delete(ctx context.Context, userID string) error
}
