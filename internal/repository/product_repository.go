package repository

import (
	"context"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

// 商品一覧の条件。Category が空なら全件。
type ProductListFilter struct {
	Category string
	Page     int
	Limit    int
}

func (f ProductListFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// 商品カタログの参照。カート追加前の存在・在庫チェックに使う。
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (model.Product, error)

	// 新しい順（created_at desc, id desc）
	List(ctx context.Context, f ProductListFilter) ([]model.Product, error)

	Upsert(ctx context.Context, p model.Product) error

	// 無ければ ErrNotFound。カートに入っている行はそのまま残る
	Delete(ctx context.Context, productID string) error
}
