package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 商品カタログのレコード。カート側は Snapshot() の値だけを使う。
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	InStock     bool            `json:"in_stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		Name:      p.Name,
		Image:     p.Image,
		UnitPrice: p.Price,
	}
}
