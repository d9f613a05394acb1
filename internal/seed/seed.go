package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

// ローカル開発用の商品
var catalog = []model.Product{
	{ID: "prod-001", Name: "Wireless Noise-Cancelling Headphones", Description: "Over-ear headphones with active noise cancellation and 30-hour battery life.", Price: decimal.RequireFromString("349.99"), Category: "Electronics", InStock: true},
	{ID: "prod-002", Name: "Mechanical Keyboard", Description: "Tactile switches with per-key lighting and aluminum frame.", Price: decimal.RequireFromString("179.99"), Category: "Electronics", InStock: true},
	{ID: "prod-003", Name: "Ultrawide Monitor 34\"", Description: "3440x1440 144Hz IPS panel with USB-C connectivity.", Price: decimal.RequireFromString("699.99"), Category: "Electronics", InStock: true},
	{ID: "prod-004", Name: "Ergonomic Office Chair", Description: "Adjustable lumbar support and breathable mesh.", Price: decimal.RequireFromString("549.99"), Category: "Furniture", InStock: true},
	{ID: "prod-005", Name: "LED Desk Lamp", Description: "Adjustable color temperature and brightness.", Price: decimal.RequireFromString("89.99"), Category: "Home", InStock: true},
	{ID: "prod-006", Name: "Laptop Backpack", Description: "Water-resistant with a padded 17\" compartment.", Price: decimal.RequireFromString("129.99"), Category: "Accessories", InStock: false},
}

// Products は未登録の商品だけを入れる。入れた件数を返す。
func Products(ctx context.Context, products repo.ProductRepository, now time.Time) (int, error) {
	n := 0
	for _, p := range catalog {
		_, err := products.FindByID(ctx, p.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return n, fmt.Errorf("seed lookup %s: %w", p.ID, err)
		}

		p.CreatedAt = now
		p.UpdatedAt = now
		if err := products.Upsert(ctx, p); err != nil {
			return n, fmt.Errorf("seed product %s: %w", p.ID, err)
		}
		n++
	}

	slog.InfoContext(ctx, "seeded products", "count", n)
	return n, nil
}
