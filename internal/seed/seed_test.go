package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/memory"
)

func TestProducts_OnlyMissing(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := Products(ctx, s.Products(), now)
	require.NoError(t, err)
	assert.Equal(t, len(catalog), n)

	// 既存の商品は上書きしない
	p, err := s.Products().FindByID(ctx, "prod-001")
	require.NoError(t, err)
	p.Name = "renamed"
	require.NoError(t, s.Products().Upsert(ctx, p))

	n, err = Products(ctx, s.Products(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	p, err = s.Products().FindByID(ctx, "prod-001")
	require.NoError(t, err)
	assert.Equal(t, "renamed", p.Name)
	assert.Equal(t, now, p.CreatedAt)
}
