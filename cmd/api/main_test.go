package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/config"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/identity"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/memory"
)

func TestListenAddr(t *testing.T) {
	assert.Equal(t, ":8080", listenAddr("8080"))
	assert.Equal(t, ":9000", listenAddr(":9000"))
}

func TestWire_MemoryWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	log := slog.New(slog.DiscardHandler)

	cfg := config.Config{
		StoreDriver:     config.StoreMemory,
		AuthProvider:    config.AuthJWT,
		JWTSecret:       "s3cret",
		RedisAddr:       mr.Addr(),
		CartCacheTTL:    time.Minute,
		KafkaOrderTopic: "orders",
	}
	d, err := wire(context.Background(), cfg, log)
	require.NoError(t, err)
	defer d.close(log)

	assert.IsType(t, &memory.Store{}, d.store)
	assert.IsType(t, &identity.JWTVerifier{}, d.verifier)
	require.NotNil(t, d.cartCache)
	require.NotNil(t, d.events)

	require.Contains(t, d.health, "cache")
	assert.NoError(t, d.health["cache"](context.Background()))
	assert.NotContains(t, d.health, "store")

	mr.Close()
	assert.Error(t, d.health["cache"](context.Background()))
}

func TestNewLogger_Level(t *testing.T) {
	l := newLogger(config.Config{GoEnv: "prod", LogLevel: "warn"})
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, l.Enabled(context.Background(), slog.LevelWarn))

	l = newLogger(config.Config{GoEnv: "dev", LogLevel: "nonsense"})
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
}
