// Package cache は GetCart の読み取りキャッシュ（Redis）。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

const keyPrefix = "cart:"

// RedisCache はカートを JSON で保存する。TTL には最大 maxJitter の揺らぎを足す。
type RedisCache struct {
	client    redis.Cmdable
	baseTTL   time.Duration
	maxJitter time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{
		client:    client,
		baseTTL:   ttl,
		maxJitter: ttl / 3,
	}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (model.Cart, bool, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Cart{}, false, nil
	}
	if err != nil {
		return model.Cart{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var cart model.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return model.Cart{}, false, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	return cart, true, nil
}

func (r *RedisCache) Set(ctx context.Context, cart model.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(cart.UserID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) ttl() time.Duration {
	if r.maxJitter <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + rand.N(r.maxJitter)
}

func cacheKey(userID string) string {
	return keyPrefix + userID
}
