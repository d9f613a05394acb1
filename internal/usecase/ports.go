package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type IDGenerator interface {
	NewID() string
}

// UUIDGenerator は注文IDに UUIDv4 を振る。
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// CartCache は GetCart の読み取りキャッシュ。見つからなければ found=false。
type CartCache interface {
	Get(ctx context.Context, userID string) (cart model.Cart, found bool, err error)
	Set(ctx context.Context, cart model.Cart) error
	Delete(ctx context.Context, userID string) error
}

// EventPublisher はコミット後の注文イベント送信。
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error
}
