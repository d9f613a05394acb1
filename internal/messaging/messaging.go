package messaging

import (
	"context"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

// Publisher はメッセージブローカーへの送信口。
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// NopPublisher は何も送らない（ブローカー未設定時）。
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, string, string, any) error { return nil }

// OrderEvents は注文イベントを1つのトピックに流す。
// キーは注文IDなので、同じ注文のイベントは同じパーティションに順序通り載る。
type OrderEvents struct {
	pub   Publisher
	topic string
}

func NewOrderEvents(pub Publisher, topic string) *OrderEvents {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &OrderEvents{pub: pub, topic: topic}
}

func (o *OrderEvents) PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error {
	return o.pub.PublishEvent(ctx, o.topic, ev.OrderID, ev)
}
