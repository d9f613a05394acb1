package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/messaging"
)

// Publisher は segmentio/kafka-go の Writer で注文イベントを送る。
type Publisher struct {
	w *kafkaGo.Writer
}

// NewPublisher は全トピック共用の Writer を1つ持つ publisher を返す。
// 終了時に Close を呼ぶこと。
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		w: &kafkaGo.Writer{
			Addr:         kafkaGo.TCP(brokers...),
			Balancer:     &kafkaGo.Hash{},
			RequiredAcks: kafkaGo.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

var _ messaging.Publisher = (*Publisher)(nil)

func (k *Publisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	msg, err := newMessage(topic, key, event)
	if err != nil {
		return err
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}
	return nil
}

func (k *Publisher) Close() error {
	return k.w.Close()
}

func newMessage(topic, key string, event any) (kafkaGo.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafkaGo.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafkaGo.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}
	if t, ok := eventType(event); ok {
		msg.Headers = []kafkaGo.Header{{Key: "event-type", Value: []byte(t)}}
	}
	return msg, nil
}

type typed interface {
	EventType() string
}

func eventType(event any) (string, bool) {
	if t, ok := event.(typed); ok {
		return t.EventType(), true
	}
	return "", false
}
