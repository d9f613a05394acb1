package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

type recordingPublisher struct {
	topic, key string
	event      any
}

func (r *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	r.topic, r.key, r.event = topic, key, event
	return nil
}

func TestOrderEvents_KeyedByOrderID(t *testing.T) {
	rec := &recordingPublisher{}
	events := NewOrderEvents(rec, "orders")

	ev := model.OrderEvent{Type: model.EventOrderPlaced, OrderID: "o-42", UserID: "u1", Status: model.OrderStatusPending}
	require.NoError(t, events.PublishOrderEvent(context.Background(), ev))

	assert.Equal(t, "orders", rec.topic)
	assert.Equal(t, "o-42", rec.key)
	assert.Equal(t, ev, rec.event)
}

func TestOrderEvents_NilPublisherIsNop(t *testing.T) {
	events := NewOrderEvents(nil, "orders")
	assert.NoError(t, events.PublishOrderEvent(context.Background(), model.OrderEvent{OrderID: "o1"}))
}
