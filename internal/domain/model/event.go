package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent はコミット後にブローカーへ流す通知。
type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	Status         OrderStatus     `json:"status"`
	PreviousStatus OrderStatus     `json:"previous_status,omitempty"`
	Total          decimal.Decimal `json:"total"`
	ActorUserID    string          `json:"actor_user_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func (e OrderEvent) EventType() string {
	return e.Type
}
