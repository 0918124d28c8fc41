package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the order service
const (
	TypeOrderCreated        = "order.created"
	TypeOrderConfirmed      = "order.confirmed"
	TypeOrderDeclined       = "order.declined"
	TypeOrderDeleted        = "order.deleted"
	TypePaymentRefunded     = "payment.refunded"
	TypePaymentRefundFailed = "payment.refund_failed"
)

// Event is the envelope consumed by the mailer and reconciliation jobs
type Event struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	OrderID    string         `json:"order_id"`
	UserID     string         `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// New stamps a fresh event id and timestamp
func New(eventType, orderID, userID string, payload map[string]any) Event {
	return Event{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OrderID:    orderID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers order events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NopPublisher drops every event; used when no broker is configured
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, evt Event) error { return nil }

func (NopPublisher) Close() error { return nil }
