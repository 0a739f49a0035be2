package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event types.
const (
	TypeOrderCreated  = "order.created"
	TypePaymentFailed = "payment.failed"
)

// Event is a domain event published after a state change has committed.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// OrderCreated is the payload of TypeOrderCreated.
type OrderCreated struct {
	OrderID           string `json:"order_id"`
	UserID            string `json:"user_id"`
	PaymentRequestID  string `json:"payment_request_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	AmountPaid        int64  `json:"amount_paid"`
	ItemCount         int    `json:"item_count"`
}

// PaymentFailed is the payload of TypePaymentFailed.
type PaymentFailed struct {
	PaymentRequestID  string `json:"payment_request_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	UserID            string `json:"user_id"`
	ResultDesc        string `json:"result_desc"`
}

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the log. It is used when no queue is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.Info("domain event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.Time("occurred_at", event.OccurredAt),
		zap.Any("payload", event.Payload),
	)
	return nil
}

// Ensure LogPublisher implements Publisher.
var _ Publisher = (*LogPublisher)(nil)
