package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/events"
)

// NotificationService publishes domain events once state changes have committed.
// Publish failures are logged and never undo the change.
type NotificationService struct {
	publisher events.Publisher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewNotificationService creates a new NotificationService. Each publish is bounded
// by timeout so a slow broker cannot hold up the caller.
func NewNotificationService(publisher events.Publisher, timeout time.Duration, logger *zap.Logger) *NotificationService {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &NotificationService{
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
	}
}

// NotifyOrderCreated announces a materialized order.
func (s *NotificationService) NotifyOrderCreated(ctx context.Context, order *domain.Order, req *domain.PaymentRequest) error {
	return s.send(ctx, events.TypeOrderCreated, events.OrderCreated{
		OrderID:           order.ID,
		UserID:            order.UserID,
		PaymentRequestID:  req.ID,
		CheckoutRequestID: req.CheckoutRequestID,
		AmountPaid:        order.AmountPaid,
		ItemCount:         len(order.Items),
	})
}

// NotifyPaymentFailed announces a payment request that ended in FAILED.
func (s *NotificationService) NotifyPaymentFailed(ctx context.Context, req *domain.PaymentRequest, resultDesc string) error {
	return s.send(ctx, events.TypePaymentFailed, events.PaymentFailed{
		PaymentRequestID:  req.ID,
		CheckoutRequestID: req.CheckoutRequestID,
		UserID:            req.UserID,
		ResultDesc:        resultDesc,
	})
}

func (s *NotificationService) send(ctx context.Context, eventType string, payload any) error {
	if s == nil || s.publisher == nil {
		return nil
	}

	event := events.Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event_id", event.ID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return err
	}

	return nil
}
