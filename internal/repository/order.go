package repository

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists an order together with its item snapshots.
	// Returns ErrConflict if an order already exists for the payment request.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByPaymentRequestID retrieves the order created for a payment request.
	GetByPaymentRequestID(ctx context.Context, paymentRequestID string) (*domain.Order, error)

	// ListByUserID retrieves the orders of a user, newest first, with items.
	ListByUserID(ctx context.Context, userID string) ([]*domain.Order, error)

	// AdvanceDelivery moves an order from one delivery status to the next.
	// Returns false, without error, if the order was not in status from.
	AdvanceDelivery(ctx context.Context, id string, from, to domain.DeliveryStatus, at time.Time) (bool, error)
}
