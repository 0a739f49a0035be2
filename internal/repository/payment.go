package repository

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// PaymentRequestRepository defines the persistence operations for payment requests.
type PaymentRequestRepository interface {
	// Create persists a new PENDING payment request.
	// Returns ErrConflict if the checkout request id is already taken.
	Create(ctx context.Context, req *domain.PaymentRequest) error

	// GetByID retrieves a payment request by ID.
	GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error)

	// GetByCheckoutRequestID retrieves a payment request by its gateway correlation key.
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error)

	// GetPendingBySessionID retrieves the PENDING request of a session.
	// Returns nil if the session has none.
	GetPendingBySessionID(ctx context.Context, sessionID string) (*domain.PaymentRequest, error)

	// Resolve moves a request from PENDING to a terminal status.
	// Returns false, without error, if the request was no longer PENDING.
	Resolve(ctx context.Context, id string, res Resolution) (bool, error)

	// ListPendingCreatedBefore returns up to limit PENDING requests created before t.
	ListPendingCreatedBefore(ctx context.Context, t time.Time, limit int) ([]*domain.PaymentRequest, error)
}

// Resolution describes a terminal transition of a payment request.
type Resolution struct {
	Status     domain.PaymentStatus
	ResponseID string // empty when no callback caused the transition
	ResultDesc string
	ResolvedAt time.Time
}

// PaymentResponseRepository defines the persistence operations for callback records.
type PaymentResponseRepository interface {
	// Create persists a callback record with its metadata items.
	Create(ctx context.Context, resp *domain.PaymentResponse) error

	// GetByID retrieves a callback record with its metadata items.
	GetByID(ctx context.Context, id string) (*domain.PaymentResponse, error)
}

// DiscrepancyRepository records callbacks that need manual reconciliation.
type DiscrepancyRepository interface {
	// Create persists a discrepancy.
	Create(ctx context.Context, d *domain.PaymentDiscrepancy) error

	// List returns the most recent discrepancies, newest first.
	List(ctx context.Context, limit int) ([]*domain.PaymentDiscrepancy, error)
}
