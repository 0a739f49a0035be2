package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// PaymentRequestRepository is a PostgreSQL implementation of repository.PaymentRequestRepository.
type PaymentRequestRepository struct {
	q Querier
}

// NewPaymentRequestRepository creates a new PostgreSQL payment request repository.
func NewPaymentRequestRepository(db *sql.DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{q: db}
}

// NewPaymentRequestRepositoryWithTx creates a payment request repository using a transaction.
func NewPaymentRequestRepositoryWithTx(tx *sql.Tx) *PaymentRequestRepository {
	return &PaymentRequestRepository{q: tx}
}

const paymentRequestColumns = `
	id, merchant_request_id, checkout_request_id, response_code, response_description,
	amount, phone_number, session_id, shipping_address_id, user_id,
	status, response_id, result_desc, created_at, resolved_at
`

// Create persists a new payment request.
func (r *PaymentRequestRepository) Create(ctx context.Context, req *domain.PaymentRequest) error {
	query := `
		INSERT INTO payment_requests (` + paymentRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		req.ID,
		req.MerchantRequestID,
		req.CheckoutRequestID,
		req.ResponseCode,
		req.ResponseDescription,
		req.Amount,
		req.PhoneNumber,
		req.SessionID,
		req.ShippingAddressID,
		req.UserID,
		req.Status,
		toNullString(req.ResponseID),
		req.ResultDesc,
		req.CreatedAt,
		toNullTime(req.ResolvedAt),
	)

	return translateError(err)
}

// GetByID retrieves a payment request by ID.
func (r *PaymentRequestRepository) GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// GetByCheckoutRequestID retrieves a payment request by its gateway correlation key.
func (r *PaymentRequestRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE checkout_request_id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, checkoutRequestID))
}

// GetPendingBySessionID retrieves the PENDING request of a session.
// Returns nil if the session has none.
func (r *PaymentRequestRepository) GetPendingBySessionID(ctx context.Context, sessionID string) (*domain.PaymentRequest, error) {
	query := `
		SELECT ` + paymentRequestColumns + `
		FROM payment_requests
		WHERE session_id = $1 AND status = $2
		LIMIT 1
	`

	req, err := r.scanOne(r.q.QueryRowContext(ctx, query, sessionID, domain.PaymentStatusPending))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return req, err
}

// Resolve moves a request from PENDING to a terminal status.
// The status guard in the WHERE clause makes the transition a compare-and-set:
// a concurrent resolver blocks on the row lock and then matches zero rows.
func (r *PaymentRequestRepository) Resolve(ctx context.Context, id string, res repository.Resolution) (bool, error) {
	query := `
		UPDATE payment_requests
		SET status = $1, response_id = $2, result_desc = $3, resolved_at = $4
		WHERE id = $5 AND status = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		res.Status,
		toNullString(res.ResponseID),
		res.ResultDesc,
		res.ResolvedAt,
		id,
		domain.PaymentStatusPending,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// ListPendingCreatedBefore returns up to limit PENDING requests created before t.
func (r *PaymentRequestRepository) ListPendingCreatedBefore(ctx context.Context, t time.Time, limit int) ([]*domain.PaymentRequest, error) {
	query := `
		SELECT ` + paymentRequestColumns + `
		FROM payment_requests
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`

	rows, err := r.q.QueryContext(ctx, query, domain.PaymentStatusPending, t, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.PaymentRequest
	for rows.Next() {
		req, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PaymentRequestRepository) scanOne(row *sql.Row) (*domain.PaymentRequest, error) {
	req, err := r.scan(row)
	if err != nil {
		return nil, translateError(err)
	}
	return req, nil
}

func (r *PaymentRequestRepository) scan(row rowScanner) (*domain.PaymentRequest, error) {
	var req domain.PaymentRequest
	var responseID sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.MerchantRequestID,
		&req.CheckoutRequestID,
		&req.ResponseCode,
		&req.ResponseDescription,
		&req.Amount,
		&req.PhoneNumber,
		&req.SessionID,
		&req.ShippingAddressID,
		&req.UserID,
		&req.Status,
		&responseID,
		&req.ResultDesc,
		&req.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	req.ResponseID = responseID.String
	req.ResolvedAt = fromNullTime(resolvedAt)

	return &req, nil
}

// Ensure PaymentRequestRepository implements repository.PaymentRequestRepository.
var _ repository.PaymentRequestRepository = (*PaymentRequestRepository)(nil)
