package postgres

import (
	"context"
	"database/sql"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// PaymentResponseRepository is a PostgreSQL implementation of repository.PaymentResponseRepository.
type PaymentResponseRepository struct {
	q Querier
}

// NewPaymentResponseRepository creates a new PostgreSQL payment response repository.
func NewPaymentResponseRepository(db *sql.DB) *PaymentResponseRepository {
	return &PaymentResponseRepository{q: db}
}

// NewPaymentResponseRepositoryWithTx creates a payment response repository using a transaction.
func NewPaymentResponseRepositoryWithTx(tx *sql.Tx) *PaymentResponseRepository {
	return &PaymentResponseRepository{q: tx}
}

// Create persists a callback record with its metadata items.
func (r *PaymentResponseRepository) Create(ctx context.Context, resp *domain.PaymentResponse) error {
	query := `
		INSERT INTO payment_responses (id, payment_request_id, merchant_request_id, checkout_request_id, result_code, result_desc, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		resp.ID,
		resp.PaymentRequestID,
		resp.MerchantRequestID,
		resp.CheckoutRequestID,
		resp.ResultCode,
		resp.ResultDesc,
		resp.CreatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	itemQuery := `
		INSERT INTO payment_response_metadata (payment_response_id, position, name, value)
		VALUES ($1, $2, $3, $4)
	`
	for i, item := range resp.Metadata {
		if _, err := r.q.ExecContext(ctx, itemQuery, resp.ID, i, item.Name, item.Value); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a callback record with its metadata items.
func (r *PaymentResponseRepository) GetByID(ctx context.Context, id string) (*domain.PaymentResponse, error) {
	query := `
		SELECT id, payment_request_id, merchant_request_id, checkout_request_id, result_code, result_desc, created_at
		FROM payment_responses WHERE id = $1
	`

	var resp domain.PaymentResponse
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&resp.ID,
		&resp.PaymentRequestID,
		&resp.MerchantRequestID,
		&resp.CheckoutRequestID,
		&resp.ResultCode,
		&resp.ResultDesc,
		&resp.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT name, value FROM payment_response_metadata
		WHERE payment_response_id = $1 ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CallbackItem
		if err := rows.Scan(&item.Name, &item.Value); err != nil {
			return nil, err
		}
		resp.Metadata = append(resp.Metadata, item)
	}

	return &resp, rows.Err()
}

// Ensure PaymentResponseRepository implements repository.PaymentResponseRepository.
var _ repository.PaymentResponseRepository = (*PaymentResponseRepository)(nil)
