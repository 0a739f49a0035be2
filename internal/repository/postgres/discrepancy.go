package postgres

import (
	"context"
	"database/sql"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// DiscrepancyRepository is a PostgreSQL implementation of repository.DiscrepancyRepository.
type DiscrepancyRepository struct {
	q Querier
}

// NewDiscrepancyRepository creates a new PostgreSQL discrepancy repository.
func NewDiscrepancyRepository(db *sql.DB) *DiscrepancyRepository {
	return &DiscrepancyRepository{q: db}
}

// Create persists a discrepancy.
func (r *DiscrepancyRepository) Create(ctx context.Context, d *domain.PaymentDiscrepancy) error {
	query := `
		INSERT INTO payment_discrepancies (id, payment_request_id, checkout_request_id, kind, reported_amount, payable_amount, receipt_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		d.ID,
		d.PaymentRequestID,
		d.CheckoutRequestID,
		d.Kind,
		d.ReportedAmount,
		d.PayableAmount,
		d.ReceiptNumber,
		d.CreatedAt,
	)

	return translateError(err)
}

// List returns the most recent discrepancies, newest first.
func (r *DiscrepancyRepository) List(ctx context.Context, limit int) ([]*domain.PaymentDiscrepancy, error) {
	query := `
		SELECT id, payment_request_id, checkout_request_id, kind, reported_amount, payable_amount, receipt_number, created_at
		FROM payment_discrepancies
		ORDER BY created_at DESC LIMIT $1
	`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.PaymentDiscrepancy
	for rows.Next() {
		var d domain.PaymentDiscrepancy
		if err := rows.Scan(
			&d.ID,
			&d.PaymentRequestID,
			&d.CheckoutRequestID,
			&d.Kind,
			&d.ReportedAmount,
			&d.PayableAmount,
			&d.ReceiptNumber,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}

	return items, rows.Err()
}

// Ensure DiscrepancyRepository implements repository.DiscrepancyRepository.
var _ repository.DiscrepancyRepository = (*DiscrepancyRepository)(nil)
