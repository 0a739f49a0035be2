package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CartRepository is a PostgreSQL implementation of repository.CartRepository.
type CartRepository struct {
	q Querier
}

// NewCartRepository creates a new PostgreSQL cart repository.
func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{q: db}
}

// NewCartRepositoryWithTx creates a cart repository using a transaction.
func NewCartRepositoryWithTx(tx *sql.Tx) *CartRepository {
	return &CartRepository{q: tx}
}

// GetBySessionID retrieves the cart with every line joined to its current product
// in a single query.
func (r *CartRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var cart domain.Cart
	var userID sql.NullString

	err := r.q.QueryRowContext(ctx,
		`SELECT id, session_id, user_id FROM carts WHERE session_id = $1`, sessionID,
	).Scan(&cart.ID, &cart.SessionID, &userID)
	if err != nil {
		return nil, translateError(err)
	}
	cart.UserID = userID.String

	query := `
		SELECT ci.id, ci.quantity,
		       p.id, p.name, p.price, p.price_type, p.category, p.image, p.stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY p.name
	`

	rows, err := r.q.QueryContext(ctx, query, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ID,
			&line.Quantity,
			&line.Product.ID,
			&line.Product.Name,
			&line.Product.Price,
			&line.Product.PriceType,
			&line.Product.Category,
			&line.Product.Image,
			&line.Product.Stock,
		); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}

	return &cart, rows.Err()
}

// RemoveLines removes the given lines from the cart of a session.
func (r *CartRepository) RemoveLines(ctx context.Context, sessionID string, lineIDs []string) error {
	if len(lineIDs) == 0 {
		return nil
	}

	query := `
		DELETE FROM cart_items
		WHERE id = ANY($2)
		  AND cart_id IN (SELECT id FROM carts WHERE session_id = $1)
	`

	_, err := r.q.ExecContext(ctx, query, sessionID, pq.Array(lineIDs))
	return err
}

// Ensure CartRepository implements repository.CartRepository.
var _ repository.CartRepository = (*CartRepository)(nil)
