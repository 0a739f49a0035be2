package postgres

import (
	"context"
	"database/sql"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

const orderColumns = `
	id, user_id, session_id, shipping_address_id, payment_request_id, payment_response_id,
	mpesa_number, amount_paid, amount_payable, shipping_fee,
	delivery_status, delivery_start, delivery_stop, created_at
`

// Create persists an order together with its item snapshots.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.q.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.SessionID,
		order.ShippingAddressID,
		order.PaymentRequestID,
		order.PaymentResponseID,
		order.MpesaNumber,
		order.AmountPaid,
		order.AmountPayable,
		order.ShippingFee,
		order.DeliveryStatus,
		toNullTime(order.DeliveryStart),
		toNullTime(order.DeliveryStop),
		order.CreatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, price, price_type, category, image, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, item := range order.Items {
		_, err := r.q.ExecContext(ctx, itemQuery,
			item.ID,
			order.ID,
			item.ProductID,
			item.Name,
			item.Price,
			item.PriceType,
			item.Category,
			item.Image,
			item.Quantity,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByPaymentRequestID retrieves the order created for a payment request.
func (r *OrderRepository) GetByPaymentRequestID(ctx context.Context, paymentRequestID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_request_id = $1`
	return r.getOne(ctx, query, paymentRequestID)
}

// ListByUserID retrieves the orders of a user, newest first, with items.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC LIMIT 100
	`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Items are loaded after the order cursor is closed; a tx-bound Querier
	// cannot run a second query while rows are still open.
	for _, order := range orders {
		if order.Items, err = r.loadItems(ctx, order.ID); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// AdvanceDelivery moves an order from one delivery status to the next.
func (r *OrderRepository) AdvanceDelivery(ctx context.Context, id string, from, to domain.DeliveryStatus, at time.Time) (bool, error) {
	column := "delivery_start"
	if to == domain.DeliveryStatusDelivered {
		column = "delivery_stop"
	}

	query := `UPDATE orders SET delivery_status = $1, ` + column + ` = $2 WHERE id = $3 AND delivery_status = $4`

	result, err := r.q.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg string) (*domain.Order, error) {
	order, err := scanOrder(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, translateError(err)
	}

	if order.Items, err = r.loadItems(ctx, order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, price, price_type, category, image, quantity
		FROM order_items WHERE order_id = $1 ORDER BY name
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Price,
			&item.PriceType,
			&item.Category,
			&item.Image,
			&item.Quantity,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var deliveryStart, deliveryStop sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.SessionID,
		&order.ShippingAddressID,
		&order.PaymentRequestID,
		&order.PaymentResponseID,
		&order.MpesaNumber,
		&order.AmountPaid,
		&order.AmountPayable,
		&order.ShippingFee,
		&order.DeliveryStatus,
		&deliveryStart,
		&deliveryStop,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.DeliveryStart = fromNullTime(deliveryStart)
	order.DeliveryStop = fromNullTime(deliveryStop)

	return &order, nil
}

// Ensure OrderRepository implements repository.OrderRepository.
var _ repository.OrderRepository = (*OrderRepository)(nil)
