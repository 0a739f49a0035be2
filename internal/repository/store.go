package repository

import "context"

// Tx exposes the repositories bound to one database transaction.
type Tx interface {
	PaymentRequests() PaymentRequestRepository
	PaymentResponses() PaymentResponseRepository
	Orders() OrderRepository
	Carts() CartRepository
}

// Transactor runs fn inside a transaction.
// The transaction commits if fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
