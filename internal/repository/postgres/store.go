package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/repository"
)

// Store runs units of work in a PostgreSQL transaction.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// txRepositories exposes transaction-scoped repositories.
type txRepositories struct {
	tx *sql.Tx
}

func (t *txRepositories) PaymentRequests() repository.PaymentRequestRepository {
	return NewPaymentRequestRepositoryWithTx(t.tx)
}

func (t *txRepositories) PaymentResponses() repository.PaymentResponseRepository {
	return NewPaymentResponseRepositoryWithTx(t.tx)
}

func (t *txRepositories) Orders() repository.OrderRepository {
	return NewOrderRepositoryWithTx(t.tx)
}

func (t *txRepositories) Carts() repository.CartRepository {
	return NewCartRepositoryWithTx(t.tx)
}

// WithinTx runs fn inside a transaction. It commits when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &txRepositories{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Ensure Store implements repository.Transactor.
var _ repository.Transactor = (*Store)(nil)
