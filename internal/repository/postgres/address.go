package postgres

import (
	"context"
	"database/sql"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// AddressRepository is a PostgreSQL implementation of repository.AddressRepository.
type AddressRepository struct {
	q Querier
}

// NewAddressRepository creates a new PostgreSQL address repository.
func NewAddressRepository(db *sql.DB) *AddressRepository {
	return &AddressRepository{q: db}
}

// GetByID retrieves an address.
func (r *AddressRepository) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	query := `
		SELECT id, user_id, first_name, last_name, mobile_phone_number, specific_address, is_default, location_id
		FROM addresses WHERE id = $1
	`

	var addr domain.Address
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&addr.ID,
		&addr.UserID,
		&addr.FirstName,
		&addr.LastName,
		&addr.MobilePhoneNumber,
		&addr.SpecificAddress,
		&addr.IsDefault,
		&addr.LocationID,
	)
	if err != nil {
		return nil, translateError(err)
	}

	return &addr, nil
}

// GetShippingFee returns the shipping fee of the address's location.
func (r *AddressRepository) GetShippingFee(ctx context.Context, addressID string) (int64, error) {
	query := `
		SELECT l.shipping_fee
		FROM addresses a
		JOIN locations l ON l.id = a.location_id
		WHERE a.id = $1
	`

	var fee int64
	if err := r.q.QueryRowContext(ctx, query, addressID).Scan(&fee); err != nil {
		return 0, translateError(err)
	}

	return fee, nil
}

// Ensure AddressRepository implements repository.AddressRepository.
var _ repository.AddressRepository = (*AddressRepository)(nil)
