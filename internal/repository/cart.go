package repository

import (
	"context"

	"storefront/internal/domain"
)

// CartRepository reads and consumes the cart of a session.
type CartRepository interface {
	// GetBySessionID retrieves the cart with every line joined to its current product.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Cart, error)

	// RemoveLines removes the given lines from the cart of a session. Lines added
	// after the cart was read are left in place.
	RemoveLines(ctx context.Context, sessionID string, lineIDs []string) error
}

// AddressRepository resolves address book entries and their shipping fees.
type AddressRepository interface {
	// GetByID retrieves an address.
	GetByID(ctx context.Context, id string) (*domain.Address, error)

	// GetShippingFee returns the shipping fee of the address's location.
	GetShippingFee(ctx context.Context, addressID string) (int64, error)
}
