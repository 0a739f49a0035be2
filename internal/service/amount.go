package service

import (
	"context"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// Payable is the authoritative amount due for a session's cart and a shipping address.
type Payable struct {
	Cart        *domain.Cart
	Subtotal    int64
	ShippingFee int64
	Total       int64
}

// AmountValidator computes payable amounts from current prices and checks reported amounts.
type AmountValidator struct {
	cartRepo    repository.CartRepository
	addressRepo repository.AddressRepository
}

// NewAmountValidator creates a new AmountValidator.
func NewAmountValidator(cartRepo repository.CartRepository, addressRepo repository.AddressRepository) *AmountValidator {
	return &AmountValidator{
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
	}
}

// ComputePayable returns the cart subtotal at current product prices plus the
// shipping fee of the address. A session without a cart has a zero subtotal.
func (v *AmountValidator) ComputePayable(ctx context.Context, sessionID, shippingAddressID string) (*Payable, error) {
	cart, err := v.cartRepo.GetBySessionID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		cart = &domain.Cart{SessionID: sessionID}
	} else if err != nil {
		return nil, persistence("load cart", err)
	}

	fee, err := v.addressRepo.GetShippingFee(ctx, shippingAddressID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("shipping_address_id", "unknown address")
		}
		return nil, persistence("load shipping fee", err)
	}

	subtotal := cart.Subtotal()

	return &Payable{
		Cart:        cart,
		Subtotal:    subtotal,
		ShippingFee: fee,
		Total:       subtotal + fee,
	}, nil
}

// Validate recomputes the payable amount and compares it with the reported amount.
// On disagreement the returned Payable is still set and the error is an *AmountMismatchError.
func (v *AmountValidator) Validate(ctx context.Context, sessionID, shippingAddressID string, reported int64) (*Payable, error) {
	payable, err := v.ComputePayable(ctx, sessionID, shippingAddressID)
	if err != nil {
		return nil, err
	}

	if payable.Total != reported {
		return payable, &AmountMismatchError{Reported: reported, Payable: payable.Total}
	}

	return payable, nil
}
