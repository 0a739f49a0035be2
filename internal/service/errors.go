package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no user identity accompanies a request.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidPaymentRequestID is returned when a payment request ID is empty.
	ErrInvalidPaymentRequestID = errors.New("invalid payment request id")

	// ErrInvalidOrderID is returned when an order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrEmptyCart is returned when checking out a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrCheckoutInProgress is returned when the session already has an open payment request.
	ErrCheckoutInProgress = errors.New("checkout already in progress")

	// ErrAmountMismatch is returned when the amount paid differs from the amount payable.
	ErrAmountMismatch = errors.New("amount paid does not match amount payable")

	// ErrInvalidDeliveryTransition is returned when a delivery status cannot advance as requested.
	ErrInvalidDeliveryTransition = errors.New("invalid delivery status transition")
)

// ValidationError reports an invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AmountMismatchError carries both sides of a failed amount check.
type AmountMismatchError struct {
	Reported int64
	Payable  int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("%s: reported %d, payable %d", ErrAmountMismatch, e.Reported, e.Payable)
}

func (e *AmountMismatchError) Unwrap() error {
	return ErrAmountMismatch
}

// PersistenceError wraps a storage failure. Its message is never shown to callers.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
