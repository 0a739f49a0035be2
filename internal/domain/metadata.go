package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Well-known callback metadata item names.
const (
	MetadataAmount          = "Amount"
	MetadataReceiptNumber   = "MpesaReceiptNumber"
	MetadataPhoneNumber     = "PhoneNumber"
	MetadataTransactionDate = "TransactionDate"
)

var (
	// ErrMetadataFieldMissing is returned when a callback metadata item is absent.
	ErrMetadataFieldMissing = errors.New("callback metadata field missing")

	// ErrMetadataFieldInvalid is returned when a callback metadata item cannot be parsed.
	ErrMetadataFieldInvalid = errors.New("callback metadata field invalid")
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// CallbackItem is a single name/value metadata entry sent by the gateway.
type CallbackItem struct {
	Name  string
	Value string
}

// CallbackMetadata is the list of name/value entries of a successful callback.
type CallbackMetadata []CallbackItem

// Lookup returns the value of the first item with the given name.
func (m CallbackMetadata) Lookup(name string) (string, bool) {
	for _, item := range m {
		if item.Name == name {
			return item.Value, true
		}
	}
	return "", false
}

// Amount returns the paid amount as a whole number of shillings.
func (m CallbackMetadata) Amount() (int64, error) {
	raw, ok := m.Lookup(MetadataAmount)
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMetadataFieldMissing, MetadataAmount)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMetadataFieldInvalid, MetadataAmount, raw)
	}
	if !amount.IsInteger() || !amount.IsPositive() {
		return 0, fmt.Errorf("%w: %s=%q is not a positive whole amount", ErrMetadataFieldInvalid, MetadataAmount, raw)
	}
	// IntPart wraps silently past int64.
	if amount.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %s=%q is out of range", ErrMetadataFieldInvalid, MetadataAmount, raw)
	}

	return amount.IntPart(), nil
}

// ReceiptNumber returns the gateway receipt number, if any.
func (m CallbackMetadata) ReceiptNumber() (string, error) {
	v, ok := m.Lookup(MetadataReceiptNumber)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMetadataFieldMissing, MetadataReceiptNumber)
	}
	return v, nil
}
