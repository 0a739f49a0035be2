package domain

import "time"

// DeliveryStatus represents the delivery progress of an order.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "PENDING"
	DeliveryStatusDispatched DeliveryStatus = "DISPATCHED"
	DeliveryStatusDelivered  DeliveryStatus = "DELIVERED"
)

// Next returns the status that follows s, or false if s is final.
func (s DeliveryStatus) Next() (DeliveryStatus, bool) {
	switch s {
	case DeliveryStatusPending:
		return DeliveryStatusDispatched, true
	case DeliveryStatusDispatched:
		return DeliveryStatusDelivered, true
	default:
		return "", false
	}
}

// Order is created once a paid, amount-validated callback is applied.
type Order struct {
	ID                string
	UserID            string
	SessionID         string
	ShippingAddressID string
	PaymentRequestID  string
	PaymentResponseID string
	MpesaNumber       string
	AmountPaid        int64
	AmountPayable     int64
	ShippingFee       int64
	DeliveryStatus    DeliveryStatus
	DeliveryStart     time.Time
	DeliveryStop      time.Time
	Items             []OrderItem
	CreatedAt         time.Time
}

// OrderItem is a snapshot of a cart line taken when the order was created.
// It is never updated when the catalog changes.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Name      string
	Price     int64
	PriceType string
	Category  string
	Image     string
	Quantity  int
}

// Total returns price times quantity for the snapshot.
func (i OrderItem) Total() int64 {
	return i.Price * int64(i.Quantity)
}
