package domain

import "time"

// ReceiptLine is one priced line of a receipt.
type ReceiptLine struct {
	Name      string
	PriceType string
	Quantity  int
	UnitPrice int64
	Total     int64
}

// Receipt summarizes a paid order for the customer.
type Receipt struct {
	OrderID       string
	ReceiptNumber string
	PhoneNumber   string
	Lines         []ReceiptLine
	Subtotal      int64
	ShippingFee   int64
	Total         int64
	PaidAt        time.Time
}
