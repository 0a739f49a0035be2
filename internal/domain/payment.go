package domain

import "time"

// PaymentStatus represents the current status of a payment request.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// IsTerminal reports whether the status can no longer change.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// ResultCodeSuccess is the gateway result code for a completed payment.
const ResultCodeSuccess = 0

// GatewayEcho is what the gateway returned when it accepted an STK push.
type GatewayEcho struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

// PaymentRequest is one STK push issued for a checkout attempt.
type PaymentRequest struct {
	ID                  string
	MerchantRequestID   string
	CheckoutRequestID   string // correlation key for the callback, unique
	ResponseCode        string
	ResponseDescription string
	Amount              int64
	PhoneNumber         string
	SessionID           string
	ShippingAddressID   string
	UserID              string
	Status              PaymentStatus
	ResponseID          string // set when a callback resolved the request
	ResultDesc          string
	CreatedAt           time.Time
	ResolvedAt          time.Time
}

// PaymentResponse is one callback received from the gateway.
type PaymentResponse struct {
	ID                string
	PaymentRequestID  string
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Metadata          CallbackMetadata
	CreatedAt         time.Time
}

// STKCallback is the decoded body of a gateway callback.
type STKCallback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Metadata          CallbackMetadata
}

// Succeeded reports whether the gateway confirmed the payment.
func (c STKCallback) Succeeded() bool {
	return c.ResultCode == ResultCodeSuccess
}

// DiscrepancyKind classifies a callback that needs manual reconciliation.
type DiscrepancyKind string

const (
	DiscrepancyAmountMismatch DiscrepancyKind = "AMOUNT_MISMATCH"
	DiscrepancyLateSuccess    DiscrepancyKind = "LATE_SUCCESS"
)

// PaymentDiscrepancy records a callback that was acknowledged but not applied.
type PaymentDiscrepancy struct {
	ID                string
	PaymentRequestID  string
	CheckoutRequestID string
	Kind              DiscrepancyKind
	ReportedAmount    int64
	PayableAmount     int64
	ReceiptNumber     string
	CreatedAt         time.Time
}
