package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
)

var (
	// ErrPushRejected is returned when the gateway refuses to send an STK push.
	ErrPushRejected = errors.New("stk push rejected by gateway")

	// ErrUnavailable is returned when the gateway could not be reached.
	ErrUnavailable = errors.New("payment gateway unavailable")
)

// PushRequest describes one STK push to a customer's phone.
type PushRequest struct {
	PhoneNumber      string // local format, e.g. 0712345678
	Amount           int64
	AccountReference string
	Description      string
}

// Client sends STK pushes.
type Client interface {
	Push(ctx context.Context, req PushRequest) (*domain.GatewayEcho, error)
}

// RejectedError carries the gateway's reason for refusing a push.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrPushRejected, e.Message, e.Code)
}

func (e *RejectedError) Unwrap() error {
	return ErrPushRejected
}

// NormalizePhone converts a local mobile number to the 254XXXXXXXXX form.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	switch {
	case strings.HasPrefix(phone, "+254"):
		return phone[1:]
	case strings.HasPrefix(phone, "254"):
		return phone
	case strings.HasPrefix(phone, "0"):
		return "254" + phone[1:]
	default:
		return phone
	}
}
