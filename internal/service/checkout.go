package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/gateway"
	"storefront/internal/metrics"
	"storefront/internal/redis"
)

const defaultCheckoutLockTTL = 30 * time.Second

// CheckoutService starts a payment: it prices the cart, issues the STK push and
// records the resulting payment request.
type CheckoutService struct {
	requests  *PaymentRequestService
	amounts   *AmountValidator
	gateway   gateway.Client
	lockStore redis.LockStoreInterface
	lockTTL   time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	requests *PaymentRequestService,
	amounts *AmountValidator,
	gatewayClient gateway.Client,
	lockStore redis.LockStoreInterface,
	lockTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CheckoutService {
	if lockTTL <= 0 {
		lockTTL = defaultCheckoutLockTTL
	}
	return &CheckoutService{
		requests:  requests,
		amounts:   amounts,
		gateway:   gatewayClient,
		lockStore: lockStore,
		lockTTL:   lockTTL,
		metrics:   m,
		logger:    logger,
	}
}

// CheckoutInput contains the parameters for starting a checkout.
type CheckoutInput struct {
	SessionID         string
	UserID            string
	ShippingAddressID string
	PhoneNumber       string
}

// CheckoutResult is returned once the gateway accepted the push.
type CheckoutResult struct {
	PaymentRequest  *domain.PaymentRequest
	Payable         *Payable
	CustomerMessage string
}

// Checkout prices the session's cart, sends the STK push and records a PENDING request.
// Only one checkout per session may be in flight.
func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if in.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if in.SessionID == "" {
		return nil, invalid("session_id", "required")
	}

	if s.lockStore != nil {
		token, locked, err := s.lockStore.AcquireCheckoutLock(ctx, in.SessionID, s.lockTTL)
		if err != nil {
			return nil, persistence("acquire checkout lock", err)
		}
		if !locked {
			return nil, ErrCheckoutInProgress
		}
		defer func() {
			if err := s.lockStore.ReleaseCheckoutLock(context.WithoutCancel(ctx), in.SessionID, token); err != nil {
				s.logger.Warn("failed to release checkout lock", zap.String("session_id", in.SessionID), zap.Error(err))
			}
		}()
	}

	if err := s.requests.ensureNoOpenRequest(ctx, in.SessionID); err != nil {
		return nil, err
	}

	payable, err := s.amounts.ComputePayable(ctx, in.SessionID, in.ShippingAddressID)
	if err != nil {
		return nil, err
	}
	if payable.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	input := CreatePaymentRequestInput{
		SessionID:         in.SessionID,
		UserID:            in.UserID,
		ShippingAddressID: in.ShippingAddressID,
		PhoneNumber:       in.PhoneNumber,
		Amount:            payable.Total,
	}
	if err := s.requests.checkInput(ctx, input); err != nil {
		return nil, err
	}

	echo, err := s.gateway.Push(ctx, gateway.PushRequest{
		PhoneNumber: in.PhoneNumber,
		Amount:      payable.Total,
	})
	if err != nil {
		reason := "transport"
		if errors.Is(err, gateway.ErrPushRejected) {
			reason = "rejected"
		}
		s.metrics.GatewayPushError(reason)
		s.logger.Warn("stk push failed",
			zap.String("session_id", in.SessionID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		if reason == "transport" {
			return nil, errors.Join(gateway.ErrUnavailable, err)
		}
		return nil, err
	}

	input.Echo = *echo
	req, err := s.requests.CreateRequest(ctx, input)
	if err != nil {
		// The push is out; its callback will not correlate and is answered 404.
		s.logger.Error("stk push accepted but payment request not recorded",
			zap.String("session_id", in.SessionID),
			zap.String("checkout_request_id", echo.CheckoutRequestID),
			zap.Error(err),
		)
		return nil, err
	}

	return &CheckoutResult{
		PaymentRequest:  req,
		Payable:         payable,
		CustomerMessage: echo.CustomerMessage,
	}, nil
}
