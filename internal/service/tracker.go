package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

// localPhonePattern accepts local mobile numbers: 01 or 07 followed by 8 digits.
var localPhonePattern = regexp.MustCompile(`^(01|07)\d{8}$`)

// ValidPhoneNumber reports whether phone is a local mobile number.
func ValidPhoneNumber(phone string) bool {
	return localPhonePattern.MatchString(phone)
}

// PaymentRequestService records outbound payment requests and their lifecycle.
type PaymentRequestService struct {
	requestRepo repository.PaymentRequestRepository
	addressRepo repository.AddressRepository
	ttl         time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewPaymentRequestService creates a new PaymentRequestService.
// Pending requests older than ttl are treated as expired when a session starts a new checkout.
func NewPaymentRequestService(
	requestRepo repository.PaymentRequestRepository,
	addressRepo repository.AddressRepository,
	ttl time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PaymentRequestService {
	return &PaymentRequestService{
		requestRepo: requestRepo,
		addressRepo: addressRepo,
		ttl:         ttl,
		metrics:     m,
		logger:      logger,
	}
}

// CreatePaymentRequestInput contains the parameters for recording a payment request.
type CreatePaymentRequestInput struct {
	SessionID         string
	UserID            string
	ShippingAddressID string
	PhoneNumber       string
	Amount            int64
	Echo              domain.GatewayEcho
}

// CreateRequest validates the input and persists a PENDING request keyed by the
// gateway's checkout request id.
func (s *PaymentRequestService) CreateRequest(ctx context.Context, in CreatePaymentRequestInput) (*domain.PaymentRequest, error) {
	if err := s.checkInput(ctx, in); err != nil {
		return nil, err
	}

	if in.Echo.CheckoutRequestID == "" {
		return nil, invalid("checkout_request_id", "required")
	}
	if in.Echo.MerchantRequestID == "" {
		return nil, invalid("merchant_request_id", "required")
	}

	if err := s.ensureNoOpenRequest(ctx, in.SessionID); err != nil {
		return nil, err
	}

	req := &domain.PaymentRequest{
		ID:                  uuid.New().String(),
		MerchantRequestID:   in.Echo.MerchantRequestID,
		CheckoutRequestID:   in.Echo.CheckoutRequestID,
		ResponseCode:        in.Echo.ResponseCode,
		ResponseDescription: in.Echo.ResponseDescription,
		Amount:              in.Amount,
		PhoneNumber:         in.PhoneNumber,
		SessionID:           in.SessionID,
		ShippingAddressID:   in.ShippingAddressID,
		UserID:              in.UserID,
		Status:              domain.PaymentStatusPending,
		CreatedAt:           time.Now().UTC(),
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.explainConflict(ctx, req)
		}
		return nil, persistence("create payment request", err)
	}

	s.metrics.PaymentRequestCreated()
	s.logger.Info("payment request created",
		zap.String("payment_request_id", req.ID),
		zap.String("checkout_request_id", req.CheckoutRequestID),
		zap.String("session_id", req.SessionID),
		zap.Int64("amount", req.Amount),
	)

	return req, nil
}

// GetByID retrieves a payment request.
func (s *PaymentRequestService) GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	if id == "" {
		return nil, ErrInvalidPaymentRequestID
	}

	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, persistence("get payment request", err)
	}

	return req, nil
}

// checkInput validates everything that can be checked before the gateway is involved.
func (s *PaymentRequestService) checkInput(ctx context.Context, in CreatePaymentRequestInput) error {
	if in.UserID == "" {
		return ErrUnauthenticated
	}
	if in.SessionID == "" {
		return invalid("session_id", "required")
	}
	if !ValidPhoneNumber(in.PhoneNumber) {
		return invalid("phone_number", "must be 01 or 07 followed by 8 digits")
	}
	if in.Amount <= 0 {
		return invalid("amount", "must be a positive whole number")
	}
	if in.ShippingAddressID == "" {
		return invalid("shipping_address_id", "required")
	}

	addr, err := s.addressRepo.GetByID(ctx, in.ShippingAddressID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("shipping_address_id", "unknown address")
		}
		return persistence("load address", err)
	}
	if addr.UserID != in.UserID {
		return invalid("shipping_address_id", "address does not belong to user")
	}

	return nil
}

// ensureNoOpenRequest fails with ErrCheckoutInProgress while the session has a live
// PENDING request. A PENDING request older than the ttl is expired first.
func (s *PaymentRequestService) ensureNoOpenRequest(ctx context.Context, sessionID string) error {
	pending, err := s.requestRepo.GetPendingBySessionID(ctx, sessionID)
	if err != nil {
		return persistence("get pending payment request", err)
	}
	if pending == nil {
		return nil
	}

	now := time.Now().UTC()
	if s.ttl <= 0 || now.Sub(pending.CreatedAt) < s.ttl {
		return ErrCheckoutInProgress
	}

	if _, err := expireRequest(ctx, s.requestRepo, pending, now); err != nil {
		return persistence("expire stale payment request", err)
	}

	s.logger.Info("expired stale payment request before new checkout",
		zap.String("payment_request_id", pending.ID),
		zap.String("session_id", sessionID),
	)

	return nil
}

// explainConflict distinguishes a reused checkout request id from a concurrent checkout.
func (s *PaymentRequestService) explainConflict(ctx context.Context, req *domain.PaymentRequest) error {
	if _, err := s.requestRepo.GetByCheckoutRequestID(ctx, req.CheckoutRequestID); err == nil {
		return invalid("checkout_request_id", "already recorded")
	}
	return ErrCheckoutInProgress
}
