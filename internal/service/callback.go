package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

// CallbackOutcome describes how a callback was applied.
type CallbackOutcome string

const (
	OutcomeSucceeded      CallbackOutcome = "succeeded"
	OutcomeFailed         CallbackOutcome = "failed"
	OutcomeDuplicate      CallbackOutcome = "duplicate"
	OutcomeAmountMismatch CallbackOutcome = "amount_mismatch"
	OutcomeRejected       CallbackOutcome = "rejected"
	OutcomeError          CallbackOutcome = "error"
)

// errLostRace aborts a transaction whose compare-and-set found the request no longer PENDING.
var errLostRace = errors.New("payment request already resolved")

// CallbackResult reports the outcome and the records a callback touched.
type CallbackResult struct {
	Outcome          CallbackOutcome
	PaymentRequestID string
	OrderID          string
}

// CallbackService applies gateway callbacks to payment requests.
type CallbackService struct {
	requestRepo     repository.PaymentRequestRepository
	discrepancyRepo repository.DiscrepancyRepository
	store           repository.Transactor
	amounts         *AmountValidator
	notifications   *NotificationService
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// NewCallbackService creates a new CallbackService.
func NewCallbackService(
	requestRepo repository.PaymentRequestRepository,
	discrepancyRepo repository.DiscrepancyRepository,
	store repository.Transactor,
	amounts *AmountValidator,
	notifications *NotificationService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CallbackService {
	return &CallbackService{
		requestRepo:     requestRepo,
		discrepancyRepo: discrepancyRepo,
		store:           store,
		amounts:         amounts,
		notifications:   notifications,
		metrics:         m,
		logger:          logger,
	}
}

// HandleCallback validates a callback and drives the payment request to its terminal state.
//
// Errors: *ValidationError for malformed callbacks, repository.ErrNotFound for an unknown
// checkout request id, *AmountMismatchError when the reported amount differs from the
// payable amount (recorded as a discrepancy, request left PENDING), *PersistenceError
// for storage failures. A callback for a request that is no longer PENDING is a no-op
// reported as OutcomeDuplicate.
func (s *CallbackService) HandleCallback(ctx context.Context, cb domain.STKCallback) (*CallbackResult, error) {
	result, err := s.handle(ctx, cb)
	if result == nil {
		result = &CallbackResult{Outcome: OutcomeError}
		var ve *ValidationError
		if errors.As(err, &ve) || errors.Is(err, repository.ErrNotFound) {
			result.Outcome = OutcomeRejected
		}
	}
	s.metrics.CallbackHandled(string(result.Outcome))
	return result, err
}

func (s *CallbackService) handle(ctx context.Context, cb domain.STKCallback) (*CallbackResult, error) {
	if err := validateCallback(cb); err != nil {
		return nil, err
	}

	req, err := s.requestRepo.GetByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("payment request for checkout %s: %w", cb.CheckoutRequestID, err)
		}
		return nil, s.persistenceFailure("get payment request", err, cb, nil)
	}

	if req.Status != domain.PaymentStatusPending {
		return s.duplicate(ctx, req, cb)
	}

	if !cb.Succeeded() {
		return s.fail(ctx, req, cb)
	}

	return s.succeed(ctx, req, cb)
}

// fail records the callback and moves the request to FAILED.
func (s *CallbackService) fail(ctx context.Context, req *domain.PaymentRequest, cb domain.STKCallback) (*CallbackResult, error) {
	now := time.Now().UTC()
	resp := newPaymentResponse(req, cb, now)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ok, err := tx.PaymentRequests().Resolve(ctx, req.ID, repository.Resolution{
			Status:     domain.PaymentStatusFailed,
			ResponseID: resp.ID,
			ResultDesc: cb.ResultDesc,
			ResolvedAt: now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}
		return tx.PaymentResponses().Create(ctx, resp)
	})
	if errors.Is(err, errLostRace) {
		return s.lostRace(req)
	}
	if err != nil {
		return nil, s.persistenceFailure("record failed payment", err, cb, req)
	}

	s.logger.Info("payment failed",
		zap.String("payment_request_id", req.ID),
		zap.String("checkout_request_id", req.CheckoutRequestID),
		zap.Int("result_code", cb.ResultCode),
		zap.String("result_desc", cb.ResultDesc),
	)
	_ = s.notifications.NotifyPaymentFailed(ctx, req, cb.ResultDesc)

	return &CallbackResult{Outcome: OutcomeFailed, PaymentRequestID: req.ID}, nil
}

// succeed validates the reported amount, then records the callback, creates the order,
// removes the ordered cart lines and moves the request to SUCCESS in one transaction.
func (s *CallbackService) succeed(ctx context.Context, req *domain.PaymentRequest, cb domain.STKCallback) (*CallbackResult, error) {
	reported, err := cb.Metadata.Amount()
	if err != nil {
		return nil, invalid("CallbackMetadata.Amount", err.Error())
	}

	payable, err := s.amounts.Validate(ctx, req.SessionID, req.ShippingAddressID, reported)
	if err != nil {
		var mismatch *AmountMismatchError
		if errors.As(err, &mismatch) {
			return s.mismatch(ctx, req, cb, mismatch)
		}
		// An unresolvable stored address is our fault, not the gateway's.
		return nil, s.persistenceFailure("compute payable", err, cb, req)
	}

	now := time.Now().UTC()
	resp := newPaymentResponse(req, cb, now)

	order, err := MaterializeOrder(req, resp, payable, reported, now)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ok, err := tx.PaymentRequests().Resolve(ctx, req.ID, repository.Resolution{
			Status:     domain.PaymentStatusSuccess,
			ResponseID: resp.ID,
			ResultDesc: cb.ResultDesc,
			ResolvedAt: now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}
		if err := tx.PaymentResponses().Create(ctx, resp); err != nil {
			return err
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errLostRace
			}
			return err
		}
		return tx.Carts().RemoveLines(ctx, req.SessionID, payable.Cart.LineIDs())
	})
	if errors.Is(err, errLostRace) {
		return s.lostRace(req)
	}
	if err != nil {
		return nil, s.persistenceFailure("materialize order", err, cb, req)
	}

	s.metrics.OrderMaterialized()
	s.logger.Info("payment succeeded, order created",
		zap.String("payment_request_id", req.ID),
		zap.String("checkout_request_id", req.CheckoutRequestID),
		zap.String("order_id", order.ID),
		zap.Int64("amount_paid", order.AmountPaid),
		zap.Int("items", len(order.Items)),
	)
	_ = s.notifications.NotifyOrderCreated(ctx, order, req)

	return &CallbackResult{Outcome: OutcomeSucceeded, PaymentRequestID: req.ID, OrderID: order.ID}, nil
}

// mismatch records the disagreement for manual reconciliation and leaves the request PENDING.
func (s *CallbackService) mismatch(ctx context.Context, req *domain.PaymentRequest, cb domain.STKCallback, mismatch *AmountMismatchError) (*CallbackResult, error) {
	receipt, _ := cb.Metadata.ReceiptNumber()

	if err := s.discrepancyRepo.Create(ctx, &domain.PaymentDiscrepancy{
		ID:                uuid.New().String(),
		PaymentRequestID:  req.ID,
		CheckoutRequestID: req.CheckoutRequestID,
		Kind:              domain.DiscrepancyAmountMismatch,
		ReportedAmount:    mismatch.Reported,
		PayableAmount:     mismatch.Payable,
		ReceiptNumber:     receipt,
		CreatedAt:         time.Now().UTC(),
	}); err != nil {
		return nil, s.persistenceFailure("record amount mismatch", err, cb, req)
	}

	s.metrics.AmountMismatch()
	s.logger.Warn("callback amount does not match payable amount",
		zap.String("payment_request_id", req.ID),
		zap.String("checkout_request_id", req.CheckoutRequestID),
		zap.Int64("reported", mismatch.Reported),
		zap.Int64("payable", mismatch.Payable),
		zap.String("receipt_number", receipt),
	)

	return &CallbackResult{Outcome: OutcomeAmountMismatch, PaymentRequestID: req.ID}, mismatch
}

// duplicate acknowledges a callback for an already resolved request. A success
// reported after the request expired is recorded for reconciliation.
func (s *CallbackService) duplicate(ctx context.Context, req *domain.PaymentRequest, cb domain.STKCallback) (*CallbackResult, error) {
	expired := req.Status == domain.PaymentStatusFailed && req.ResponseID == ""
	if expired && cb.Succeeded() {
		reported, _ := cb.Metadata.Amount()
		receipt, _ := cb.Metadata.ReceiptNumber()

		if err := s.discrepancyRepo.Create(ctx, &domain.PaymentDiscrepancy{
			ID:                uuid.New().String(),
			PaymentRequestID:  req.ID,
			CheckoutRequestID: req.CheckoutRequestID,
			Kind:              domain.DiscrepancyLateSuccess,
			ReportedAmount:    reported,
			PayableAmount:     req.Amount,
			ReceiptNumber:     receipt,
			CreatedAt:         time.Now().UTC(),
		}); err != nil {
			return nil, s.persistenceFailure("record late success", err, cb, req)
		}

		s.logger.Warn("successful callback for expired payment request",
			zap.String("payment_request_id", req.ID),
			zap.String("checkout_request_id", req.CheckoutRequestID),
			zap.String("receipt_number", receipt),
		)
	} else {
		s.logger.Info("duplicate callback ignored",
			zap.String("payment_request_id", req.ID),
			zap.String("checkout_request_id", req.CheckoutRequestID),
			zap.String("status", string(req.Status)),
		)
	}

	return &CallbackResult{Outcome: OutcomeDuplicate, PaymentRequestID: req.ID}, nil
}

func (s *CallbackService) lostRace(req *domain.PaymentRequest) (*CallbackResult, error) {
	s.logger.Info("concurrent callback already resolved payment request",
		zap.String("payment_request_id", req.ID),
		zap.String("checkout_request_id", req.CheckoutRequestID),
	)
	return &CallbackResult{Outcome: OutcomeDuplicate, PaymentRequestID: req.ID}, nil
}

func (s *CallbackService) persistenceFailure(op string, err error, cb domain.STKCallback, req *domain.PaymentRequest) error {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("checkout_request_id", cb.CheckoutRequestID),
		zap.String("merchant_request_id", cb.MerchantRequestID),
		zap.Error(err),
	}
	if req != nil {
		fields = append(fields,
			zap.String("payment_request_id", req.ID),
			zap.String("session_id", req.SessionID),
		)
	}
	s.logger.Error("callback persistence failure", fields...)

	return persistence(op, err)
}

func validateCallback(cb domain.STKCallback) error {
	if cb.MerchantRequestID == "" {
		return invalid("MerchantRequestID", "required")
	}
	if cb.CheckoutRequestID == "" {
		return invalid("CheckoutRequestID", "required")
	}
	if cb.Succeeded() && len(cb.Metadata) == 0 {
		return invalid("CallbackMetadata", "required when ResultCode is 0")
	}
	for i, item := range cb.Metadata {
		if item.Name == "" {
			return invalid(fmt.Sprintf("CallbackMetadata.Item[%d].Name", i), "required")
		}
	}
	return nil
}

func newPaymentResponse(req *domain.PaymentRequest, cb domain.STKCallback, now time.Time) *domain.PaymentResponse {
	return &domain.PaymentResponse{
		ID:                uuid.New().String(),
		PaymentRequestID:  req.ID,
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		Metadata:          cb.Metadata,
		CreatedAt:         now,
	}
}
