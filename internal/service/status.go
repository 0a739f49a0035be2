package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/redis"
	"storefront/internal/repository"
)

// StatusView is what the checkout page polls for.
type StatusView struct {
	PaymentRequestID string
	Status           domain.PaymentStatus
	ResponseID       string
	OrderID          string
	ResultDesc       string
}

// StatusService serves payment request status to polling clients.
// Resolved statuses never change, so they are cached; PENDING is always read from the store.
type StatusService struct {
	requestRepo repository.PaymentRequestRepository
	orderRepo   repository.OrderRepository
	cache       redis.StatusCacheInterface
	logger      *zap.Logger
}

// NewStatusService creates a new StatusService. cache may be nil.
func NewStatusService(
	requestRepo repository.PaymentRequestRepository,
	orderRepo repository.OrderRepository,
	cache redis.StatusCacheInterface,
	logger *zap.Logger,
) *StatusService {
	return &StatusService{
		requestRepo: requestRepo,
		orderRepo:   orderRepo,
		cache:       cache,
		logger:      logger,
	}
}

// GetStatus returns the current status of a payment request owned by the caller.
// Requests owned by someone else are reported as not found.
func (s *StatusService) GetStatus(ctx context.Context, caller Caller, id string) (*StatusView, error) {
	if id == "" {
		return nil, ErrInvalidPaymentRequestID
	}
	if caller.UserID == "" && !caller.Admin {
		return nil, ErrUnauthenticated
	}

	if s.cache != nil {
		cached, err := s.cache.GetPaymentStatus(ctx, id)
		if err != nil {
			s.logger.Warn("status cache read failed", zap.String("payment_request_id", id), zap.Error(err))
		} else if cached != nil {
			if !caller.canSee(cached.UserID) {
				return nil, repository.ErrNotFound
			}
			return &StatusView{
				PaymentRequestID: cached.ID,
				Status:           domain.PaymentStatus(cached.Status),
				ResponseID:       cached.ResponseID,
				OrderID:          cached.OrderID,
				ResultDesc:       cached.ResultDesc,
			}, nil
		}
	}

	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, persistence("get payment request", err)
	}
	if !caller.canSee(req.UserID) {
		return nil, repository.ErrNotFound
	}

	view := &StatusView{
		PaymentRequestID: req.ID,
		Status:           req.Status,
		ResponseID:       req.ResponseID,
		ResultDesc:       req.ResultDesc,
	}

	if req.Status == domain.PaymentStatusSuccess {
		order, err := s.orderRepo.GetByPaymentRequestID(ctx, req.ID)
		if err != nil {
			return nil, persistence("get order for payment request", err)
		}
		view.OrderID = order.ID
	}

	if req.Status.IsTerminal() && s.cache != nil {
		if err := s.cache.SetPaymentStatus(ctx, &redis.CachedPaymentStatus{
			ID:         view.PaymentRequestID,
			UserID:     req.UserID,
			Status:     string(view.Status),
			ResponseID: view.ResponseID,
			OrderID:    view.OrderID,
			ResultDesc: view.ResultDesc,
		}); err != nil {
			s.logger.Warn("status cache write failed", zap.String("payment_request_id", id), zap.Error(err))
		}
	}

	return view, nil
}
