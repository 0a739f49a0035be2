package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

// ExpiredResultDesc is the result description of requests failed by expiry.
const ExpiredResultDesc = "payment request expired"

// ExpiryService fails PENDING requests that never received a callback.
type ExpiryService struct {
	requestRepo   repository.PaymentRequestRepository
	notifications *NotificationService
	ttl           time.Duration
	batchSize     int
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewExpiryService creates a new ExpiryService.
func NewExpiryService(
	requestRepo repository.PaymentRequestRepository,
	notifications *NotificationService,
	ttl time.Duration,
	batchSize int,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ExpiryService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpiryService{
		requestRepo:   requestRepo,
		notifications: notifications,
		ttl:           ttl,
		batchSize:     batchSize,
		metrics:       m,
		logger:        logger,
	}
}

// Run sweeps every interval until ctx is done. It returns at once when requests
// never expire (ttl <= 0) or the interval is not positive.
func (s *ExpiryService) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		s.logger.Info("payment request expiry disabled", zap.Duration("ttl", s.ttl))
		return
	}
	if interval <= 0 {
		s.logger.Error("invalid expiry sweep interval, sweeper not started", zap.Duration("interval", interval))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("payment request expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce expires one batch of stale PENDING requests and returns how many it expired.
// A non-positive ttl means requests never expire, as in PaymentRequestService.
// Requests resolved by a callback in the meantime are skipped.
func (s *ExpiryService) SweepOnce(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	now := time.Now().UTC()

	stale, err := s.requestRepo.ListPendingCreatedBefore(ctx, now.Add(-s.ttl), s.batchSize)
	if err != nil {
		return 0, persistence("list stale payment requests", err)
	}

	expired := 0
	for _, req := range stale {
		ok, err := expireRequest(ctx, s.requestRepo, req, now)
		if err != nil {
			return expired, persistence("expire payment request", err)
		}
		if !ok {
			continue
		}

		expired++
		s.logger.Info("payment request expired",
			zap.String("payment_request_id", req.ID),
			zap.String("checkout_request_id", req.CheckoutRequestID),
			zap.Time("created_at", req.CreatedAt),
		)
		_ = s.notifications.NotifyPaymentFailed(ctx, req, ExpiredResultDesc)
	}

	s.metrics.RequestsExpired(expired)

	return expired, nil
}

// expireRequest moves a PENDING request to FAILED without a linked response.
func expireRequest(ctx context.Context, repo repository.PaymentRequestRepository, req *domain.PaymentRequest, now time.Time) (bool, error) {
	return repo.Resolve(ctx, req.ID, repository.Resolution{
		Status:     domain.PaymentStatusFailed,
		ResultDesc: ExpiredResultDesc,
		ResolvedAt: now,
	})
}
