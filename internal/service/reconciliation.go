package service

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

const maxDiscrepancyPage = 200

// ReconciliationService exposes callbacks that were acknowledged but not applied.
type ReconciliationService struct {
	discrepancyRepo repository.DiscrepancyRepository
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(discrepancyRepo repository.DiscrepancyRepository) *ReconciliationService {
	return &ReconciliationService{discrepancyRepo: discrepancyRepo}
}

// ListDiscrepancies returns the most recent discrepancies. Admin only.
func (s *ReconciliationService) ListDiscrepancies(ctx context.Context, caller Caller, limit int) ([]*domain.PaymentDiscrepancy, error) {
	if caller.UserID == "" && !caller.Admin {
		return nil, ErrUnauthenticated
	}
	if !caller.Admin {
		return nil, ErrForbidden
	}
	if limit <= 0 || limit > maxDiscrepancyPage {
		limit = maxDiscrepancyPage
	}

	items, err := s.discrepancyRepo.List(ctx, limit)
	if err != nil {
		return nil, persistence("list discrepancies", err)
	}

	return items, nil
}
