package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// OrderService reads orders and advances their delivery.
type OrderService struct {
	orderRepo repository.OrderRepository
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repository.OrderRepository, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// GetOrder returns a fully loaded order visible to the caller.
func (s *OrderService) GetOrder(ctx context.Context, caller Caller, id string) (*domain.Order, error) {
	if id == "" {
		return nil, ErrInvalidOrderID
	}
	if caller.UserID == "" && !caller.Admin {
		return nil, ErrUnauthenticated
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, persistence("get order", err)
	}
	if !caller.canSee(order.UserID) {
		return nil, repository.ErrNotFound
	}

	return order, nil
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, caller Caller) ([]*domain.Order, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthenticated
	}

	orders, err := s.orderRepo.ListByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, persistence("list orders", err)
	}

	return orders, nil
}

// Dispatch moves an order from PENDING to DISPATCHED and stamps the delivery start.
func (s *OrderService) Dispatch(ctx context.Context, caller Caller, id string) (*domain.Order, error) {
	return s.advance(ctx, caller, id, domain.DeliveryStatusDispatched)
}

// MarkDelivered moves an order from DISPATCHED to DELIVERED and stamps the delivery stop.
func (s *OrderService) MarkDelivered(ctx context.Context, caller Caller, id string) (*domain.Order, error) {
	return s.advance(ctx, caller, id, domain.DeliveryStatusDelivered)
}

func (s *OrderService) advance(ctx context.Context, caller Caller, id string, to domain.DeliveryStatus) (*domain.Order, error) {
	if caller.UserID == "" && !caller.Admin {
		return nil, ErrUnauthenticated
	}
	if !caller.Admin {
		return nil, ErrForbidden
	}
	if id == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, persistence("get order", err)
	}

	from := order.DeliveryStatus
	if next, ok := from.Next(); !ok || next != to {
		return nil, ErrInvalidDeliveryTransition
	}

	now := time.Now().UTC()
	ok, err := s.orderRepo.AdvanceDelivery(ctx, id, from, to, now)
	if err != nil {
		return nil, persistence("advance delivery", err)
	}
	if !ok {
		return nil, ErrInvalidDeliveryTransition
	}

	s.logger.Info("order delivery advanced",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("by", caller.UserID),
	)

	order.DeliveryStatus = to
	if to == domain.DeliveryStatusDispatched {
		order.DeliveryStart = now
	} else {
		order.DeliveryStop = now
	}

	return order, nil
}
