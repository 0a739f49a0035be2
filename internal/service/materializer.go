package service

import (
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// MaterializeOrder builds the order for a paid request from the validated payable.
// Each cart line is copied into an item snapshot; the cart is not modified.
func MaterializeOrder(req *domain.PaymentRequest, resp *domain.PaymentResponse, payable *Payable, amountPaid int64, now time.Time) (*domain.Order, error) {
	if amountPaid != payable.Total {
		return nil, &AmountMismatchError{Reported: amountPaid, Payable: payable.Total}
	}

	order := &domain.Order{
		ID:                uuid.New().String(),
		UserID:            req.UserID,
		SessionID:         req.SessionID,
		ShippingAddressID: req.ShippingAddressID,
		PaymentRequestID:  req.ID,
		PaymentResponseID: resp.ID,
		MpesaNumber:       req.PhoneNumber,
		AmountPaid:        amountPaid,
		AmountPayable:     payable.Total,
		ShippingFee:       payable.ShippingFee,
		DeliveryStatus:    domain.DeliveryStatusPending,
		CreatedAt:         now,
	}

	if payable.Cart != nil {
		order.Items = make([]domain.OrderItem, 0, len(payable.Cart.Lines))
		for _, line := range payable.Cart.Lines {
			order.Items = append(order.Items, domain.OrderItem{
				ID:        uuid.New().String(),
				OrderID:   order.ID,
				ProductID: line.Product.ID,
				Name:      line.Product.Name,
				Price:     line.Product.Price,
				PriceType: line.Product.PriceType,
				Category:  line.Product.Category,
				Image:     line.Product.Image,
				Quantity:  line.Quantity,
			})
		}
	}

	return order, nil
}
