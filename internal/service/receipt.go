package service

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ReceiptService builds customer receipts for paid orders.
type ReceiptService struct {
	orders       *OrderService
	responseRepo repository.PaymentResponseRepository
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(orders *OrderService, responseRepo repository.PaymentResponseRepository) *ReceiptService {
	return &ReceiptService{
		orders:       orders,
		responseRepo: responseRepo,
	}
}

// GenerateReceipt builds the receipt of an order visible to the caller.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, caller Caller, orderID string) (*domain.Receipt, error) {
	order, err := s.orders.GetOrder(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}

	resp, err := s.responseRepo.GetByID(ctx, order.PaymentResponseID)
	if err != nil {
		return nil, persistence("get payment response", err)
	}

	return BuildReceipt(order, resp), nil
}

// BuildReceipt derives a receipt from an order's snapshots and the callback that paid it.
func BuildReceipt(order *domain.Order, resp *domain.PaymentResponse) *domain.Receipt {
	receipt := &domain.Receipt{
		OrderID:     order.ID,
		PhoneNumber: order.MpesaNumber,
		ShippingFee: order.ShippingFee,
		Total:       order.AmountPaid,
		PaidAt:      order.CreatedAt,
		Lines:       make([]domain.ReceiptLine, 0, len(order.Items)),
	}
	if resp != nil {
		receipt.ReceiptNumber, _ = resp.Metadata.ReceiptNumber()
	}

	for _, item := range order.Items {
		receipt.Lines = append(receipt.Lines, domain.ReceiptLine{
			Name:      item.Name,
			PriceType: item.PriceType,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Total:     item.Total(),
		})
		receipt.Subtotal += item.Total()
	}

	return receipt
}

// FormatReceipt renders the receipt as plain text (for SMS/email/print).
func FormatReceipt(receipt *domain.Receipt) string {
	var b strings.Builder

	b.WriteString("=====================================\n")
	b.WriteString("           ORDER RECEIPT\n")
	b.WriteString("=====================================\n")
	fmt.Fprintf(&b, "Order:   %s\n", receipt.OrderID)
	fmt.Fprintf(&b, "M-Pesa:  %s\n", receipt.ReceiptNumber)
	fmt.Fprintf(&b, "Phone:   %s\n", receipt.PhoneNumber)
	fmt.Fprintf(&b, "Date:    %s\n", receipt.PaidAt.Format("Jan 02, 2006 3:04 PM"))
	b.WriteString("-------------------------------------\n")
	for _, line := range receipt.Lines {
		fmt.Fprintf(&b, "%-20s %3d x %s\n", line.Name, line.Quantity, formatShillings(line.UnitPrice))
		fmt.Fprintf(&b, "%36s\n", formatShillings(line.Total))
	}
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "Subtotal: %26s\n", formatShillings(receipt.Subtotal))
	fmt.Fprintf(&b, "Shipping: %26s\n", formatShillings(receipt.ShippingFee))
	fmt.Fprintf(&b, "TOTAL:    %26s\n", formatShillings(receipt.Total))
	b.WriteString("=====================================\n")

	return b.String()
}

func formatShillings(amount int64) string {
	return fmt.Sprintf("KES %d", amount)
}
