package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService   *service.OrderService
	receiptService *service.ReceiptService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService, receiptService *service.ReceiptService) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		receiptService: receiptService,
	}
}

// OrderItemResponse is one item snapshot of an order.
type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	PriceType string `json:"price_type"`
	Category  string `json:"category"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
	Total     int64  `json:"total"`
}

// OrderResponse is the HTTP response for an order.
type OrderResponse struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	ShippingAddressID string              `json:"shipping_address_id"`
	PaymentRequestID  string              `json:"payment_request_id"`
	MpesaNumber       string              `json:"mpesa_number"`
	AmountPaid        int64               `json:"amount_paid"`
	AmountPayable     int64               `json:"amount_payable"`
	ShippingFee       int64               `json:"shipping_fee"`
	DeliveryStatus    string              `json:"delivery_status"`
	DeliveryStart     *time.Time          `json:"delivery_start,omitempty"`
	DeliveryStop      *time.Time          `json:"delivery_stop,omitempty"`
	Items             []OrderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
}

// ReceiptLineResponse is one line of a receipt.
type ReceiptLineResponse struct {
	Name      string `json:"name"`
	PriceType string `json:"price_type"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Total     int64  `json:"total"`
}

// ReceiptResponse is the HTTP response for an order receipt.
type ReceiptResponse struct {
	OrderID       string                `json:"order_id"`
	ReceiptNumber string                `json:"receipt_number"`
	PhoneNumber   string                `json:"phone_number"`
	Lines         []ReceiptLineResponse `json:"lines"`
	Subtotal      int64                 `json:"subtotal"`
	ShippingFee   int64                 `json:"shipping_fee"`
	Total         int64                 `json:"total"`
	PaidAt        time.Time             `json:"paid_at"`
}

// ListOrders handles GET /v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, toOrderResponse(order))
	}

	respondJSON(c, http.StatusOK, response)
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// GetReceipt handles GET /v1/orders/:id/receipt (?format=text for plain text)
func (h *OrderHandler) GetReceipt(c *gin.Context) {
	receipt, err := h.receiptService.GenerateReceipt(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, service.FormatReceipt(receipt))
		return
	}

	lines := make([]ReceiptLineResponse, 0, len(receipt.Lines))
	for _, l := range receipt.Lines {
		lines = append(lines, ReceiptLineResponse(l))
	}

	respondJSON(c, http.StatusOK, ReceiptResponse{
		OrderID:       receipt.OrderID,
		ReceiptNumber: receipt.ReceiptNumber,
		PhoneNumber:   receipt.PhoneNumber,
		Lines:         lines,
		Subtotal:      receipt.Subtotal,
		ShippingFee:   receipt.ShippingFee,
		Total:         receipt.Total,
		PaidAt:        receipt.PaidAt,
	})
}

// Dispatch handles POST /v1/admin/orders/:id/dispatch
func (h *OrderHandler) Dispatch(c *gin.Context) {
	order, err := h.orderService.Dispatch(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// MarkDelivered handles POST /v1/admin/orders/:id/deliver
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	order, err := h.orderService.MarkDelivered(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

func toOrderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:                order.ID,
		UserID:            order.UserID,
		ShippingAddressID: order.ShippingAddressID,
		PaymentRequestID:  order.PaymentRequestID,
		MpesaNumber:       order.MpesaNumber,
		AmountPaid:        order.AmountPaid,
		AmountPayable:     order.AmountPayable,
		ShippingFee:       order.ShippingFee,
		DeliveryStatus:    string(order.DeliveryStatus),
		Items:             make([]OrderItemResponse, 0, len(order.Items)),
		CreatedAt:         order.CreatedAt,
	}
	if !order.DeliveryStart.IsZero() {
		t := order.DeliveryStart
		resp.DeliveryStart = &t
	}
	if !order.DeliveryStop.IsZero() {
		t := order.DeliveryStop
		resp.DeliveryStop = &t
	}

	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			PriceType: item.PriceType,
			Category:  item.Category,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Total:     item.Total(),
		})
	}

	return resp
}
