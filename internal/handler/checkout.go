package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
)

// CheckoutHandler handles checkout initiation.
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// CheckoutRequest is the HTTP request body for starting a checkout.
type CheckoutRequest struct {
	ShippingAddressID string `json:"shipping_address_id"`
	PhoneNumber       string `json:"phone_number"`
}

// CheckoutResponse is returned once the STK push was sent.
type CheckoutResponse struct {
	PaymentRequestID  string `json:"payment_request_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	Status            string `json:"status"`
	Subtotal          int64  `json:"subtotal"`
	ShippingFee       int64  `json:"shipping_fee"`
	Amount            int64  `json:"amount"`
	CustomerMessage   string `json:"customer_message"`
}

// Checkout handles POST /v1/checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	caller := callerFrom(c)
	result, err := h.checkoutService.Checkout(c.Request.Context(), service.CheckoutInput{
		SessionID:         caller.SessionID,
		UserID:            caller.UserID,
		ShippingAddressID: req.ShippingAddressID,
		PhoneNumber:       req.PhoneNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CheckoutResponse{
		PaymentRequestID:  result.PaymentRequest.ID,
		CheckoutRequestID: result.PaymentRequest.CheckoutRequestID,
		Status:            string(result.PaymentRequest.Status),
		Subtotal:          result.Payable.Subtotal,
		ShippingFee:       result.Payable.ShippingFee,
		Amount:            result.Payable.Total,
		CustomerMessage:   result.CustomerMessage,
	})
}
