package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service"
)

// PaymentHandler handles HTTP requests for payment requests.
type PaymentHandler struct {
	requestService *service.PaymentRequestService
	statusService  *service.StatusService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(requestService *service.PaymentRequestService, statusService *service.StatusService) *PaymentHandler {
	return &PaymentHandler{
		requestService: requestService,
		statusService:  statusService,
	}
}

// CreatePaymentRequest is the HTTP request body for recording a push sent by a collaborator.
type CreatePaymentRequest struct {
	ShippingAddressID   string `json:"shipping_address_id"`
	PhoneNumber         string `json:"phone_number"`
	Amount              int64  `json:"amount"`
	MerchantRequestID   string `json:"merchant_request_id"`
	CheckoutRequestID   string `json:"checkout_request_id"`
	ResponseCode        string `json:"response_code"`
	ResponseDescription string `json:"response_description"`
	CustomerMessage     string `json:"customer_message"`
}

// PaymentRequestResponse is the HTTP response for a payment request.
type PaymentRequestResponse struct {
	ID                string    `json:"id"`
	CheckoutRequestID string    `json:"checkout_request_id"`
	MerchantRequestID string    `json:"merchant_request_id"`
	Amount            int64     `json:"amount"`
	PhoneNumber       string    `json:"phone_number"`
	ShippingAddressID string    `json:"shipping_address_id"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// PaymentStatusResponse is the HTTP response polled by the checkout page.
type PaymentStatusResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	ResponseID string `json:"response_id,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	ResultDesc string `json:"result_desc,omitempty"`
}

// CreatePaymentRequest handles POST /v1/payment-requests
func (h *PaymentHandler) CreatePaymentRequest(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	caller := callerFrom(c)
	pr, err := h.requestService.CreateRequest(c.Request.Context(), service.CreatePaymentRequestInput{
		SessionID:         caller.SessionID,
		UserID:            caller.UserID,
		ShippingAddressID: req.ShippingAddressID,
		PhoneNumber:       req.PhoneNumber,
		Amount:            req.Amount,
		Echo: domain.GatewayEcho{
			MerchantRequestID:   req.MerchantRequestID,
			CheckoutRequestID:   req.CheckoutRequestID,
			ResponseCode:        req.ResponseCode,
			ResponseDescription: req.ResponseDescription,
			CustomerMessage:     req.CustomerMessage,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, PaymentRequestResponse{
		ID:                pr.ID,
		CheckoutRequestID: pr.CheckoutRequestID,
		MerchantRequestID: pr.MerchantRequestID,
		Amount:            pr.Amount,
		PhoneNumber:       pr.PhoneNumber,
		ShippingAddressID: pr.ShippingAddressID,
		Status:            string(pr.Status),
		CreatedAt:         pr.CreatedAt,
	})
}

// GetStatus handles GET /v1/payment-requests/:id
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	view, err := h.statusService.GetStatus(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, PaymentStatusResponse{
		ID:         view.PaymentRequestID,
		Status:     string(view.Status),
		ResponseID: view.ResponseID,
		OrderID:    view.OrderID,
		ResultDesc: view.ResultDesc,
	})
}
