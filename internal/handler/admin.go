package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
)

// AdminHandler serves reconciliation views for operators.
type AdminHandler struct {
	reconciliationService *service.ReconciliationService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reconciliationService *service.ReconciliationService) *AdminHandler {
	return &AdminHandler{reconciliationService: reconciliationService}
}

// DiscrepancyResponse is one callback awaiting manual reconciliation.
type DiscrepancyResponse struct {
	ID                string    `json:"id"`
	PaymentRequestID  string    `json:"payment_request_id"`
	CheckoutRequestID string    `json:"checkout_request_id"`
	Kind              string    `json:"kind"`
	ReportedAmount    int64     `json:"reported_amount"`
	PayableAmount     int64     `json:"payable_amount"`
	ReceiptNumber     string    `json:"receipt_number,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ListDiscrepancies handles GET /v1/admin/discrepancies
func (h *AdminHandler) ListDiscrepancies(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.reconciliationService.ListDiscrepancies(c.Request.Context(), callerFrom(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DiscrepancyResponse, 0, len(items))
	for _, d := range items {
		response = append(response, DiscrepancyResponse{
			ID:                d.ID,
			PaymentRequestID:  d.PaymentRequestID,
			CheckoutRequestID: d.CheckoutRequestID,
			Kind:              string(d.Kind),
			ReportedAmount:    d.ReportedAmount,
			PayableAmount:     d.PayableAmount,
			ReceiptNumber:     d.ReceiptNumber,
			CreatedAt:         d.CreatedAt,
		})
	}

	respondJSON(c, http.StatusOK, response)
}
