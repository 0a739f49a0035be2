package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/service"
)

// CallbackHandler receives STK push results from the gateway.
type CallbackHandler struct {
	callbackService *service.CallbackService
	logger          *zap.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(callbackService *service.CallbackService, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		callbackService: callbackService,
		logger:          logger,
	}
}

// callbackEnvelope is the gateway's JSON body. Pointers distinguish absent from zero.
type callbackEnvelope struct {
	Body *struct {
		STKCallback *stkCallbackPayload `json:"stkCallback"`
	} `json:"Body"`
}

type stkCallbackPayload struct {
	MerchantRequestID *string `json:"MerchantRequestID"`
	CheckoutRequestID *string `json:"CheckoutRequestID"`
	ResultCode        *int    `json:"ResultCode"`
	ResultDesc        *string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []struct {
			Name  *string `json:"Name"`
			Value any     `json:"Value"`
		} `json:"Item"`
	} `json:"CallbackMetadata"`
}

// HandleCallback handles POST /v1/mpesa/callback
//
// 200 with an empty body stops gateway retries: success, failure, duplicate, and an
// amount mismatch (recorded for manual reconciliation). 400 malformed payload, 404
// unknown checkout request, 405 any method but POST, 500 retryable failure.
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	cb, err := decodeCallback(c)
	if err != nil {
		h.logger.Warn("malformed callback", zap.Error(err))
		respondError(c, err)
		return
	}

	if txn := nrgin.Transaction(c); txn != nil {
		txn.AddAttribute("checkout_request_id", cb.CheckoutRequestID)
		txn.AddAttribute("result_code", cb.ResultCode)
	}

	result, err := h.callbackService.HandleCallback(c.Request.Context(), cb)
	if result != nil {
		c.Set("callback_outcome", string(result.Outcome))
	}

	// Mismatches are not retried; a discrepancy has been recorded.
	if err == nil || errors.Is(err, service.ErrAmountMismatch) {
		c.Status(http.StatusOK)
		return
	}

	respondError(c, err)
}

func decodeCallback(c *gin.Context) (domain.STKCallback, error) {
	var env callbackEnvelope
	if err := json.NewDecoder(c.Request.Body).Decode(&env); err != nil {
		return domain.STKCallback{}, &service.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()}
	}

	if env.Body == nil || env.Body.STKCallback == nil {
		return domain.STKCallback{}, &service.ValidationError{Field: "Body.stkCallback", Reason: "required"}
	}
	p := env.Body.STKCallback

	switch {
	case p.MerchantRequestID == nil:
		return domain.STKCallback{}, &service.ValidationError{Field: "MerchantRequestID", Reason: "required"}
	case p.CheckoutRequestID == nil:
		return domain.STKCallback{}, &service.ValidationError{Field: "CheckoutRequestID", Reason: "required"}
	case p.ResultCode == nil:
		return domain.STKCallback{}, &service.ValidationError{Field: "ResultCode", Reason: "required"}
	case p.ResultDesc == nil:
		return domain.STKCallback{}, &service.ValidationError{Field: "ResultDesc", Reason: "required"}
	}

	cb := domain.STKCallback{
		MerchantRequestID: *p.MerchantRequestID,
		CheckoutRequestID: *p.CheckoutRequestID,
		ResultCode:        *p.ResultCode,
		ResultDesc:        *p.ResultDesc,
	}

	if p.CallbackMetadata != nil {
		for _, item := range p.CallbackMetadata.Item {
			if item.Name == nil {
				return domain.STKCallback{}, &service.ValidationError{Field: "CallbackMetadata.Item.Name", Reason: "required"}
			}
			// Values arrive as numbers or strings depending on the item.
			value, err := cast.ToStringE(item.Value)
			if err != nil {
				return domain.STKCallback{}, &service.ValidationError{Field: "CallbackMetadata.Item." + *item.Name, Reason: "unsupported value"}
			}
			cb.Metadata = append(cb.Metadata, domain.CallbackItem{Name: *item.Name, Value: value})
		}
	}

	return cb, nil
}
