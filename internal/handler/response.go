package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/gateway"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
)

const internalErrorMessage = "internal server error"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Server-side failures never expose their cause.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	_ = c.Error(err)

	if code >= http.StatusInternalServerError && code != http.StatusBadGateway && code != http.StatusServiceUnavailable {
		c.JSON(code, ErrorResponse{Error: internalErrorMessage})
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	c.JSON(code, resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var pe *service.PersistenceError
	var ve *service.ValidationError

	switch {
	// Storage failures first: they may wrap any sentinel.
	case errors.As(err, &pe):
		return http.StatusInternalServerError

	case errors.As(err, &ve),
		errors.Is(err, service.ErrInvalidPaymentRequestID),
		errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrCheckoutInProgress),
		errors.Is(err, service.ErrInvalidDeliveryTransition),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, service.ErrAmountMismatch):
		return http.StatusUnprocessableEntity

	case errors.Is(err, gateway.ErrPushRejected):
		return http.StatusBadGateway

	case errors.Is(err, gateway.ErrUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// callerFrom builds the service caller from the identity middleware.
func callerFrom(c *gin.Context) service.Caller {
	return service.Caller{
		UserID:    middleware.UserID(c),
		SessionID: middleware.SessionID(c),
		Admin:     middleware.IsAdmin(c),
	}
}
