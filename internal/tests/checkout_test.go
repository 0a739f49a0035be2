package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/gateway"
	"storefront/internal/repository"
	"storefront/internal/service"
)

// ──────────────────────────────────────────────
// 1. CHECKOUT
// ──────────────────────────────────────────────

func checkoutInput() service.CheckoutInput {
	return service.CheckoutInput{
		SessionID:         testSession,
		UserID:            testUser,
		ShippingAddressID: testAddress,
		PhoneNumber:       testPhone,
	}
}

func TestCheckout_ValidCart_PushesPayableAndRecordsRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	result, err := f.checkout.Checkout(context.Background(), checkoutInput())
	require.NoError(t, err)

	pushes := f.gateway.Pushes()
	require.Len(t, pushes, 1)
	assert.Equal(t, int64(testPayable), pushes[0].Amount)
	assert.Equal(t, testPhone, pushes[0].PhoneNumber)

	req := result.PaymentRequest
	assert.Equal(t, domain.PaymentStatusPending, req.Status)
	assert.Equal(t, int64(testPayable), req.Amount)
	assert.Equal(t, testSession, req.SessionID)
	assert.Equal(t, testUser, req.UserID)
	assert.NotEmpty(t, req.CheckoutRequestID)
	assert.Equal(t, int64(testSubtotal), result.Payable.Subtotal)
	assert.Equal(t, int64(testShipping), result.Payable.ShippingFee)
	assert.NotEmpty(t, result.CustomerMessage)

	assert.NotNil(t, f.store.PaymentRequest(req.ID))
	assert.False(t, f.locks.IsHeld(testSession), "lock should be released")
}

func TestCheckout_ThenCallback_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	result, err := f.checkout.Checkout(context.Background(), checkoutInput())
	require.NoError(t, err)

	cb, err := f.callbacks.HandleCallback(context.Background(), successCallback(result.PaymentRequest.CheckoutRequestID, testPayable))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeSucceeded, cb.Outcome)

	view, err := f.status.GetStatus(context.Background(), customer(), result.PaymentRequest.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, view.Status)
	assert.Equal(t, cb.OrderID, view.OrderID)
}

func TestCheckout_EmptyCart_Fails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	in := checkoutInput()
	in.SessionID = "session-without-cart"

	_, err := f.checkout.Checkout(context.Background(), in)
	assert.ErrorIs(t, err, service.ErrEmptyCart)
	assert.Empty(t, f.gateway.Pushes())
}

func TestCheckout_InvalidInput_NeverReachesGateway(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(in *service.CheckoutInput)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "anonymous caller",
			mutate: func(in *service.CheckoutInput) { in.UserID = "" },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, service.ErrUnauthenticated) },
		},
		{
			name:   "international phone format",
			mutate: func(in *service.CheckoutInput) { in.PhoneNumber = "+254712345678" },
			check:  func(t *testing.T, err error) { assertValidationField(t, err, "phone_number") },
		},
		{
			name:   "short phone",
			mutate: func(in *service.CheckoutInput) { in.PhoneNumber = "071234567" },
			check:  func(t *testing.T, err error) { assertValidationField(t, err, "phone_number") },
		},
		{
			name:   "unknown address",
			mutate: func(in *service.CheckoutInput) { in.ShippingAddressID = "addr-missing" },
			check:  func(t *testing.T, err error) { assertValidationField(t, err, "shipping_address_id") },
		},
		{
			name:   "someone else's address",
			mutate: func(in *service.CheckoutInput) { in.ShippingAddressID = foreignAddress },
			check:  func(t *testing.T, err error) { assertValidationField(t, err, "shipping_address_id") },
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			in := checkoutInput()
			tc.mutate(&in)

			_, err := f.checkout.Checkout(context.Background(), in)
			require.Error(t, err)
			tc.check(t, err)
			assert.Empty(t, f.gateway.Pushes())
			assert.Equal(t, 0, f.store.CountRequests())
		})
	}
}

func TestCheckout_LockHeld_ReturnsInProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.locks.Hold(testSession)

	_, err := f.checkout.Checkout(context.Background(), checkoutInput())
	assert.ErrorIs(t, err, service.ErrCheckoutInProgress)
	assert.Empty(t, f.gateway.Pushes())
}

func TestCheckout_LivePendingRequest_ReturnsInProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())

	_, err := f.checkout.Checkout(context.Background(), checkoutInput())
	assert.ErrorIs(t, err, service.ErrCheckoutInProgress)
	assert.Empty(t, f.gateway.Pushes())
	assert.False(t, f.locks.IsHeld(testSession))
}

func TestCheckout_StalePendingRequest_IsExpiredFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-old", testCheckoutRef, testPayable, time.Now().UTC().Add(-time.Hour))

	result, err := f.checkout.Checkout(context.Background(), checkoutInput())
	require.NoError(t, err)
	assert.NotEqual(t, "req-old", result.PaymentRequest.ID)

	old := f.store.PaymentRequest("req-old")
	assert.Equal(t, domain.PaymentStatusFailed, old.Status)
	assert.Equal(t, service.ExpiredResultDesc, old.ResultDesc)
	assert.Empty(t, old.ResponseID)
}

func TestCheckout_GatewayErrors(t *testing.T) {
	t.Parallel()

	t.Run("rejected push", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.gateway.PushError = &gateway.RejectedError{Code: "400.002.02", Message: "Bad Request - Invalid PhoneNumber"}

		_, err := f.checkout.Checkout(context.Background(), checkoutInput())
		assert.ErrorIs(t, err, gateway.ErrPushRejected)
		assert.NotErrorIs(t, err, gateway.ErrUnavailable)
		assert.Equal(t, 0, f.store.CountRequests())
		assert.Equal(t, 1.0, counterValue(t, f.registry, "storefront_gateway_push_errors_total", "rejected"))
	})

	t.Run("unreachable gateway", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.gateway.PushError = errors.New("dial tcp: i/o timeout")

		_, err := f.checkout.Checkout(context.Background(), checkoutInput())
		assert.ErrorIs(t, err, gateway.ErrUnavailable)
		assert.Equal(t, 0, f.store.CountRequests())
		assert.False(t, f.locks.IsHeld(testSession))
	})
}

// ──────────────────────────────────────────────
// 2. PAYMENT REQUEST TRACKER
// ──────────────────────────────────────────────

func createInput(checkoutRequestID string) service.CreatePaymentRequestInput {
	return service.CreatePaymentRequestInput{
		SessionID:         testSession,
		UserID:            testUser,
		ShippingAddressID: testAddress,
		PhoneNumber:       testPhone,
		Amount:            testPayable,
		Echo: domain.GatewayEcho{
			MerchantRequestID: "29115-34620561-1",
			CheckoutRequestID: checkoutRequestID,
			ResponseCode:      "0",
		},
	}
}

func TestCreateRequest_PersistsPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	req, err := f.requests.CreateRequest(context.Background(), createInput(testCheckoutRef))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, req.Status)
	assert.Equal(t, testCheckoutRef, req.CheckoutRequestID)
	assert.False(t, req.CreatedAt.IsZero())

	got, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.CheckoutRequestID, got.CheckoutRequestID)
	assert.Equal(t, 1.0, counterValue(t, f.registry, "storefront_payment_requests_created_total", ""))
}

func TestCreateRequest_DuplicateCheckoutRequestID_Rejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	_, err := f.store.RequestRepo().Resolve(context.Background(), req.ID, repository.Resolution{
		Status:     domain.PaymentStatusFailed,
		ResultDesc: "cancelled",
		ResolvedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = f.requests.CreateRequest(context.Background(), createInput(testCheckoutRef))
	assertValidationField(t, err, "checkout_request_id")
	assert.Equal(t, 1, f.store.CountRequests())
}

func TestCreateRequest_InvalidInput(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(in *service.CreatePaymentRequestInput)
		field  string
	}{
		{"missing session", func(in *service.CreatePaymentRequestInput) { in.SessionID = "" }, "session_id"},
		{"zero amount", func(in *service.CreatePaymentRequestInput) { in.Amount = 0 }, "amount"},
		{"negative amount", func(in *service.CreatePaymentRequestInput) { in.Amount = -5 }, "amount"},
		{"missing address", func(in *service.CreatePaymentRequestInput) { in.ShippingAddressID = "" }, "shipping_address_id"},
		{"missing checkout request id", func(in *service.CreatePaymentRequestInput) { in.Echo.CheckoutRequestID = "" }, "checkout_request_id"},
		{"missing merchant request id", func(in *service.CreatePaymentRequestInput) { in.Echo.MerchantRequestID = "" }, "merchant_request_id"},
		{"landline phone", func(in *service.CreatePaymentRequestInput) { in.PhoneNumber = "0201234567" }, "phone_number"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			in := createInput(testCheckoutRef)
			tc.mutate(&in)

			_, err := f.requests.CreateRequest(context.Background(), in)
			assertValidationField(t, err, tc.field)
			assert.Equal(t, 0, f.store.CountRequests())
		})
	}
}

func TestCreateRequest_StorageFailure_IsPersistenceError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.CreateRequestError = errors.New("connection refused")

	_, err := f.requests.CreateRequest(context.Background(), createInput(testCheckoutRef))
	var pe *service.PersistenceError
	assert.ErrorAs(t, err, &pe)
}

func TestGetByID_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.requests.GetByID(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrInvalidPaymentRequestID)

	_, err = f.requests.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestValidPhoneNumber(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		phone string
		want  bool
	}{
		{"0712345678", true},
		{"0112345678", true},
		{"0212345678", false},
		{"07123456789", false},
		{"071234567", false},
		{"254712345678", false},
		{"07123abc78", false},
		{"", false},
	}

	for _, tc := range testCases {
		tc := tc
		assert.Equal(t, tc.want, service.ValidPhoneNumber(tc.phone), tc.phone)
	}
}

func assertValidationField(t *testing.T, err error, field string) {
	t.Helper()

	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, field, ve.Field)
}
