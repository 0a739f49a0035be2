package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repository"
	"storefront/internal/service"
)

// ──────────────────────────────────────────────
// 1. CALLBACK OUTCOMES
// ──────────────────────────────────────────────

func TestCallback_SuccessWithMatchingAmount_CreatesOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())

	result, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeSucceeded, result.Outcome)
	assert.Equal(t, req.ID, result.PaymentRequestID)
	require.NotEmpty(t, result.OrderID)

	stored := f.store.PaymentRequest(req.ID)
	assert.Equal(t, domain.PaymentStatusSuccess, stored.Status)
	assert.NotEmpty(t, stored.ResponseID)
	assert.False(t, stored.ResolvedAt.IsZero())

	orders := f.store.Orders()
	require.Len(t, orders, 1)
	order := orders[0]
	assert.Equal(t, result.OrderID, order.ID)
	assert.Equal(t, int64(testPayable), order.AmountPaid)
	assert.Equal(t, int64(testPayable), order.AmountPayable)
	assert.Equal(t, int64(testShipping), order.ShippingFee)
	assert.Equal(t, stored.ResponseID, order.PaymentResponseID)
	assert.Equal(t, testPhone, order.MpesaNumber)
	assert.Equal(t, domain.DeliveryStatusPending, order.DeliveryStatus)
	assert.Len(t, order.Items, 2)

	assert.Equal(t, 1, f.store.CountResponses())
	assert.Equal(t, 0, f.store.CountCartLines(testSession), "cart should be cleared with the order")
	assert.Equal(t, []string{events.TypeOrderCreated}, f.publisher.Types())
	assert.Equal(t, 1.0, counterValue(t, f.registry, "storefront_mpesa_callbacks_total", "succeeded"))
	assert.Equal(t, 1.0, counterValue(t, f.registry, "storefront_orders_materialized_total", ""))
}

func TestCallback_SuccessWithWrongAmount_LeavesRequestPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())

	result, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testSubtotal))
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrAmountMismatch)

	var mismatch *service.AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(testSubtotal), mismatch.Reported)
	assert.Equal(t, int64(testPayable), mismatch.Payable)
	assert.Equal(t, service.OutcomeAmountMismatch, result.Outcome)

	assert.Equal(t, domain.PaymentStatusPending, f.store.PaymentRequest(req.ID).Status)
	assert.Empty(t, f.store.Orders())
	assert.Equal(t, 0, f.store.CountResponses())
	assert.Equal(t, 2, f.store.CountCartLines(testSession))

	discrepancies := f.store.Discrepancies()
	require.Len(t, discrepancies, 1)
	assert.Equal(t, domain.DiscrepancyAmountMismatch, discrepancies[0].Kind)
	assert.Equal(t, req.ID, discrepancies[0].PaymentRequestID)
	assert.Equal(t, int64(testSubtotal), discrepancies[0].ReportedAmount)
	assert.Equal(t, int64(testPayable), discrepancies[0].PayableAmount)
	assert.Equal(t, testReceipt, discrepancies[0].ReceiptNumber)
}

func TestCallback_PriceChangedSinceCheckout_IsMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())

	// The payable amount is recomputed from live prices when the callback arrives.
	f.store.SetProductPrice("p-tomato", 250)

	result, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	assert.ErrorIs(t, err, service.ErrAmountMismatch)
	assert.Equal(t, service.OutcomeAmountMismatch, result.Outcome)
	assert.Equal(t, domain.PaymentStatusPending, f.store.PaymentRequest(req.ID).Status)
	assert.Empty(t, f.store.Orders())
}

func TestCallback_FailureCode_FailsRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())

	desc := "The balance is insufficient for the transaction."
	result, err := f.callbacks.HandleCallback(context.Background(), failureCallback(testCheckoutRef, 1, desc))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeFailed, result.Outcome)
	assert.Empty(t, result.OrderID)

	stored := f.store.PaymentRequest(req.ID)
	assert.Equal(t, domain.PaymentStatusFailed, stored.Status)
	assert.Equal(t, desc, stored.ResultDesc)
	require.NotEmpty(t, stored.ResponseID)

	resp, err := f.store.ResponseRepo().GetByID(context.Background(), stored.ResponseID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ResultCode)
	assert.Equal(t, desc, resp.ResultDesc)
	assert.Equal(t, req.ID, resp.PaymentRequestID)

	assert.Empty(t, f.store.Orders())
	assert.Equal(t, 2, f.store.CountCartLines(testSession), "a failed payment keeps the cart")
	assert.Equal(t, []string{events.TypePaymentFailed}, f.publisher.Types())
}

func TestCallback_UnknownCheckoutRequest_MutatesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())

	result, err := f.callbacks.HandleCallback(context.Background(), successCallback("ws_CO_unknown", testPayable))
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, service.OutcomeRejected, result.Outcome)

	assert.Equal(t, domain.PaymentStatusPending, f.store.PaymentRequest(req.ID).Status)
	assert.Equal(t, 0, f.store.CountResponses())
	assert.Empty(t, f.store.Orders())
	assert.Empty(t, f.store.Discrepancies())
	assert.Equal(t, int32(0), f.store.CommitCount)
	assert.Equal(t, 2, f.store.CountCartLines(testSession))
}

// ──────────────────────────────────────────────
// 2. DUPLICATE DELIVERY
// ──────────────────────────────────────────────

func TestCallback_DuplicateSuccess_CreatesSingleOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	cb := successCallback(testCheckoutRef, testPayable)

	first, err := f.callbacks.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	require.Equal(t, service.OutcomeSucceeded, first.Outcome)

	second, err := f.callbacks.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeDuplicate, second.Outcome)
	assert.Empty(t, second.OrderID)

	assert.Len(t, f.store.Orders(), 1)
	assert.Equal(t, 1, f.store.CountResponses())
	assert.Empty(t, f.store.Discrepancies())
}

func TestCallback_ConcurrentDuplicates_CreateExactlyOneOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	cb := successCallback(testCheckoutRef, testPayable)

	const deliveries = 10
	outcomes := make(chan service.CallbackOutcome, deliveries)
	errs := make(chan error, deliveries)

	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.callbacks.HandleCallback(context.Background(), cb)
			if err != nil {
				errs <- err
				return
			}
			outcomes <- result.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	succeeded := 0
	for outcome := range outcomes {
		switch outcome {
		case service.OutcomeSucceeded:
			succeeded++
		case service.OutcomeDuplicate:
		default:
			t.Errorf("unexpected outcome %q", outcome)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.store.Orders(), 1)
	assert.Equal(t, 1, f.store.CountResponses())
	assert.Equal(t, domain.PaymentStatusSuccess, f.store.PaymentRequest("req-1").Status)
}

func TestCallback_FailureAfterSuccess_IsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())

	_, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	require.NoError(t, err)

	result, err := f.callbacks.HandleCallback(context.Background(), failureCallback(testCheckoutRef, 1032, "Request cancelled by user"))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeDuplicate, result.Outcome)

	stored := f.store.PaymentRequest("req-1")
	assert.Equal(t, domain.PaymentStatusSuccess, stored.Status)
	assert.Equal(t, 1, f.store.CountResponses())
}

func TestCallback_SuccessForExpiredRequest_RecordsLateSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC().Add(-time.Hour))

	expired, err := f.expiry.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	result, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeDuplicate, result.Outcome)

	assert.Equal(t, domain.PaymentStatusFailed, f.store.PaymentRequest("req-1").Status)
	assert.Empty(t, f.store.Orders())

	discrepancies := f.store.Discrepancies()
	require.Len(t, discrepancies, 1)
	assert.Equal(t, domain.DiscrepancyLateSuccess, discrepancies[0].Kind)
	assert.Equal(t, int64(testPayable), discrepancies[0].ReportedAmount)
	assert.Equal(t, testReceipt, discrepancies[0].ReceiptNumber)
}

// ──────────────────────────────────────────────
// 3. ATOMICITY
// ──────────────────────────────────────────────

func TestCallback_OrderCreationFails_RollsBackEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	f.store.CreateOrderError = errors.New("connection reset by peer")

	result, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	require.Error(t, err)

	var pe *service.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, service.OutcomeError, result.Outcome)

	assert.Equal(t, domain.PaymentStatusPending, f.store.PaymentRequest("req-1").Status)
	assert.Equal(t, 0, f.store.CountResponses())
	assert.Empty(t, f.store.Orders())
	assert.Equal(t, 2, f.store.CountCartLines(testSession))
	assert.Equal(t, int32(1), f.store.RollbackCount)
	assert.Empty(t, f.publisher.Types())

	// The gateway retries; the request is still PENDING so the retry applies.
	f.store.CreateOrderError = nil
	result, err = f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeSucceeded, result.Outcome)
	assert.Len(t, f.store.Orders(), 1)
}

func TestCallback_CartClearFails_RollsBackOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	f.store.ClearCartError = errors.New("deadlock detected")

	_, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	require.Error(t, err)

	assert.Equal(t, domain.PaymentStatusPending, f.store.PaymentRequest("req-1").Status)
	assert.Empty(t, f.store.Orders())
	assert.Equal(t, 0, f.store.CountResponses())
}

func TestCallback_LineAddedDuringCallback_StaysInCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())

	// The cart is read before the transaction opens; a line added in between
	// was never paid for and must survive the commit.
	var once sync.Once
	f.store.BeforeTx = func() {
		once.Do(func() { f.store.AddCartLine(testSession, testUser, "p-egg", 6) })
	}

	result, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeSucceeded, result.Outcome)

	orders := f.store.Orders()
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 2)
	assert.Equal(t, 1, f.store.CountCartLines(testSession), "only the ordered lines are removed")
}

func TestCallback_SlowPublisher_DoesNotHoldAcknowledgement(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	f.publisher.Block = true

	type reply struct {
		result *service.CallbackResult
		err    error
	}
	done := make(chan reply, 1)
	go func() {
		result, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
		done <- reply{result, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, service.OutcomeSucceeded, r.result.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("callback waited on the event publisher")
	}

	assert.Len(t, f.store.Orders(), 1)
	assert.Empty(t, f.publisher.Types())
}

func TestCallback_ResponseInsertFails_KeepsRequestPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	f.store.CreateResponseError = errors.New("disk full")

	_, err := f.callbacks.HandleCallback(context.Background(), failureCallback(testCheckoutRef, 1, "insufficient funds"))
	require.Error(t, err)

	var pe *service.PersistenceError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.PaymentStatusPending, f.store.PaymentRequest("req-1").Status)
}

func TestCallback_LookupFails_IsPersistenceError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.GetByCheckoutError = errors.New("too many connections")

	result, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	var pe *service.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, service.OutcomeError, result.Outcome)
}

// ──────────────────────────────────────────────
// 4. MALFORMED CALLBACKS
// ──────────────────────────────────────────────

func TestCallback_Malformed_IsRejected(t *testing.T) {
	t.Parallel()

	noAmount := successCallback(testCheckoutRef, testPayable)
	noAmount.Metadata = domain.CallbackMetadata{{Name: domain.MetadataReceiptNumber, Value: testReceipt}}

	fractional := successCallback(testCheckoutRef, testPayable)
	fractional.Metadata[0].Value = "1150.50"

	// 2^64 + 1150 wraps to the payable amount when truncated to int64.
	overflowing := successCallback(testCheckoutRef, testPayable)
	overflowing.Metadata[0].Value = "18446744073709552766"

	noCheckout := successCallback("", testPayable)

	noMerchant := successCallback(testCheckoutRef, testPayable)
	noMerchant.MerchantRequestID = ""

	noMetadata := successCallback(testCheckoutRef, testPayable)
	noMetadata.Metadata = nil

	unnamedItem := failureCallback(testCheckoutRef, 1, "failed")
	unnamedItem.Metadata = domain.CallbackMetadata{{Name: "", Value: "x"}}

	testCases := []struct {
		name  string
		cb    domain.STKCallback
		field string
	}{
		{"missing amount", noAmount, "CallbackMetadata.Amount"},
		{"fractional amount", fractional, "CallbackMetadata.Amount"},
		{"amount beyond int64", overflowing, "CallbackMetadata.Amount"},
		{"missing checkout request id", noCheckout, "CheckoutRequestID"},
		{"missing merchant request id", noMerchant, "MerchantRequestID"},
		{"success without metadata", noMetadata, "CallbackMetadata"},
		{"unnamed metadata item", unnamedItem, "CallbackMetadata.Item[0].Name"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())

			result, err := f.callbacks.HandleCallback(context.Background(), tc.cb)

			var ve *service.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.Equal(t, service.OutcomeRejected, result.Outcome)
			assert.Equal(t, domain.PaymentStatusPending, f.store.PaymentRequest("req-1").Status)
			assert.Empty(t, f.store.Orders())
			assert.Equal(t, 0, f.store.CountResponses())
		})
	}
}

// counterValue reads a counter from the registry, optionally selecting a label value.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
