package tests

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"
)

// paidOrder runs a successful callback and returns the created order's id.
func paidOrder(t *testing.T, f *fixture) string {
	t.Helper()

	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	result, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, testPayable))
	require.NoError(t, err)
	require.Equal(t, service.OutcomeSucceeded, result.Outcome)
	return result.OrderID
}

// ──────────────────────────────────────────────
// 1. AMOUNT VALIDATOR
// ──────────────────────────────────────────────

func TestComputePayable_SumsLinesAndShipping(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	payable, err := f.amounts.ComputePayable(context.Background(), testSession, testAddress)
	require.NoError(t, err)
	assert.Equal(t, int64(testSubtotal), payable.Subtotal)
	assert.Equal(t, int64(testShipping), payable.ShippingFee)
	assert.Equal(t, int64(testPayable), payable.Total)
	assert.Len(t, payable.Cart.Lines, 2)
}

func TestComputePayable_UsesLivePrices(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetProductPrice("p-egg", 25)

	payable, err := f.amounts.ComputePayable(context.Background(), testSession, testAddress)
	require.NoError(t, err)
	assert.Equal(t, int64(3*200+20*25+testShipping), payable.Total)
}

func TestComputePayable_MissingCart_IsEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	payable, err := f.amounts.ComputePayable(context.Background(), "no-such-session", testAddress)
	require.NoError(t, err)
	assert.True(t, payable.Cart.IsEmpty())
	assert.Equal(t, int64(0), payable.Subtotal)
	assert.Equal(t, int64(testShipping), payable.Total)
}

func TestComputePayable_UnknownAddress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.amounts.ComputePayable(context.Background(), testSession, "addr-missing")
	assertValidationField(t, err, "shipping_address_id")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		reported int64
		wantErr  bool
	}{
		{"exact amount", testPayable, false},
		{"subtotal only", testSubtotal, true},
		{"overpaid", testPayable + 1, true},
		{"underpaid by one", testPayable - 1, true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			payable, err := f.amounts.Validate(context.Background(), testSession, testAddress, tc.reported)
			require.NotNil(t, payable)
			if tc.wantErr {
				assert.ErrorIs(t, err, service.ErrAmountMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ──────────────────────────────────────────────
// 2. ORDER MATERIALIZER
// ──────────────────────────────────────────────

func TestMaterializeOrder_SnapshotsCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	payable, err := f.amounts.ComputePayable(context.Background(), testSession, testAddress)
	require.NoError(t, err)

	resp := &domain.PaymentResponse{ID: "resp-1", PaymentRequestID: req.ID}
	now := time.Now().UTC()

	order, err := service.MaterializeOrder(req, resp, payable, testPayable, now)
	require.NoError(t, err)
	assert.Equal(t, req.ID, order.PaymentRequestID)
	assert.Equal(t, "resp-1", order.PaymentResponseID)
	assert.Equal(t, testUser, order.UserID)
	assert.Equal(t, testAddress, order.ShippingAddressID)
	assert.Equal(t, now, order.CreatedAt)
	require.Len(t, order.Items, 2)

	var itemsTotal int64
	for _, item := range order.Items {
		assert.Equal(t, order.ID, item.OrderID)
		itemsTotal += item.Total()
	}
	assert.Equal(t, int64(testSubtotal), itemsTotal)
	assert.Equal(t, order.AmountPayable, itemsTotal+order.ShippingFee)
}

func TestMaterializeOrder_RefusesMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	payable, err := f.amounts.ComputePayable(context.Background(), testSession, testAddress)
	require.NoError(t, err)

	_, err = service.MaterializeOrder(req, &domain.PaymentResponse{ID: "resp-1"}, payable, testSubtotal, time.Now())
	assert.ErrorIs(t, err, service.ErrAmountMismatch)
}

func TestOrderItems_SurviveCatalogChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID := paidOrder(t, f)

	f.store.SetProductPrice("p-tomato", 999)
	f.store.DeleteProduct("p-egg")

	order, err := f.orders.GetOrder(context.Background(), customer(), orderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	byName := map[string]domain.OrderItem{}
	for _, item := range order.Items {
		byName[item.Name] = item
	}
	assert.Equal(t, int64(200), byName["Tomatoes"].Price)
	assert.Equal(t, "per kg", byName["Tomatoes"].PriceType)
	assert.Equal(t, 3, byName["Tomatoes"].Quantity)
	assert.Equal(t, int64(20), byName["Eggs"].Price)
	assert.Equal(t, 20, byName["Eggs"].Quantity)
}

// ──────────────────────────────────────────────
// 3. ORDERS AND DELIVERY
// ──────────────────────────────────────────────

func TestGetOrder_Visibility(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID := paidOrder(t, f)

	_, err := f.orders.GetOrder(context.Background(), service.Caller{UserID: otherUser}, orderID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.orders.GetOrder(context.Background(), service.Caller{}, orderID)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	_, err = f.orders.GetOrder(context.Background(), customer(), "")
	assert.ErrorIs(t, err, service.ErrInvalidOrderID)

	order, err := f.orders.GetOrder(context.Background(), admin(), orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, order.ID)
}

func TestListOrders_NewestFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	now := time.Now().UTC()
	f.store.AddOrder(domain.Order{ID: "order-old", UserID: testUser, DeliveryStatus: domain.DeliveryStatusDelivered, CreatedAt: now.Add(-48 * time.Hour)})
	f.store.AddOrder(domain.Order{ID: "order-new", UserID: testUser, DeliveryStatus: domain.DeliveryStatusPending, CreatedAt: now})
	f.store.AddOrder(domain.Order{ID: "order-other", UserID: otherUser, CreatedAt: now})

	orders, err := f.orders.ListOrders(context.Background(), customer())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-new", orders[0].ID)
	assert.Equal(t, "order-old", orders[1].ID)

	_, err = f.orders.ListOrders(context.Background(), service.Caller{})
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}

func TestDelivery_AdvancesInOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID := paidOrder(t, f)

	_, err := f.orders.MarkDelivered(context.Background(), admin(), orderID)
	assert.ErrorIs(t, err, service.ErrInvalidDeliveryTransition, "cannot skip DISPATCHED")

	order, err := f.orders.Dispatch(context.Background(), admin(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusDispatched, order.DeliveryStatus)
	assert.False(t, order.DeliveryStart.IsZero())

	_, err = f.orders.Dispatch(context.Background(), admin(), orderID)
	assert.ErrorIs(t, err, service.ErrInvalidDeliveryTransition)

	order, err = f.orders.MarkDelivered(context.Background(), admin(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusDelivered, order.DeliveryStatus)
	assert.False(t, order.DeliveryStop.IsZero())

	_, err = f.orders.Dispatch(context.Background(), admin(), orderID)
	assert.ErrorIs(t, err, service.ErrInvalidDeliveryTransition)
}

func TestDelivery_RequiresAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID := paidOrder(t, f)

	_, err := f.orders.Dispatch(context.Background(), customer(), orderID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.orders.Dispatch(context.Background(), service.Caller{}, orderID)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	_, err = f.orders.Dispatch(context.Background(), admin(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// ──────────────────────────────────────────────
// 4. RECEIPTS AND RECONCILIATION
// ──────────────────────────────────────────────

func TestGenerateReceipt(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID := paidOrder(t, f)

	receipt, err := f.receipts.GenerateReceipt(context.Background(), customer(), orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, receipt.OrderID)
	assert.Equal(t, testReceipt, receipt.ReceiptNumber)
	assert.Equal(t, int64(testSubtotal), receipt.Subtotal)
	assert.Equal(t, int64(testShipping), receipt.ShippingFee)
	assert.Equal(t, int64(testPayable), receipt.Total)
	assert.Len(t, receipt.Lines, 2)

	text := service.FormatReceipt(receipt)
	assert.True(t, strings.Contains(text, testReceipt))
	assert.True(t, strings.Contains(text, "KES 1150"))
	assert.True(t, strings.Contains(text, "Tomatoes"))

	_, err = f.receipts.GenerateReceipt(context.Background(), service.Caller{UserID: otherUser}, orderID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListDiscrepancies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedPending("req-1", testCheckoutRef, testPayable, time.Now().UTC())
	_, err := f.callbacks.HandleCallback(context.Background(), successCallback(testCheckoutRef, 1))
	require.ErrorIs(t, err, service.ErrAmountMismatch)

	_, err = f.reconciliation.ListDiscrepancies(context.Background(), customer(), 10)
	assert.ErrorIs(t, err, service.ErrForbidden)

	list, err := f.reconciliation.ListDiscrepancies(context.Background(), admin(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.DiscrepancyAmountMismatch, list[0].Kind)
	assert.Equal(t, int64(1), list[0].ReportedAmount)
}
