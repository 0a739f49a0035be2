package tests

import (
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/service"
)

const (
	testUser       = "user-1"
	otherUser      = "user-2"
	testSession    = "session-1"
	testAddress    = "addr-1"
	foreignAddress = "addr-2"
	testPhone      = "0712345678"
	testReceipt    = "NLJ7RT61SV"

	// Cart of testSession: 3 x 200 + 20 x 20 = 1000, shipped for 150.
	testSubtotal    = 1000
	testShipping    = 150
	testPayable     = testSubtotal + testShipping
	testRequestTTL  = 5 * time.Minute
	testCheckoutRef = "ws_CO_191220191020363925"

	testPublishTimeout = 50 * time.Millisecond
)

type fixture struct {
	store     *MemoryStore
	gateway   *MockGateway
	locks     *MockLockStore
	cache     *MockStatusCache
	publisher *RecordingPublisher
	registry  *prometheus.Registry

	requests       *service.PaymentRequestService
	amounts        *service.AmountValidator
	checkout       *service.CheckoutService
	callbacks      *service.CallbackService
	status         *service.StatusService
	expiry         *service.ExpiryService
	orders         *service.OrderService
	receipts       *service.ReceiptService
	reconciliation *service.ReconciliationService
}

// newFixture wires every service over a seeded in-memory store.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := NewMemoryStore()
	store.AddLocation(domain.Location{ID: "loc-1", Name: "Westlands", County: "Nairobi", Town: "Nairobi", ShippingFee: testShipping})
	store.AddAddress(domain.Address{ID: testAddress, UserID: testUser, FirstName: "Wanjiru", LastName: "Kamau", MobilePhoneNumber: testPhone, LocationID: "loc-1", IsDefault: true})
	store.AddAddress(domain.Address{ID: foreignAddress, UserID: otherUser, FirstName: "Otieno", LastName: "Odhiambo", LocationID: "loc-1"})
	store.AddProduct(domain.Product{ID: "p-tomato", Name: "Tomatoes", Price: 200, PriceType: "per kg", Category: "vegetables", Stock: 50})
	store.AddProduct(domain.Product{ID: "p-egg", Name: "Eggs", Price: 20, PriceType: "per piece", Category: "dairy", Stock: 300})
	store.AddCartLine(testSession, testUser, "p-tomato", 3)
	store.AddCartLine(testSession, testUser, "p-egg", 20)

	f := &fixture{
		store:     store,
		gateway:   NewMockGateway(),
		locks:     NewMockLockStore(),
		cache:     NewMockStatusCache(),
		publisher: NewRecordingPublisher(),
		registry:  prometheus.NewRegistry(),
	}

	log := zap.NewNop()
	m := metrics.New(f.registry)
	notifications := service.NewNotificationService(f.publisher, testPublishTimeout, log)

	f.requests = service.NewPaymentRequestService(store.RequestRepo(), store.AddressRepo(), testRequestTTL, m, log)
	f.amounts = service.NewAmountValidator(store.CartRepo(), store.AddressRepo())
	f.checkout = service.NewCheckoutService(f.requests, f.amounts, f.gateway, f.locks, time.Minute, m, log)
	f.callbacks = service.NewCallbackService(store.RequestRepo(), store.DiscrepancyRepo(), store, f.amounts, notifications, m, log)
	f.status = service.NewStatusService(store.RequestRepo(), store.OrderRepo(), f.cache, log)
	f.expiry = service.NewExpiryService(store.RequestRepo(), notifications, testRequestTTL, 10, m, log)
	f.orders = service.NewOrderService(store.OrderRepo(), log)
	f.receipts = service.NewReceiptService(f.orders, store.ResponseRepo())
	f.reconciliation = service.NewReconciliationService(store.DiscrepancyRepo())

	return f
}

// seedPending stores a PENDING request for testSession created at createdAt.
func (f *fixture) seedPending(id, checkoutRequestID string, amount int64, createdAt time.Time) *domain.PaymentRequest {
	req := domain.PaymentRequest{
		ID:                id,
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: checkoutRequestID,
		ResponseCode:      "0",
		Amount:            amount,
		PhoneNumber:       testPhone,
		SessionID:         testSession,
		ShippingAddressID: testAddress,
		UserID:            testUser,
		Status:            domain.PaymentStatusPending,
		CreatedAt:         createdAt,
	}
	f.store.AddPaymentRequest(req)
	return &req
}

func successCallback(checkoutRequestID string, amount int64) domain.STKCallback {
	return domain.STKCallback{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		Metadata: domain.CallbackMetadata{
			{Name: domain.MetadataAmount, Value: strconv.FormatInt(amount, 10)},
			{Name: domain.MetadataReceiptNumber, Value: testReceipt},
			{Name: domain.MetadataTransactionDate, Value: "20191219102115"},
			{Name: domain.MetadataPhoneNumber, Value: "254712345678"},
		},
	}
}

func failureCallback(checkoutRequestID string, code int, desc string) domain.STKCallback {
	return domain.STKCallback{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        code,
		ResultDesc:        desc,
	}
}

func customer() service.Caller {
	return service.Caller{UserID: testUser, SessionID: testSession}
}

func admin() service.Caller {
	return service.Caller{UserID: "admin-1", Admin: true}
}
