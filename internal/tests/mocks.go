package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/gateway"
	"storefront/internal/redis"
	"storefront/internal/repository"
)

// ──────────────────────────────────────────────
// IN-MEMORY STORE
// ──────────────────────────────────────────────

type cartItem struct {
	ID        string
	ProductID string
	Quantity  int
}

// memState is the full data set of a MemoryStore. Transactions work on a clone.
type memState struct {
	requests      map[string]domain.PaymentRequest
	responses     map[string]domain.PaymentResponse
	orders        map[string]domain.Order
	products      map[string]domain.Product
	cartItems     map[string][]cartItem // by session
	cartUsers     map[string]string     // session -> user
	addresses     map[string]domain.Address
	locations     map[string]domain.Location
	discrepancies []domain.PaymentDiscrepancy
}

func newMemState() *memState {
	return &memState{
		requests:  make(map[string]domain.PaymentRequest),
		responses: make(map[string]domain.PaymentResponse),
		orders:    make(map[string]domain.Order),
		products:  make(map[string]domain.Product),
		cartItems: make(map[string][]cartItem),
		cartUsers: make(map[string]string),
		addresses: make(map[string]domain.Address),
		locations: make(map[string]domain.Location),
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	for k, v := range st.requests {
		c.requests[k] = v
	}
	for k, v := range st.responses {
		c.responses[k] = v
	}
	for k, v := range st.orders {
		v.Items = append([]domain.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.cartItems {
		c.cartItems[k] = append([]cartItem(nil), v...)
	}
	for k, v := range st.cartUsers {
		c.cartUsers[k] = v
	}
	for k, v := range st.addresses {
		c.addresses[k] = v
	}
	for k, v := range st.locations {
		c.locations[k] = v
	}
	c.discrepancies = append([]domain.PaymentDiscrepancy(nil), st.discrepancies...)
	return c
}

// MemoryStore is an in-memory implementation of every repository and of
// repository.Transactor. A transaction holds the store lock for its whole
// duration and works on a private copy that replaces the live state on commit.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState

	// Counters for verification
	CommitCount   int32
	RollbackCount int32
	ResolveCount  int32

	// Error injection
	CreateRequestError     error
	GetByCheckoutError     error
	ResolveError           error
	CreateResponseError    error
	CreateOrderError       error
	ClearCartError         error
	GetCartError           error
	GetShippingFeeError    error
	CreateDiscrepancyError error
	ListPendingError       error

	// BeforeTx runs at the start of every transaction, before the store is locked.
	BeforeTx func()
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

// WithinTx implements repository.Transactor.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if s.BeforeTx != nil {
		s.BeforeTx()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(ctx, &memTx{store: s, st: staged}); err != nil {
		atomic.AddInt32(&s.RollbackCount, 1)
		return err
	}

	s.state = staged
	atomic.AddInt32(&s.CommitCount, 1)
	return nil
}

type memTx struct {
	store *MemoryStore
	st    *memState
}

func (t *memTx) PaymentRequests() repository.PaymentRequestRepository {
	return &MemoryPaymentRequestRepository{store: t.store, st: t.st}
}

func (t *memTx) PaymentResponses() repository.PaymentResponseRepository {
	return &MemoryPaymentResponseRepository{store: t.store, st: t.st}
}

func (t *memTx) Orders() repository.OrderRepository {
	return &MemoryOrderRepository{store: t.store, st: t.st}
}

func (t *memTx) Carts() repository.CartRepository {
	return &MemoryCartRepository{store: t.store, st: t.st}
}

// view runs fn against the transaction's state, or against the live state under the lock.
func (s *MemoryStore) view(st *memState, fn func(st *memState) error) error {
	if st != nil {
		return fn(st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// RequestRepo returns the non-transactional payment request repository.
func (s *MemoryStore) RequestRepo() *MemoryPaymentRequestRepository {
	return &MemoryPaymentRequestRepository{store: s}
}

// ResponseRepo returns the non-transactional payment response repository.
func (s *MemoryStore) ResponseRepo() *MemoryPaymentResponseRepository {
	return &MemoryPaymentResponseRepository{store: s}
}

// OrderRepo returns the non-transactional order repository.
func (s *MemoryStore) OrderRepo() *MemoryOrderRepository {
	return &MemoryOrderRepository{store: s}
}

// CartRepo returns the non-transactional cart repository.
func (s *MemoryStore) CartRepo() *MemoryCartRepository {
	return &MemoryCartRepository{store: s}
}

// AddressRepo returns the address repository.
func (s *MemoryStore) AddressRepo() *MemoryAddressRepository {
	return &MemoryAddressRepository{store: s}
}

// DiscrepancyRepo returns the discrepancy repository.
func (s *MemoryStore) DiscrepancyRepo() *MemoryDiscrepancyRepository {
	return &MemoryDiscrepancyRepository{store: s}
}

// ──────────────────────────────────────────────
// FIXTURE HELPERS
// ──────────────────────────────────────────────

// AddProduct adds or replaces a catalog product.
func (s *MemoryStore) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = p
}

// SetProductPrice changes the live price of a product.
func (s *MemoryStore) SetProductPrice(productID string, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.products[productID]
	p.Price = price
	s.state.products[productID] = p
}

// DeleteProduct removes a product and the cart lines referencing it.
func (s *MemoryStore) DeleteProduct(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.products, productID)
	for session, items := range s.state.cartItems {
		kept := items[:0]
		for _, it := range items {
			if it.ProductID != productID {
				kept = append(kept, it)
			}
		}
		s.state.cartItems[session] = kept
	}
}

// AddLocation adds a delivery location.
func (s *MemoryStore) AddLocation(l domain.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.locations[l.ID] = l
}

// AddAddress adds an address book entry.
func (s *MemoryStore) AddAddress(a domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.addresses[a.ID] = a
}

// AddCartLine puts quantity units of a product in the session's cart.
func (s *MemoryStore) AddCartLine(sessionID, userID, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.cartUsers[sessionID] = userID
	s.state.cartItems[sessionID] = append(s.state.cartItems[sessionID], cartItem{
		ID:        uuid.New().String(),
		ProductID: productID,
		Quantity:  quantity,
	})
}

// AddPaymentRequest stores a payment request as is.
func (s *MemoryStore) AddPaymentRequest(req domain.PaymentRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.requests[req.ID] = req
}

// AddOrder stores an order as is.
func (s *MemoryStore) AddOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.orders[o.ID] = o
}

// AddPaymentResponse stores a callback record as is.
func (s *MemoryStore) AddPaymentResponse(r domain.PaymentResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.responses[r.ID] = r
}

// PaymentRequest returns a copy of a stored request, or nil.
func (s *MemoryStore) PaymentRequest(id string) *domain.PaymentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.state.requests[id]
	if !ok {
		return nil
	}
	return &req
}

// Orders returns copies of all stored orders.
func (s *MemoryStore) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.state.orders))
	for _, o := range s.state.orders {
		out = append(out, o)
	}
	return out
}

// CountResponses returns the number of stored callback records.
func (s *MemoryStore) CountResponses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.responses)
}

// CountRequests returns the number of stored payment requests.
func (s *MemoryStore) CountRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.requests)
}

// CountCartLines returns the number of lines in a session's cart.
func (s *MemoryStore) CountCartLines(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.cartItems[sessionID])
}

// Discrepancies returns copies of all recorded discrepancies.
func (s *MemoryStore) Discrepancies() []domain.PaymentDiscrepancy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PaymentDiscrepancy(nil), s.state.discrepancies...)
}

// ──────────────────────────────────────────────
// PAYMENT REQUESTS
// ──────────────────────────────────────────────

// MemoryPaymentRequestRepository implements repository.PaymentRequestRepository.
type MemoryPaymentRequestRepository struct {
	store *MemoryStore
	st    *memState
}

func (r *MemoryPaymentRequestRepository) Create(ctx context.Context, req *domain.PaymentRequest) error {
	if r.store.CreateRequestError != nil {
		return r.store.CreateRequestError
	}
	return r.store.view(r.st, func(st *memState) error {
		for _, existing := range st.requests {
			if existing.CheckoutRequestID == req.CheckoutRequestID {
				return repository.ErrConflict
			}
			if existing.SessionID == req.SessionID && existing.Status == domain.PaymentStatusPending {
				return repository.ErrConflict
			}
		}
		st.requests[req.ID] = *req
		return nil
	})
}

func (r *MemoryPaymentRequestRepository) GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	var out *domain.PaymentRequest
	err := r.store.view(r.st, func(st *memState) error {
		req, ok := st.requests[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &req
		return nil
	})
	return out, err
}

func (r *MemoryPaymentRequestRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error) {
	if r.store.GetByCheckoutError != nil {
		return nil, r.store.GetByCheckoutError
	}
	var out *domain.PaymentRequest
	err := r.store.view(r.st, func(st *memState) error {
		for _, req := range st.requests {
			if req.CheckoutRequestID == checkoutRequestID {
				req := req
				out = &req
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *MemoryPaymentRequestRepository) GetPendingBySessionID(ctx context.Context, sessionID string) (*domain.PaymentRequest, error) {
	var out *domain.PaymentRequest
	err := r.store.view(r.st, func(st *memState) error {
		for _, req := range st.requests {
			if req.SessionID == sessionID && req.Status == domain.PaymentStatusPending {
				req := req
				out = &req
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *MemoryPaymentRequestRepository) Resolve(ctx context.Context, id string, res repository.Resolution) (bool, error) {
	atomic.AddInt32(&r.store.ResolveCount, 1)
	if r.store.ResolveError != nil {
		return false, r.store.ResolveError
	}
	var resolved bool
	err := r.store.view(r.st, func(st *memState) error {
		req, ok := st.requests[id]
		if !ok || req.Status != domain.PaymentStatusPending {
			return nil
		}
		req.Status = res.Status
		req.ResponseID = res.ResponseID
		req.ResultDesc = res.ResultDesc
		req.ResolvedAt = res.ResolvedAt
		st.requests[id] = req
		resolved = true
		return nil
	})
	return resolved, err
}

func (r *MemoryPaymentRequestRepository) ListPendingCreatedBefore(ctx context.Context, t time.Time, limit int) ([]*domain.PaymentRequest, error) {
	if r.store.ListPendingError != nil {
		return nil, r.store.ListPendingError
	}
	var out []*domain.PaymentRequest
	err := r.store.view(r.st, func(st *memState) error {
		for _, req := range st.requests {
			if req.Status == domain.PaymentStatusPending && req.CreatedAt.Before(t) {
				req := req
				out = append(out, &req)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

// ──────────────────────────────────────────────
// PAYMENT RESPONSES
// ──────────────────────────────────────────────

// MemoryPaymentResponseRepository implements repository.PaymentResponseRepository.
type MemoryPaymentResponseRepository struct {
	store *MemoryStore
	st    *memState
}

func (r *MemoryPaymentResponseRepository) Create(ctx context.Context, resp *domain.PaymentResponse) error {
	if r.store.CreateResponseError != nil {
		return r.store.CreateResponseError
	}
	return r.store.view(r.st, func(st *memState) error {
		if _, ok := st.responses[resp.ID]; ok {
			return repository.ErrConflict
		}
		stored := *resp
		stored.Metadata = append(domain.CallbackMetadata(nil), resp.Metadata...)
		st.responses[resp.ID] = stored
		return nil
	})
}

func (r *MemoryPaymentResponseRepository) GetByID(ctx context.Context, id string) (*domain.PaymentResponse, error) {
	var out *domain.PaymentResponse
	err := r.store.view(r.st, func(st *memState) error {
		resp, ok := st.responses[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &resp
		return nil
	})
	return out, err
}

// ──────────────────────────────────────────────
// ORDERS
// ──────────────────────────────────────────────

// MemoryOrderRepository implements repository.OrderRepository.
type MemoryOrderRepository struct {
	store *MemoryStore
	st    *memState
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if r.store.CreateOrderError != nil {
		return r.store.CreateOrderError
	}
	return r.store.view(r.st, func(st *memState) error {
		for _, existing := range st.orders {
			if existing.PaymentRequestID == order.PaymentRequestID {
				return repository.ErrConflict
			}
		}
		stored := *order
		stored.Items = append([]domain.OrderItem(nil), order.Items...)
		st.orders[order.ID] = stored
		return nil
	})
}

func (r *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var out *domain.Order
	err := r.store.view(r.st, func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		o.Items = append([]domain.OrderItem(nil), o.Items...)
		out = &o
		return nil
	})
	return out, err
}

func (r *MemoryOrderRepository) GetByPaymentRequestID(ctx context.Context, paymentRequestID string) (*domain.Order, error) {
	var out *domain.Order
	err := r.store.view(r.st, func(st *memState) error {
		for _, o := range st.orders {
			if o.PaymentRequestID == paymentRequestID {
				o.Items = append([]domain.OrderItem(nil), o.Items...)
				out = &o
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *MemoryOrderRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	var out []*domain.Order
	err := r.store.view(r.st, func(st *memState) error {
		for _, o := range st.orders {
			if o.UserID == userID {
				o := o
				o.Items = append([]domain.OrderItem(nil), o.Items...)
				out = append(out, &o)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *MemoryOrderRepository) AdvanceDelivery(ctx context.Context, id string, from, to domain.DeliveryStatus, at time.Time) (bool, error) {
	var advanced bool
	err := r.store.view(r.st, func(st *memState) error {
		o, ok := st.orders[id]
		if !ok || o.DeliveryStatus != from {
			return nil
		}
		o.DeliveryStatus = to
		switch to {
		case domain.DeliveryStatusDispatched:
			o.DeliveryStart = at
		case domain.DeliveryStatusDelivered:
			o.DeliveryStop = at
		}
		st.orders[id] = o
		advanced = true
		return nil
	})
	return advanced, err
}

// ──────────────────────────────────────────────
// CARTS AND ADDRESSES
// ──────────────────────────────────────────────

// MemoryCartRepository implements repository.CartRepository.
// Lines are joined to the live catalog on every read.
type MemoryCartRepository struct {
	store *MemoryStore
	st    *memState
}

func (r *MemoryCartRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if r.store.GetCartError != nil {
		return nil, r.store.GetCartError
	}
	var out *domain.Cart
	err := r.store.view(r.st, func(st *memState) error {
		userID, ok := st.cartUsers[sessionID]
		if !ok {
			return repository.ErrNotFound
		}
		cart := &domain.Cart{ID: "cart-" + sessionID, SessionID: sessionID, UserID: userID}
		for _, it := range st.cartItems[sessionID] {
			p, ok := st.products[it.ProductID]
			if !ok {
				continue
			}
			cart.Lines = append(cart.Lines, domain.CartLine{ID: it.ID, Quantity: it.Quantity, Product: p})
		}
		out = cart
		return nil
	})
	return out, err
}

func (r *MemoryCartRepository) RemoveLines(ctx context.Context, sessionID string, lineIDs []string) error {
	if r.store.ClearCartError != nil {
		return r.store.ClearCartError
	}
	remove := make(map[string]bool, len(lineIDs))
	for _, id := range lineIDs {
		remove[id] = true
	}
	return r.store.view(r.st, func(st *memState) error {
		var kept []cartItem
		for _, it := range st.cartItems[sessionID] {
			if !remove[it.ID] {
				kept = append(kept, it)
			}
		}
		st.cartItems[sessionID] = kept
		return nil
	})
}

// MemoryAddressRepository implements repository.AddressRepository.
type MemoryAddressRepository struct {
	store *MemoryStore
}

func (r *MemoryAddressRepository) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	var out *domain.Address
	err := r.store.view(nil, func(st *memState) error {
		a, ok := st.addresses[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *MemoryAddressRepository) GetShippingFee(ctx context.Context, addressID string) (int64, error) {
	if r.store.GetShippingFeeError != nil {
		return 0, r.store.GetShippingFeeError
	}
	var fee int64
	err := r.store.view(nil, func(st *memState) error {
		a, ok := st.addresses[addressID]
		if !ok {
			return repository.ErrNotFound
		}
		l, ok := st.locations[a.LocationID]
		if !ok {
			return repository.ErrNotFound
		}
		fee = l.ShippingFee
		return nil
	})
	return fee, err
}

// ──────────────────────────────────────────────
// DISCREPANCIES
// ──────────────────────────────────────────────

// MemoryDiscrepancyRepository implements repository.DiscrepancyRepository.
type MemoryDiscrepancyRepository struct {
	store *MemoryStore
}

func (r *MemoryDiscrepancyRepository) Create(ctx context.Context, d *domain.PaymentDiscrepancy) error {
	if r.store.CreateDiscrepancyError != nil {
		return r.store.CreateDiscrepancyError
	}
	return r.store.view(nil, func(st *memState) error {
		st.discrepancies = append(st.discrepancies, *d)
		return nil
	})
}

func (r *MemoryDiscrepancyRepository) List(ctx context.Context, limit int) ([]*domain.PaymentDiscrepancy, error) {
	var out []*domain.PaymentDiscrepancy
	err := r.store.view(nil, func(st *memState) error {
		for i := len(st.discrepancies) - 1; i >= 0; i-- {
			d := st.discrepancies[i]
			out = append(out, &d)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// Ensure the in-memory types implement the repository interfaces.
var (
	_ repository.Transactor                = (*MemoryStore)(nil)
	_ repository.PaymentRequestRepository  = (*MemoryPaymentRequestRepository)(nil)
	_ repository.PaymentResponseRepository = (*MemoryPaymentResponseRepository)(nil)
	_ repository.OrderRepository           = (*MemoryOrderRepository)(nil)
	_ repository.CartRepository            = (*MemoryCartRepository)(nil)
	_ repository.AddressRepository         = (*MemoryAddressRepository)(nil)
	_ repository.DiscrepancyRepository     = (*MemoryDiscrepancyRepository)(nil)
)

// ──────────────────────────────────────────────
// MOCK GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock implementation of gateway.Client.
type MockGateway struct {
	mu     sync.Mutex
	pushes []gateway.PushRequest

	// Error injection
	PushError error
}

// NewMockGateway creates a gateway that accepts every push.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Push(ctx context.Context, req gateway.PushRequest) (*domain.GatewayEcho, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushes = append(g.pushes, req)
	if g.PushError != nil {
		return nil, g.PushError
	}
	return &domain.GatewayEcho{
		MerchantRequestID:   "mr-" + uuid.New().String(),
		CheckoutRequestID:   "ws_CO_" + uuid.New().String(),
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}

// Pushes returns the pushes received so far.
func (g *MockGateway) Pushes() []gateway.PushRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.PushRequest(nil), g.pushes...)
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE AND STATUS CACHE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of redis.LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string

	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string)}
}

func (m *MockLockStore) AcquireCheckoutLock(ctx context.Context, sessionID string, ttl time.Duration) (string, bool, error) {
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[sessionID]; held {
		return "", false, nil
	}
	token := uuid.New().String()
	m.locks[sessionID] = token
	return token, true, nil
}

func (m *MockLockStore) ReleaseCheckoutLock(ctx context.Context, sessionID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[sessionID] == token {
		delete(m.locks, sessionID)
	}
	return nil
}

// Hold takes the lock for a session as another process would.
func (m *MockLockStore) Hold(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[sessionID] = "held-elsewhere"
}

// IsHeld reports whether the session's lock is taken.
func (m *MockLockStore) IsHeld(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[sessionID]
	return held
}

// MockStatusCache is a mock implementation of redis.StatusCacheInterface.
type MockStatusCache struct {
	mu       sync.Mutex
	statuses map[string]redis.CachedPaymentStatus

	GetCallCount int32
	SetCallCount int32

	// Error injection
	GetError error
}

// NewMockStatusCache creates a new mock status cache.
func NewMockStatusCache() *MockStatusCache {
	return &MockStatusCache{statuses: make(map[string]redis.CachedPaymentStatus)}
}

func (m *MockStatusCache) GetPaymentStatus(ctx context.Context, paymentRequestID string) (*redis.CachedPaymentStatus, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[paymentRequestID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MockStatusCache) SetPaymentStatus(ctx context.Context, status *redis.CachedPaymentStatus) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[status.ID] = *status
	return nil
}

// Cached returns the cached status of a request, or nil.
func (m *MockStatusCache) Cached(paymentRequestID string) *redis.CachedPaymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[paymentRequestID]
	if !ok {
		return nil
	}
	return &st
}

// ──────────────────────────────────────────────
// RECORDING PUBLISHER
// ──────────────────────────────────────────────

// ErrPublish is a generic publish failure for error injection.
var ErrPublish = errors.New("publish failed")

// RecordingPublisher is an events.Publisher that keeps every event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event

	// Error injection
	PublishError error

	// Block makes Publish wait until its context is done.
	Block bool
}

// NewRecordingPublisher creates a new recording publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(ctx context.Context, event events.Event) error {
	if p.PublishError != nil {
		return p.PublishError
	}
	if p.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Types returns the types of the recorded events in order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	_ gateway.Client             = (*MockGateway)(nil)
	_ redis.LockStoreInterface   = (*MockLockStore)(nil)
	_ redis.StatusCacheInterface = (*MockStatusCache)(nil)
	_ events.Publisher           = (*RecordingPublisher)(nil)
)
