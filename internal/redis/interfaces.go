package redis

import (
	"context"
	"time"
)

// StatusCacheInterface defines the interface for caching resolved payment statuses.
type StatusCacheInterface interface {
	GetPaymentStatus(ctx context.Context, paymentRequestID string) (*CachedPaymentStatus, error)
	SetPaymentStatus(ctx context.Context, status *CachedPaymentStatus) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireCheckoutLock(ctx context.Context, sessionID string, ttl time.Duration) (string, bool, error)
	ReleaseCheckoutLock(ctx context.Context, sessionID, token string) error
}

// Ensure concrete types implement interfaces.
var (
	_ StatusCacheInterface = (*CacheStore)(nil)
	_ LockStoreInterface   = (*LockStore)(nil)
)
