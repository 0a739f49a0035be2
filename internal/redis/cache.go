package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStatusCacheTTL bounds how long a resolved status stays cached.
const DefaultStatusCacheTTL = 10 * time.Minute

const paymentStatusPrefix = "cache:payment_status:"

// CacheStore caches resolved payment statuses in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultStatusCacheTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

// CachedPaymentStatus is the poller view of a resolved payment request.
type CachedPaymentStatus struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Status     string `json:"status"`
	ResponseID string `json:"response_id,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	ResultDesc string `json:"result_desc,omitempty"`
}

// GetPaymentStatus retrieves a cached status. Returns nil on a cache miss.
func (s *CacheStore) GetPaymentStatus(ctx context.Context, paymentRequestID string) (*CachedPaymentStatus, error) {
	data, err := s.client.Get(ctx, paymentStatusPrefix+paymentRequestID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var status CachedPaymentStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetPaymentStatus stores a resolved status.
func (s *CacheStore) SetPaymentStatus(ctx context.Context, status *CachedPaymentStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, paymentStatusPrefix+status.ID, data, s.ttl).Err()
}
