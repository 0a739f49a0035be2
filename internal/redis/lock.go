package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireCheckoutLock attempts to acquire the checkout lock of a session.
// Returns the token needed to release it, and false if the lock is already held.
func (s *LockStore) AcquireCheckoutLock(ctx context.Context, sessionID string, ttl time.Duration) (string, bool, error) {
	key := fmt.Sprintf("lock:checkout:%s", sessionID)
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}

	return token, ok, nil
}

// ReleaseCheckoutLock releases the checkout lock of a session if token still owns it.
func (s *LockStore) ReleaseCheckoutLock(ctx context.Context, sessionID, token string) error {
	key := fmt.Sprintf("lock:checkout:%s", sessionID)

	return releaseScript.Run(ctx, s.client, []string{key}, token).Err()
}
