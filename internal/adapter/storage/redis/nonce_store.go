package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const noncePrefix = "nonce:"

// NonceStore tracks signature nonces for replay detection. A nonce is
// scoped to the caller that presented it. Implements ports.NonceStore.
type NonceStore struct {
	client *goredis.Client
}

func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{client: client}
}

// CheckAndSet records the nonce if it has not been seen inside the TTL
// window. It returns true for a fresh nonce and false for a replay.
func (s *NonceStore) CheckAndSet(ctx context.Context, callerID string, nonce string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("%s%s:%s", noncePrefix, callerID, nonce)
	fresh, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return fresh, nil
}
