package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idempotency:"

// IdempotencyCache caches replayed responses keyed by caller
// transaction ID. It is the fast path only; the transactions table
// stays the durable idempotency record. Implements
// ports.IdempotencyCache.
type IdempotencyCache struct {
	client *goredis.Client
}

func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// Get returns the cached response, or nil when the key is absent.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, idempotencyPrefix+key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	return val, nil
}

// Set stores a response under the key for the given TTL.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, idempotencyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
