package redis

import (
	"context"
	"fmt"
	"time"

	"trust-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// RateLimitStore keeps fixed-window request counters in Redis. Each
// window is a separate key, so the commands stay at plain INCR plus
// EXPIRE. Implements ports.RateLimitStore.
type RateLimitStore struct {
	client *goredis.Client
}

func NewRateLimitStore(client *goredis.Client) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// Allow counts this request against the current window and reports
// whether the caller is still under the limit.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	windowSecs := int64(window.Seconds())
	windowID := time.Now().Unix() / windowSecs
	counterKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowID)

	count, err := s.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit incr: %w", err)
	}
	if count == 1 {
		// Expire a second past the window so the reset header never
		// outlives the key.
		s.client.Expire(ctx, counterKey, window+time.Second)
	}

	return &ports.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   (windowID + 1) * windowSecs,
	}, nil
}
