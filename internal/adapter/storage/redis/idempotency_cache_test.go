package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_MissThenHit(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	got, err := cache.Get(ctx, "begin:ord-550")
	require.NoError(t, err)
	assert.Nil(t, got, "unseen key is a miss, not an error")

	body := []byte(`{"transaction_id":"ord-550","state":"HELD"}`)
	require.NoError(t, cache.Set(ctx, "begin:ord-550", body, time.Hour))

	got, err = cache.Get(ctx, "begin:ord-550")
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestIdempotencyCache_EntryExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "settle:ord-551", []byte(`{"state":"SETTLED"}`), time.Second))
	mr.FastForward(5 * time.Second)

	got, err := cache.Get(ctx, "settle:ord-551")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdempotencyCache_LastWriteWins(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "begin:ord-552", []byte(`{"state":"HELD"}`), time.Hour))
	require.NoError(t, cache.Set(ctx, "begin:ord-552", []byte(`{"state":"SETTLED"}`), time.Hour))

	got, err := cache.Get(ctx, "begin:ord-552")
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"SETTLED"}`, string(got))
}
