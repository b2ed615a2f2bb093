package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestOrderListCache(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewOrderListCache(rdb, 5*time.Second)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 7, []byte(`{"orders":[]}`)))
	require.NoError(t, c.Set(ctx, 0, []byte(`{"orders":[1]}`)))
	require.NoError(t, c.Set(ctx, 8, []byte(`{"orders":[2]}`)))

	body, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"orders":[]}`, string(body))
	assert.True(t, mr.Exists("orders:seller:7"))
	assert.True(t, mr.Exists("orders:recent"))

	require.NoError(t, c.Invalidate(ctx, 7))
	assert.False(t, mr.Exists("orders:seller:7"))
	assert.False(t, mr.Exists("orders:recent"))
	assert.True(t, mr.Exists("orders:seller:8"))

	require.NoError(t, c.Set(ctx, 8, []byte(`{}`)))
	mr.FastForward(6 * time.Second)
	_, ok, err = c.Get(ctx, 8)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotency(t *testing.T) {
	_, rdb := newRedis(t)
	idem := NewIdempotency(rdb, 0)
	ctx := context.Background()

	replay, err := idem.Begin(ctx, "abc", "fp-1")
	require.NoError(t, err)
	assert.Nil(t, replay)

	_, err = idem.Begin(ctx, "abc", "fp-1")
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, idem.Complete(ctx, "abc", "fp-1", []byte(`{"order_id":1}`)))
	replay, err = idem.Begin(ctx, "abc", "fp-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":1}`, string(replay))

	replay, err = idem.Begin(ctx, "failed", "fp-2")
	require.NoError(t, err)
	assert.Nil(t, replay)
	require.NoError(t, idem.Abort(ctx, "failed"))
	replay, err = idem.Begin(ctx, "failed", "fp-2")
	require.NoError(t, err)
	assert.Nil(t, replay, "aborted key can be claimed again")
}

func TestIdempotency_PendingClaimExpiresQuickly(t *testing.T) {
	mr, rdb := newRedis(t)
	idem := NewIdempotency(rdb, 10*time.Second)
	ctx := context.Background()

	_, err := idem.Begin(ctx, "crashed", "fp")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, mr.TTL("idem:order:place:crashed"))

	// the request never completed or aborted
	mr.FastForward(11 * time.Second)
	replay, err := idem.Begin(ctx, "crashed", "fp")
	require.NoError(t, err)
	assert.Nil(t, replay, "stale claim no longer blocks the key")

	require.NoError(t, idem.Complete(ctx, "crashed", "fp", []byte(`{}`)))
	assert.Equal(t, TTLIdempotency, mr.TTL("idem:order:place:crashed"))
}

func TestIdempotency_KeyReusedForDifferentRequest(t *testing.T) {
	_, rdb := newRedis(t)
	idem := NewIdempotency(rdb, 0)
	ctx := context.Background()

	_, err := idem.Begin(ctx, "k", "fp-a")
	require.NoError(t, err)
	_, err = idem.Begin(ctx, "k", "fp-b")
	assert.ErrorIs(t, err, ErrKeyReused)

	require.NoError(t, idem.Complete(ctx, "k", "fp-a", []byte(`{"order_id":3}`)))
	replay, err := idem.Begin(ctx, "k", "fp-b")
	assert.ErrorIs(t, err, ErrKeyReused)
	assert.Nil(t, replay)
}

func TestDedup(t *testing.T) {
	_, rdb := newRedis(t)
	d := NewDedup(rdb, "sales")
	ctx := context.Background()

	first, err := d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, d.Release(ctx, "evt-1"))
	first, err = d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)
}
