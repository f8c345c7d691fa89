package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCacheFromClient(client, "test"), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "a", sample{ID: "x", Value: 1.5}, time.Minute))
	assert.True(t, mr.Exists("test:a"))

	got, err := GetTyped[sample](ctx, c, "a")
	require.NoError(t, err)
	assert.Equal(t, sample{ID: "x", Value: 1.5}, got)

	var s string
	assert.ErrorIs(t, c.Get(ctx, "missing", &s), ErrCacheMiss)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "a", &s), ErrCacheMiss)
}

func TestRedisCacheLock(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedis(t)

	ok, err := c.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = c.TryLock(ctx, "job", time.Minute)
	assert.False(t, ok)
	require.NoError(t, c.Unlock(ctx, "job"))
	ok, _ = c.TryLock(ctx, "job", time.Minute)
	assert.True(t, ok)
}

func TestMemoryCacheTypedAndEviction(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", sample{ID: "a"}, time.Minute))
	require.NoError(t, mc.Set(ctx, "b", "plain", time.Minute))

	var s string
	require.NoError(t, mc.Get(ctx, "b", &s))
	assert.Equal(t, "plain", s)
	time.Sleep(time.Millisecond)
	var got sample
	require.NoError(t, mc.Get(ctx, "a", &got))

	// "b" is now least recently used.
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))
	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	ok, _ := mc.Exists(ctx, "a", "c")
	assert.True(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Nanosecond))
	time.Sleep(time.Millisecond)
	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestLayeredCachePromotesFromRemote(t *testing.T) {
	ctx := context.Background()
	remote, mr := newTestRedis(t)
	lc := NewLayeredCache(remote, WithLayeredMemory(10, time.Minute))
	defer lc.Close()

	require.NoError(t, remote.Set(ctx, "r", sample{ID: "r", Value: 2}, 0))

	var got sample
	require.NoError(t, lc.Get(ctx, "r", &got))
	assert.Equal(t, "r", got.ID)

	// Served from L1 even after the remote copy disappears.
	mr.Del("test:r")
	got = sample{}
	require.NoError(t, lc.Get(ctx, "r", &got))
	assert.Equal(t, 2.0, got.Value)

	require.NoError(t, lc.Delete(ctx, "r"))
	assert.ErrorIs(t, lc.Get(ctx, "r", &got), ErrCacheMiss)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "analysis:123", GenerateKey("analysis", "123"))
	assert.Equal(t, "tx:owner:log", GenerateKey("tx", "owner", "log"))
}
