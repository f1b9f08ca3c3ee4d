package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(Config{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewCache(client, nil, WithPrefix("test:"), WithDefaultTTL(time.Minute)), mr
}

type quotePayload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestCacheSetGetRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	in := quotePayload{Symbol: "VTI", Price: 245.8}
	require.NoError(t, cache.Set(ctx, "quote:VTI", in, time.Minute))

	var out quotePayload
	hit, err := cache.Get(ctx, "quote:VTI", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, in, out)
}

func TestCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	var out quotePayload
	hit, err := cache.Get(context.Background(), "absent", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheKeysAreNamespaced(t *testing.T) {
	cache, mr := newTestCache(t)

	require.NoError(t, cache.Set(context.Background(), "quote:VTI", quotePayload{}, time.Minute))
	assert.True(t, mr.Exists("test:quote:VTI"))
}

func TestCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "quote:VTI", quotePayload{Symbol: "VTI"}, time.Minute))
	// TTL jitter stays within ±10% of the requested minute.
	mr.FastForward(2 * time.Minute)

	var out quotePayload
	hit, err := cache.Get(ctx, "quote:VTI", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheDelete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", quotePayload{}, time.Minute))
	require.NoError(t, cache.Delete(ctx, "a"))

	var out quotePayload
	hit, err := cache.Get(ctx, "a", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGetOrSetLoadsOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var loads int64
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt64(&loads, 1)
		time.Sleep(10 * time.Millisecond)
		return quotePayload{Symbol: "VTI", Price: 1}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out quotePayload
			assert.NoError(t, cache.GetOrSet(ctx, "shared", &out, time.Minute, loader))
			assert.Equal(t, "VTI", out.Symbol)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&loads))
}

func TestClientClosedOperationsFail(t *testing.T) {
	cache, _ := newTestCache(t)
	require.NoError(t, cache.client.Close())

	var out quotePayload
	_, err := cache.Get(context.Background(), "x", &out)
	assert.ErrorIs(t, err, ErrClientClosed)
}
