package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douoai/jijin/internal/domain/model"
)

func newTestAdapter(t *testing.T, ttl time.Duration) (*RedisAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	a, err := NewRedisAdapter(context.Background(), mr.Addr(), "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, mr
}

func TestRedisAdapter_MissReturnsNil(t *testing.T) {
	a, _ := newTestAdapter(t, time.Minute)

	got, err := a.GetLatest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisAdapter_SetAndGet(t *testing.T) {
	a, mr := newTestAdapter(t, time.Minute)
	ctx := context.Background()
	open := 1990.5

	want := model.PriceRecord{PriceUSD: 2000, PriceCNY: 456.69, ExchangeRate: 7.1, OpenPrice: &open, Timestamp: 1700000000000}
	require.NoError(t, a.SetLatest(ctx, want))

	got, err := a.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, &want, got)
	assert.Equal(t, time.Minute, mr.TTL(latestKey))
}

func TestRedisAdapter_TTLExpires(t *testing.T) {
	a, mr := newTestAdapter(t, time.Second)
	ctx := context.Background()

	require.NoError(t, a.SetLatest(ctx, model.PriceRecord{PriceUSD: 1, Timestamp: 1}))
	mr.FastForward(2 * time.Second)

	got, err := a.GetLatest(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisAdapter_SetLatestIfNewer(t *testing.T) {
	a, mr := newTestAdapter(t, time.Minute)
	ctx := context.Background()

	ok, err := a.SetLatestIfNewer(ctx, model.PriceRecord{PriceUSD: 2, Timestamp: 200})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.SetLatestIfNewer(ctx, model.PriceRecord{PriceUSD: 1, Timestamp: 100})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.SetLatestIfNewer(ctx, model.PriceRecord{PriceUSD: 3, Timestamp: 200})
	require.NoError(t, err)
	assert.True(t, ok, "equal timestamp replaces")

	got, err := a.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.PriceUSD)
	assert.Equal(t, time.Minute, mr.TTL(latestKey))

	// мусор в ключе не блокирует запись
	require.NoError(t, mr.Set(latestKey, "{broken"))
	ok, err = a.SetLatestIfNewer(ctx, model.PriceRecord{PriceUSD: 4, Timestamp: 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisAdapter_SetLatestIfNewerConcurrent(t *testing.T) {
	a, _ := newTestAdapter(t, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for ts := int64(1); ts <= 32; ts++ {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			_, err := a.SetLatestIfNewer(ctx, model.PriceRecord{PriceUSD: float64(ts), Timestamp: ts})
			assert.NoError(t, err)
		}(ts)
	}
	wg.Wait()

	got, err := a.GetLatest(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(32), got.Timestamp)
}

func TestRedisAdapter_Invalidate(t *testing.T) {
	a, _ := newTestAdapter(t, 0)
	ctx := context.Background()

	require.NoError(t, a.SetLatest(ctx, model.PriceRecord{PriceUSD: 1, Timestamp: 1}))
	require.NoError(t, a.Invalidate(ctx))

	got, err := a.GetLatest(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisAdapter_ConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisAdapter(context.Background(), addr, "", 0, time.Minute)
	assert.Error(t, err)
}
