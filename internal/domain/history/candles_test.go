package history

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketKey(t *testing.T) {
	assert.Equal(t, int64(0), BucketKey(59_999, 60_000))
	assert.Equal(t, int64(60_000), BucketKey(60_000, 60_000))
	assert.Equal(t, int64(-60_000), BucketKey(-1, 60_000))
}

func TestCandleBuffer_Aggregation(t *testing.T) {
	c := NewCandleBuffer(10, time.Minute)

	_, sealed := c.AddTick(100, 0, 60_000)
	assert.False(t, sealed)
	_, sealed = c.AddTick(95, 30_000, 60_000)
	assert.False(t, sealed)

	first, sealed := c.AddTick(110, 61_000, 60_000)
	require.True(t, sealed)
	assert.Equal(t, int64(0), first.BucketKey)
	assert.Equal(t, 100.0, first.Open)
	assert.Equal(t, 95.0, first.Close)
	assert.Equal(t, 100.0, first.High)
	assert.Equal(t, 95.0, first.Low)
	assert.Equal(t, 2, first.Ticks)

	candles := c.Candles()
	require.Len(t, candles, 2)
	assert.Equal(t, first, candles[0])

	second := candles[1]
	assert.Equal(t, int64(60_000), second.BucketKey)
	assert.Equal(t, 110.0, second.Open)
	assert.Equal(t, 110.0, second.Close)
	assert.Equal(t, 110.0, second.High)
	assert.Equal(t, 110.0, second.Low)
	assert.Equal(t, int64(61_000), second.Timestamp)

	assert.Len(t, c.Sealed(), 1)
}

func TestCandleBuffer_HighLowTracking(t *testing.T) {
	c := NewCandleBuffer(10, time.Minute)
	for i, p := range []float64{10, 12, 8, 11} {
		c.Add(p, int64(i*1000))
	}

	candles := c.Candles()
	require.Len(t, candles, 1)
	assert.Equal(t, 10.0, candles[0].Open)
	assert.Equal(t, 11.0, candles[0].Close)
	assert.Equal(t, 12.0, candles[0].High)
	assert.Equal(t, 8.0, candles[0].Low)
}

func TestCandleBuffer_CapacityEviction(t *testing.T) {
	c := NewCandleBuffer(2, time.Minute)
	for i := 0; i < 5; i++ {
		c.Add(float64(i), int64(i)*60_000)
	}

	sealed := c.Sealed()
	require.Len(t, sealed, 2)
	assert.Equal(t, int64(2*60_000), sealed[0].BucketKey)
	assert.Equal(t, int64(3*60_000), sealed[1].BucketKey)
	assert.Equal(t, 3, c.Len())
}

func TestCandleBuffer_WidthSwitchResets(t *testing.T) {
	c := NewCandleBuffer(10, time.Minute)
	c.Add(1, 0)
	c.Add(2, 60_000)
	require.Equal(t, 2, c.Len())

	c.AddTick(3, 120_000, 300_000)
	assert.Equal(t, 5*time.Minute, c.Width())
	candles := c.Candles()
	require.Len(t, candles, 1)
	assert.Equal(t, int64(0), candles[0].BucketKey)

	assert.True(t, c.SetWidth(time.Hour))
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.SetWidth(time.Hour))
}

func TestCandleBuffer_IgnoresPastBucket(t *testing.T) {
	c := NewCandleBuffer(10, time.Minute)
	c.Add(1, 120_000)

	_, sealed := c.Add(5, 10_000)
	assert.False(t, sealed)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, 1.0, c.Candles()[0].Close)
}

func TestCandleBuffer_SetWidthSurvivesConcurrentAdd(t *testing.T) {
	for run := 0; run < 500; run++ {
		c := NewCandleBuffer(10, time.Minute)
		start := make(chan struct{})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := int64(0); i < 20; i++ {
				c.Add(100, i*1000)
			}
		}()

		close(start)
		c.SetWidth(2 * time.Minute)
		wg.Wait()

		require.Equal(t, 2*time.Minute, c.Width(), "run %d", run)
	}
}

func TestCandleBuffer_AddKeepsOpenCandleAcrossSameWidthRequests(t *testing.T) {
	c := NewCandleBuffer(10, time.Minute)
	c.Add(100, 0)
	c.Add(101, 1000)

	assert.False(t, c.SetWidth(time.Minute))
	c.Add(102, 2000)

	candles := c.Candles()
	require.Len(t, candles, 1)
	assert.Equal(t, 3, candles[0].Ticks)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 102.0, candles[0].Close)
}
