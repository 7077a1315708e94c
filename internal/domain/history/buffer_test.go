package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douoai/jijin/internal/domain/model"
)

func TestCapacity(t *testing.T) {
	assert.Equal(t, 1440, Capacity(2*time.Hour, 5*time.Second))
	assert.Equal(t, 1, Capacity(time.Second, 5*time.Second))
	assert.Equal(t, 1, Capacity(time.Hour, 0))
}

func TestBuffer_BoundKeepsMostRecent(t *testing.T) {
	const n = 10

	for _, k := range []int{0, 1, 7, 25} {
		b := NewBuffer(n, DefaultEpsilon)
		for i := 0; i < n+k; i++ {
			require.True(t, b.Append(model.PriceSample{Price: 500 + float64(i), Timestamp: int64(i * 1000)}))
		}

		got := b.Snapshot()
		require.Len(t, got, n, "k=%d", k)
		for i, s := range got {
			assert.Equal(t, int64((k+i)*1000), s.Timestamp)
		}
	}
}

func TestBuffer_DedupWithinEpsilon(t *testing.T) {
	b := NewBuffer(100, DefaultEpsilon)

	require.True(t, b.Append(model.PriceSample{Price: 456.69, Timestamp: 1}))
	assert.False(t, b.Append(model.PriceSample{Price: 456.695, Timestamp: 2}))
	assert.False(t, b.Append(model.PriceSample{Price: 456.68, Timestamp: 3}))
	assert.Equal(t, 1, b.Len())

	assert.True(t, b.Append(model.PriceSample{Price: 456.71, Timestamp: 4}))
	assert.Equal(t, 2, b.Len())
}

func TestBuffer_RejectsOutOfOrder(t *testing.T) {
	b := NewBuffer(10, DefaultEpsilon)

	require.True(t, b.Append(model.PriceSample{Price: 1, Timestamp: 100}))
	assert.False(t, b.Append(model.PriceSample{Price: 2, Timestamp: 99}))
	assert.True(t, b.Append(model.PriceSample{Price: 3, Timestamp: 100}))

	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, 3.0, last.Price)
}

func TestBuffer_WindowedIsPure(t *testing.T) {
	b := NewBuffer(100, DefaultEpsilon)
	now := time.UnixMilli(1_000_000)
	for i := 0; i < 10; i++ {
		b.Append(model.PriceSample{Price: float64(i), Timestamp: now.UnixMilli() - int64(9-i)*60_000})
	}

	first := b.WindowedAt(now, 3*time.Minute)
	second := b.WindowedAt(now, 3*time.Minute)

	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
	assert.Equal(t, 10, b.Len())

	first[0].Price = -1
	again := b.WindowedAt(now, 3*time.Minute)
	assert.Equal(t, 6.0, again[0].Price)
}

func TestBuffer_WindowedAllAndEmpty(t *testing.T) {
	b := NewBuffer(5, 0)
	assert.Empty(t, b.Windowed(time.Minute))

	b.Append(model.PriceSample{Price: 1, Timestamp: 1})
	b.Append(model.PriceSample{Price: 2, Timestamp: 2})
	assert.Len(t, b.Windowed(0), 2)
	assert.Len(t, b.Period(model.PeriodRealtime), 2)
}

func TestBuffer_Seed(t *testing.T) {
	b := NewBuffer(3, DefaultEpsilon)
	b.Append(model.PriceSample{Price: 99, Timestamp: 99})

	n := b.Seed([]model.PriceSample{
		{Price: 4, Timestamp: 40},
		{Price: 1, Timestamp: 10},
		{Price: 3, Timestamp: 30},
		{Price: 2, Timestamp: 20},
	})

	assert.Equal(t, 3, n)
	assert.Equal(t, []model.PriceSample{
		{Price: 2, Timestamp: 20},
		{Price: 3, Timestamp: 30},
		{Price: 4, Timestamp: 40},
	}, b.Snapshot())
}

func TestBuffer_Reset(t *testing.T) {
	b := NewBuffer(3, 0)
	b.Append(model.PriceSample{Price: 1, Timestamp: 1})
	b.Reset()

	assert.Equal(t, 0, b.Len())
	_, ok := b.Last()
	assert.False(t, ok)
}
