// Package history keeps the bounded in-memory price history shown on the chart.
package history

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/douoai/jijin/internal/domain/model"
)

// DefaultEpsilon минимальное изменение цены, при котором точка добавляется.
const DefaultEpsilon = 0.01

// Capacity returns window/interval, at least 1.
func Capacity(window, interval time.Duration) int {
	if interval <= 0 || window <= 0 {
		return 1
	}
	n := int(window / interval)
	if n < 1 {
		return 1
	}
	return n
}

// Buffer ограниченная FIFO-история цен. Таймстемпы не убывают, размер <= capacity.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	epsilon  float64
	samples  []model.PriceSample
	now      func() time.Time
}

func NewBuffer(capacity int, epsilon float64) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	if epsilon < 0 {
		epsilon = 0
	}
	return &Buffer{
		capacity: capacity,
		epsilon:  epsilon,
		samples:  make([]model.PriceSample, 0, capacity),
		now:      time.Now,
	}
}

// Append adds the sample unless it is older than the tail or its price is
// within epsilon of the tail. It reports whether the sample was stored.
func (b *Buffer) Append(s model.PriceSample) bool {
	if math.IsNaN(s.Price) || math.IsInf(s.Price, 0) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.samples); n > 0 {
		last := b.samples[n-1]
		if s.Timestamp < last.Timestamp {
			return false
		}
		if math.Abs(s.Price-last.Price) <= b.epsilon {
			return false
		}
	}

	b.samples = append(b.samples, s)
	if over := len(b.samples) - b.capacity; over > 0 {
		// сдвигаем вместо reslice, чтобы не держать хвост старого массива
		copy(b.samples, b.samples[over:])
		b.samples = b.samples[:b.capacity]
	}
	return true
}

// Windowed returns the samples no older than d relative to now. d <= 0 returns everything.
func (b *Buffer) Windowed(d time.Duration) []model.PriceSample {
	return b.WindowedAt(b.now(), d)
}

// WindowedAt is Windowed with an explicit clock. The buffer is not modified.
func (b *Buffer) WindowedAt(now time.Time, d time.Duration) []model.PriceSample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if d <= 0 {
		return cloneSamples(b.samples)
	}

	from := now.UnixMilli() - d.Milliseconds()
	i := sort.Search(len(b.samples), func(i int) bool {
		return b.samples[i].Timestamp >= from
	})
	return cloneSamples(b.samples[i:])
}

// Period returns the samples for a chart period.
func (b *Buffer) Period(p model.Period) []model.PriceSample {
	return b.Windowed(p.Window())
}

func (b *Buffer) Snapshot() []model.PriceSample {
	return b.WindowedAt(time.Time{}, 0)
}

func (b *Buffer) Last() (model.PriceSample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.samples) == 0 {
		return model.PriceSample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

func (b *Buffer) Capacity() int {
	return b.capacity
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
}

// Seed replaces the contents with samples loaded from storage. Input is sorted
// by timestamp and only the newest capacity entries are kept. Dedup is not applied.
func (b *Buffer) Seed(samples []model.PriceSample) int {
	sorted := make([]model.PriceSample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Price) || math.IsInf(s.Price, 0) {
			continue
		}
		sorted = append(sorted, s)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	if len(sorted) > b.capacity {
		sorted = sorted[len(sorted)-b.capacity:]
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples[:0], sorted...)
	return len(b.samples)
}

func cloneSamples(in []model.PriceSample) []model.PriceSample {
	out := make([]model.PriceSample, len(in))
	copy(out, in)
	return out
}
