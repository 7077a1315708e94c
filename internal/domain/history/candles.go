package history

import (
	"sync"
	"time"

	"github.com/douoai/jijin/internal/domain/model"
)

// CandleBuffer агрегирует тики в OHLC-свечи фиксированной ширины.
// Открытая свеча меняется на месте, закрытые неизменны и вытесняются по FIFO.
type CandleBuffer struct {
	mu       sync.RWMutex
	capacity int
	widthMs  int64
	open     *model.Candle
	sealed   []model.Candle
}

func NewCandleBuffer(capacity int, width time.Duration) *CandleBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CandleBuffer{
		capacity: capacity,
		widthMs:  width.Milliseconds(),
		sealed:   make([]model.Candle, 0, capacity),
	}
}

// BucketKey floors the timestamp to the start of its bucket.
func BucketKey(timestampMs, bucketWidthMs int64) int64 {
	if bucketWidthMs <= 0 {
		return timestampMs
	}
	key := timestampMs / bucketWidthMs * bucketWidthMs
	if timestampMs < 0 && timestampMs%bucketWidthMs != 0 {
		key -= bucketWidthMs
	}
	return key
}

// AddTick folds a tick into the open candle. A tick in a new bucket seals the
// open candle and returns it with true. A bucket width different from the
// current one drops all candles first.
func (c *CandleBuffer) AddTick(price float64, timestampMs, bucketWidthMs int64) (model.Candle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if bucketWidthMs != c.widthMs {
		c.resetLocked(bucketWidthMs)
	}
	return c.addLocked(price, timestampMs)
}

// Add uses the current bucket width. Width is read under the same lock, so a
// concurrent SetWidth is never undone.
func (c *CandleBuffer) Add(price float64, timestampMs int64) (model.Candle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(price, timestampMs)
}

func (c *CandleBuffer) addLocked(price float64, timestampMs int64) (model.Candle, bool) {
	key := BucketKey(timestampMs, c.widthMs)

	if c.open != nil && c.open.BucketKey == key {
		c.open.Close = price
		if price > c.open.High {
			c.open.High = price
		}
		if price < c.open.Low {
			c.open.Low = price
		}
		c.open.Ticks++
		if timestampMs > c.open.Timestamp {
			c.open.Timestamp = timestampMs
		}
		return model.Candle{}, false
	}

	if c.open != nil && key < c.open.BucketKey {
		// тик из прошлого ведра, историю не переписываем
		return model.Candle{}, false
	}

	var (
		sealed  model.Candle
		didSeal bool
	)
	if c.open != nil {
		sealed = *c.open
		didSeal = true
		c.sealed = append(c.sealed, sealed)
		if over := len(c.sealed) - c.capacity; over > 0 {
			copy(c.sealed, c.sealed[over:])
			c.sealed = c.sealed[:c.capacity]
		}
	}

	c.open = &model.Candle{
		BucketKey: key,
		Open:      price,
		Close:     price,
		High:      price,
		Low:       price,
		Ticks:     1,
		Timestamp: timestampMs,
	}
	return sealed, didSeal
}

// SetWidth switches the bucket width. Past ticks are not re-aggregated.
func (c *CandleBuffer) SetWidth(width time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := width.Milliseconds()
	if ms == c.widthMs {
		return false
	}
	c.resetLocked(ms)
	return true
}

func (c *CandleBuffer) Width() time.Duration {
	return time.Duration(c.WidthMs()) * time.Millisecond
}

func (c *CandleBuffer) WidthMs() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.widthMs
}

// Sealed returns closed candles only.
func (c *CandleBuffer) Sealed() []model.Candle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Candle, len(c.sealed))
	copy(out, c.sealed)
	return out
}

// Candles returns closed candles followed by the open one, if any.
func (c *CandleBuffer) Candles() []model.Candle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Candle, len(c.sealed), len(c.sealed)+1)
	copy(out, c.sealed)
	if c.open != nil {
		out = append(out, *c.open)
	}
	return out
}

func (c *CandleBuffer) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := len(c.sealed)
	if c.open != nil {
		n++
	}
	return n
}

func (c *CandleBuffer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(c.widthMs)
}

func (c *CandleBuffer) resetLocked(widthMs int64) {
	c.widthMs = widthMs
	c.open = nil
	c.sealed = c.sealed[:0]
}
