package fanout

import (
	"sync"

	"github.com/douoai/jijin/internal/domain/model"
)

// Hub рассылает каждую принятую точку всем подписчикам.
// Publish не блокируется: медленный подписчик теряет точки.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan model.PriceSample
	nextID uint64
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan model.PriceSample)}
}

// Subscribe returns a channel of samples and a cancel func that closes it.
// After Close the returned channel is already closed.
func (h *Hub) Subscribe(buffer int) (<-chan model.PriceSample, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan model.PriceSample, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish reports how many subscribers received the sample and how many missed it.
func (h *Hub) Publish(s model.PriceSample) (delivered, dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- s:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscriber channel; later Publish calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
