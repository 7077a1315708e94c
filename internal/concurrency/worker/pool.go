package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/domain/model"
	"github.com/douoai/jijin/internal/domain/port"
)

// Pool асинхронно пишет принятые строки во все sinks.
// Очередь ограничена: при переполнении запись отбрасывается с предупреждением.
// Ошибки записи только логируются и никогда не доходят до вызывающего.
type Pool struct {
	workers int
	timeout time.Duration
	sinks   []port.PriceSink
	logger  zerolog.Logger

	mu     sync.RWMutex
	queue  chan model.PriceRecord
	closed bool
	wg     sync.WaitGroup

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewPool создаёт новый пул воркеров.
func NewPool(workers, queueSize int, timeout time.Duration, sinks []port.PriceSink, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Pool{
		workers: workers,
		timeout: timeout,
		sinks:   sinks,
		logger:  logger,
		queue:   make(chan model.PriceRecord, queueSize),
	}
}

// Start запускает воркеров. Отмена ctx не прерывает уже взятые записи: их
// ограничивает только таймаут записи.
func (p *Pool) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func(id int) {
			defer p.wg.Done()
			for rec := range p.queue {
				p.processOne(base, id, rec)
			}
		}(i)
	}

	p.logger.Info().Int("workers", p.workers).Int("queue", cap(p.queue)).Int("sinks", len(p.sinks)).Msg("persistence pool started")
}

// Enqueue never blocks. It reports false when the record was dropped.
func (p *Pool) Enqueue(rec model.PriceRecord) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped.Add(1)
		return false
	}

	select {
	case p.queue <- rec:
		return true
	default:
		n := p.dropped.Add(1)
		p.logger.Warn().Int64("timestamp", rec.Timestamp).Int64("dropped_total", n).Msg("persistence queue full, record dropped")
		return false
	}
}

func (p *Pool) processOne(ctx context.Context, id int, rec model.PriceRecord) {
	for _, sink := range p.sinks {
		wctx, cancel := context.WithTimeout(ctx, p.timeout)
		err := sink.SavePrice(wctx, rec)
		cancel()

		if err != nil {
			p.failed.Add(1)
			p.logger.Error().Err(err).Int("worker", id).Str("sink", sink.Name()).Int64("timestamp", rec.Timestamp).Msg("failed to persist price")
			continue
		}
		p.written.Add(1)
		p.logger.Debug().Int("worker", id).Str("sink", sink.Name()).Int64("timestamp", rec.Timestamp).Msg("price persisted")
	}
}

// Stop closes the queue and waits until queued records are written.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Int64("written", p.written.Load()).Int64("failed", p.failed.Load()).Int64("dropped", p.dropped.Load()).Msg("persistence pool stopped")
}

func (p *Pool) Written() int64 { return p.written.Load() }

func (p *Pool) Failed() int64 { return p.failed.Load() }

func (p *Pool) Dropped() int64 { return p.dropped.Load() }
