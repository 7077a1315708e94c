package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/domain/port"
)

// RetentionService периодически удаляет строки старше maxAge.
type RetentionService struct {
	storage  port.PriceStore
	cache    port.LatestCache
	logger   zerolog.Logger
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// NewRetentionService cache may be nil. maxAge <= 0 disables the sweep.
func NewRetentionService(storage port.PriceStore, cache port.LatestCache, maxAge, interval time.Duration, logger zerolog.Logger) *RetentionService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionService{
		storage:  storage,
		cache:    cache,
		logger:   logger,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
	}
}

func (s *RetentionService) Enabled() bool {
	return s.maxAge > 0
}

// Sweep deletes rows with timestamp < now - maxAge and returns how many went.
func (s *RetentionService) Sweep(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}

	before := s.now().Add(-s.maxAge).UnixMilli()
	n, err := s.storage.DeletePricesBefore(ctx, before)
	if err != nil {
		return 0, err
	}

	if n > 0 && s.cache != nil {
		// закешированная строка могла попасть под удаление
		latest, err := s.cache.GetLatest(ctx)
		if err != nil || (latest != nil && latest.Timestamp < before) {
			if err := s.cache.Invalidate(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("failed to invalidate latest price cache")
			}
		}
	}
	return n, nil
}

// Start запускает цикл очистки. Первая очистка выполняется сразу.
func (s *RetentionService) Start(ctx context.Context) {
	if !s.Enabled() {
		s.logger.Info().Msg("retention disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})

	s.logger.Info().Dur("max_age", s.maxAge).Dur("interval", s.interval).Msg("retention service starting")

	s.wg.Add(1)
	go s.loop(ctx, s.done)
}

func (s *RetentionService) loop(ctx context.Context, done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)

		select {
		case <-ticker.C:
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *RetentionService) runOnce(ctx context.Context) {
	start := time.Now()
	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("retention sweep failed")
		return
	}
	s.logger.Info().Int64("deleted", n).Dur("duration", time.Since(start)).Msg("retention sweep completed")
}

// Stop корректно останавливает сервис.
func (s *RetentionService) Stop() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()
	s.logger.Info().Msg("retention service stopped")
}
