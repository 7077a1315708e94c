// Package scheduler runs a task on a fixed period without overlapping runs.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Task одна итерация. Ошибка только логируется.
type Task func(ctx context.Context) error

type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	logger   zerolog.Logger

	running atomic.Bool
	skipped atomic.Int64
	runs    atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(name string, interval time.Duration, task Task, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With().Str("scheduler", name).Logger(),
	}
}

// Tick runs the task unless a previous run is still in flight. It reports
// whether the task ran; a skipped tick is counted.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		n := s.skipped.Add(1)
		s.logger.Warn().Int64("skipped_total", n).Msg("previous run still in flight, tick skipped")
		return false
	}
	defer s.running.Store(false)

	start := time.Now()
	s.runs.Add(1)
	if err := s.task(ctx); err != nil {
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("run failed")
		return true
	}
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("run completed")
	return true
}

// Start runs the task once immediately, then on every interval until Stop or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler starting")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var inflight sync.WaitGroup
	defer inflight.Wait()

	fire := func() {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.Tick(ctx)
		}()
	}

	fire()
	for {
		select {
		case <-ticker.C:
			fire()
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

func (s *Scheduler) Runs() int64 { return s.runs.Load() }

func (s *Scheduler) Running() bool { return s.running.Load() }
