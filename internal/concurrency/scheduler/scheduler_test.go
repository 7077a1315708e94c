package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TickSkipsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s := New("test", time.Hour, func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}, zerolog.Nop())

	done := make(chan bool)
	go func() { done <- s.Tick(context.Background()) }()
	<-entered

	assert.True(t, s.Running())
	assert.False(t, s.Tick(context.Background()))
	assert.False(t, s.Tick(context.Background()))
	assert.Equal(t, int64(2), s.Skipped())

	close(release)
	assert.True(t, <-done)
	assert.False(t, s.Running())
	assert.Equal(t, int64(1), s.Runs())
}

func TestScheduler_ErrorDoesNotStopFurtherRuns(t *testing.T) {
	var calls int32
	s := New("test", time.Hour, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("upstream down")
	}, zerolog.Nop())

	assert.True(t, s.Tick(context.Background()))
	assert.True(t, s.Tick(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Zero(t, s.Skipped())
}

func TestScheduler_StartRunsImmediatelyAndStop(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := New("test", 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, zerolog.Nop())

	s.Start(context.Background())
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("first run did not happen")
	}

	require.Eventually(t, func() bool { return s.Runs() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	n := s.Runs()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, s.Runs())

	s.Stop()
}
