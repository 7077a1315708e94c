package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douoai/jijin/internal/concurrency/fanout"
	"github.com/douoai/jijin/internal/domain/history"
	"github.com/douoai/jijin/internal/domain/model"
	"github.com/douoai/jijin/internal/domain/port"
)

type trackerFixture struct {
	tracker   *Tracker
	rate      *fakeRate
	quote     *fakeQuote
	sim       *fakeQuote
	persister *fakePersister
	hub       *fanout.Hub
	clock     time.Time
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()
	fx := &trackerFixture{
		rate:      &fakeRate{name: "primary", rate: 7.10},
		quote:     &fakeQuote{name: "spot", quote: model.RawQuote{SpotPriceForeign: 2000, ChangeAmount: 10, ChangePercent: 0.5, ClosePrice: 1990}},
		sim:       &fakeQuote{name: "sim", quote: model.RawQuote{SpotPriceForeign: 1000, ClosePrice: 1000}},
		persister: &fakePersister{},
		hub:       fanout.NewHub(),
		clock:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	fetcher := NewFetcher(fx.quote, []port.RateSource{fx.rate}, 6.92, zerolog.Nop())
	fx.tracker = NewTracker(TrackerDeps{
		Fetcher:     fetcher,
		Simulator:   fx.sim,
		Modes:       NewModeService(model.LiveMode, zerolog.Nop()),
		Line:        history.NewBuffer(1440, history.DefaultEpsilon),
		Candles:     history.NewCandleBuffer(100, time.Minute),
		Persister:   fx.persister,
		Broadcaster: fx.hub,
		Location:    time.UTC,
		Logger:      zerolog.Nop(),
	})
	fx.tracker.now = func() time.Time { return fx.clock }
	return fx
}

func (fx *trackerFixture) advance(d time.Duration) { fx.clock = fx.clock.Add(d) }

func TestTracker_CycleEndToEnd(t *testing.T) {
	fx := newTrackerFixture(t)
	stream, cancel := fx.hub.Subscribe(4)
	defer cancel()

	require.NoError(t, fx.tracker.Cycle(context.Background()))

	tk := fx.tracker.Ticker()
	require.NotNil(t, tk)
	assert.Equal(t, "456.54", tk.PriceText)
	assert.Equal(t, 2000.0, tk.OpenUSD)
	assert.Equal(t, 7.10, tk.ExchangeRate)
	assert.Equal(t, model.LiveMode, tk.Mode)
	assert.False(t, tk.FromCachedQuote)

	line := fx.tracker.Line(model.PeriodRealtime)
	require.Len(t, line, 1)
	assert.InDelta(t, 456.54, line[0].Price, 0.005)
	assert.Equal(t, fx.clock.UnixMilli(), line[0].Timestamp)

	recs := fx.persister.records()
	require.Len(t, recs, 1)
	assert.Equal(t, 2000.0, recs[0].PriceUSD)
	require.NotNil(t, recs[0].OpenPrice)
	assert.Equal(t, 2000.0, *recs[0].OpenPrice)
	require.NotNil(t, recs[0].ClosePrice)
	assert.Equal(t, 1990.0, *recs[0].ClosePrice)

	got := <-stream
	assert.Equal(t, line[0], got)
	assert.Len(t, fx.tracker.Candles(0), 1)
}

func TestTracker_UnchangedPriceNotPersisted(t *testing.T) {
	fx := newTrackerFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.tracker.Cycle(ctx))
	fx.advance(5 * time.Second)
	require.NoError(t, fx.tracker.Cycle(ctx))

	assert.Equal(t, 1, fx.tracker.Samples())
	assert.Len(t, fx.persister.records(), 1)

	candles := fx.tracker.Candles(0)
	require.Len(t, candles, 1)
	assert.Equal(t, 2, candles[0].Ticks)
}

func TestTracker_ErrorLeavesStateUntouched(t *testing.T) {
	fx := newTrackerFixture(t)
	fx.quote.err = model.ErrNetwork

	err := fx.tracker.Cycle(context.Background())
	assert.ErrorIs(t, err, model.ErrNetwork)
	assert.Nil(t, fx.tracker.Ticker())
	assert.Zero(t, fx.tracker.Samples())
	assert.Empty(t, fx.persister.records())
}

func TestTracker_UsesCachedQuoteAfterFailure(t *testing.T) {
	fx := newTrackerFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.tracker.Cycle(ctx))

	fx.quote.err = model.ErrInvalidResponse
	fx.rate.rate = 7.20
	fx.advance(5 * time.Second)
	require.NoError(t, fx.tracker.Cycle(ctx))

	tk := fx.tracker.Ticker()
	assert.True(t, tk.FromCachedQuote)
	assert.Equal(t, 2, fx.tracker.Samples())
}

func TestTracker_DayOpenTracksFirstQuoteOfDay(t *testing.T) {
	fx := newTrackerFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.tracker.Cycle(ctx))
	fx.quote.quote.SpotPriceForeign = 2010
	fx.advance(time.Hour)
	require.NoError(t, fx.tracker.Cycle(ctx))
	assert.Equal(t, 2000.0, fx.tracker.Ticker().OpenUSD)

	fx.quote.quote.SpotPriceForeign = 2020
	fx.advance(24 * time.Hour)
	require.NoError(t, fx.tracker.Cycle(ctx))
	assert.Equal(t, 2020.0, fx.tracker.Ticker().OpenUSD)
}

func TestTracker_SwitchModeResetsAndUsesSimulator(t *testing.T) {
	fx := newTrackerFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.tracker.Cycle(ctx))

	assert.True(t, fx.tracker.SwitchMode(model.TestMode))
	assert.False(t, fx.tracker.SwitchMode(model.TestMode))
	assert.Zero(t, fx.tracker.Samples())
	assert.Nil(t, fx.tracker.Ticker())

	fx.advance(5 * time.Second)
	require.NoError(t, fx.tracker.Cycle(ctx))

	tk := fx.tracker.Ticker()
	assert.Equal(t, model.TestMode, tk.Mode)
	assert.Equal(t, 1000.0, tk.SpotUSD)
	// курс из кеша, сеть в тестовом режиме не трогаем
	assert.Equal(t, 1, fx.rate.calls)
	// симулированные данные не пишутся в хранилище
	assert.Len(t, fx.persister.records(), 1)
}

func TestTracker_SeedFromStore(t *testing.T) {
	fx := newTrackerFixture(t)
	src := &fakeHistory{rows: []model.PriceRecord{
		{PriceCNY: 450, Timestamp: fx.clock.Add(-10 * time.Minute).UnixMilli()},
		{PriceCNY: 451, Timestamp: fx.clock.Add(-5 * time.Minute).UnixMilli()},
	}}

	n, err := fx.tracker.SeedFromStore(context.Background(), src, 2, 1440)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, fx.tracker.Samples())
	assert.Len(t, fx.tracker.Candles(0), 2)

	_, err = fx.tracker.SeedFromStore(context.Background(), &fakeHistory{err: errUpstream}, 2, 1440)
	assert.ErrorIs(t, err, errUpstream)
}

func TestTracker_CandleWidthChangeResets(t *testing.T) {
	fx := newTrackerFixture(t)
	require.NoError(t, fx.tracker.Cycle(context.Background()))

	assert.Len(t, fx.tracker.Candles(time.Minute), 1)
	assert.Empty(t, fx.tracker.Candles(5*time.Minute))
	assert.Equal(t, 5*time.Minute, fx.tracker.CandleWidth())
}

type fakeBackfill struct {
	rate float64
	now  time.Time
}

func (f *fakeBackfill) Backfill(now time.Time, rate float64) []model.PriceSample {
	f.now, f.rate = now, rate
	out := make([]model.PriceSample, 0, 3)
	for i := 2; i >= 0; i-- {
		out = append(out, model.PriceSample{Price: 400 + float64(i), Timestamp: now.Add(-time.Duration(i) * time.Minute).UnixMilli()})
	}
	return out
}

func TestTracker_SwitchToTestModeBackfills(t *testing.T) {
	fx := newTrackerFixture(t)
	bf := &fakeBackfill{}
	fx.tracker.backfill = bf
	require.NoError(t, fx.tracker.Cycle(context.Background()))

	require.True(t, fx.tracker.SwitchMode(model.TestMode))
	assert.Equal(t, 7.10, bf.rate)
	assert.Equal(t, fx.clock, bf.now)
	assert.Equal(t, 3, fx.tracker.Samples())
	assert.Len(t, fx.tracker.Candles(0), 3)
	assert.Nil(t, fx.tracker.Ticker())

	// обратно в live история симуляции не переносится
	require.True(t, fx.tracker.SwitchMode(model.LiveMode))
	assert.Zero(t, fx.tracker.Samples())
	assert.Zero(t, len(fx.tracker.Candles(0)))
}

func TestTracker_SeedSimulatedWithoutBackfill(t *testing.T) {
	fx := newTrackerFixture(t)
	assert.Zero(t, fx.tracker.SeedSimulated())

	fx.tracker.backfill = &fakeBackfill{}
	assert.Equal(t, 3, fx.tracker.SeedSimulated())
}
