package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/domain/history"
	"github.com/douoai/jijin/internal/domain/model"
	"github.com/douoai/jijin/internal/domain/port"
	"github.com/douoai/jijin/internal/domain/pricing"
)

// TrackerDeps зависимости трекера. Persister, Broadcaster и Backfill могут быть nil.
type TrackerDeps struct {
	Fetcher     *Fetcher
	Simulator   port.QuoteSource
	Backfill    port.HistorySimulator
	Modes       *ModeService
	Line        *history.Buffer
	Candles     *history.CandleBuffer
	Persister   port.Persister
	Broadcaster port.Broadcaster
	Location    *time.Location
	Logger      zerolog.Logger
}

// Tracker выполняет цикл: курс -> котировка -> пересчёт -> буферы -> запись -> рассылка.
type Tracker struct {
	fetcher     *Fetcher
	simulator   port.QuoteSource
	backfill    port.HistorySimulator
	modes       *ModeService
	line        *history.Buffer
	candles     *history.CandleBuffer
	persister   port.Persister
	broadcaster port.Broadcaster
	loc         *time.Location
	logger      zerolog.Logger
	now         func() time.Time

	mu         sync.RWMutex
	generation uint64
	ticker     *model.Ticker
	openDay    string
	openUSD    float64
}

func NewTracker(d TrackerDeps) *Tracker {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		fetcher:     d.Fetcher,
		simulator:   d.Simulator,
		backfill:    d.Backfill,
		modes:       d.Modes,
		line:        d.Line,
		candles:     d.Candles,
		persister:   d.Persister,
		broadcaster: d.Broadcaster,
		loc:         loc,
		logger:      d.Logger,
		now:         time.Now,
	}
}

// Cycle runs one update. On error nothing is changed: buffers, snapshot and
// the day-open price stay as they were.
func (t *Tracker) Cycle(ctx context.Context) error {
	t.mu.RLock()
	gen := t.generation
	t.mu.RUnlock()

	mode := t.modes.GetCurrentMode()

	var (
		rate   float64
		quote  model.RawQuote
		cached bool
		err    error
	)
	switch mode {
	case model.TestMode:
		rate = t.fetcher.LastRate()
		quote, err = t.simulator.FetchQuote(ctx)
	default:
		rate = t.fetcher.FetchExchangeRate(ctx)
		quote, cached, err = t.fetcher.FetchSpot(ctx)
	}
	if err != nil {
		return fmt.Errorf("%s cycle: %w", mode, err)
	}

	now := t.now()
	price := pricing.Derive(quote.SpotPriceForeign, rate)
	sample := model.PriceSample{Price: price, Timestamp: now.UnixMilli()}

	t.mu.Lock()
	if t.generation != gen {
		// режим сменился, пока шёл запрос
		t.mu.Unlock()
		t.logger.Debug().Stringer("mode", mode).Msg("discarding cycle result after mode switch")
		return nil
	}

	day := now.In(t.loc).Format(time.DateOnly)
	if day != t.openDay {
		t.openDay = day
		t.openUSD = quote.SpotPriceForeign
	}
	openUSD := t.openUSD

	appended := t.line.Append(sample)
	t.candles.Add(price, sample.Timestamp)
	t.ticker = buildTicker(quote, rate, price, openUSD, mode, now, cached)
	t.mu.Unlock()

	if !appended {
		t.logger.Debug().Float64("price", price).Msg("price unchanged, sample skipped")
		return nil
	}

	if t.persister != nil && mode == model.LiveMode {
		t.persister.Enqueue(toRecord(quote, rate, price, openUSD, sample.Timestamp))
	}
	if t.broadcaster != nil {
		t.broadcaster.Publish(sample)
	}

	t.logger.Debug().
		Float64("price", price).
		Float64("spot", quote.SpotPriceForeign).
		Float64("rate", rate).
		Bool("cached_quote", cached).
		Msg("sample accepted")
	return nil
}

func buildTicker(q model.RawQuote, rate, price, openUSD float64, mode model.DataMode, now time.Time, cached bool) *model.Ticker {
	return &model.Ticker{
		Price:           price,
		PriceText:       pricing.FormatPrice(price),
		SpotUSD:         q.SpotPriceForeign,
		ExchangeRate:    rate,
		ChangeAmount:    q.ChangeAmount,
		ChangePercent:   q.ChangePercent,
		CloseUSD:        q.ClosePrice,
		OpenUSD:         openUSD,
		DomesticClose:   pricing.Round2(pricing.Derive(q.ClosePrice, rate)),
		DomesticOpen:    pricing.Round2(pricing.Derive(openUSD, rate)),
		DomesticChange:  pricing.Round2(pricing.Derive(q.ChangeAmount, rate)),
		Mode:            mode,
		UpdatedAt:       now,
		FromCachedQuote: cached,
	}
}

func toRecord(q model.RawQuote, rate, price, openUSD float64, ts int64) model.PriceRecord {
	changePercent := q.ChangePercent
	changeAmount := q.ChangeAmount
	closePrice := q.ClosePrice
	rec := model.PriceRecord{
		PriceUSD:      q.SpotPriceForeign,
		PriceCNY:      price,
		ExchangeRate:  rate,
		ChangePercent: &changePercent,
		ChangeAmount:  &changeAmount,
		ClosePrice:    &closePrice,
		Timestamp:     ts,
	}
	if openUSD > 0 {
		rec.OpenPrice = &openUSD
	}
	return rec
}

// SeedFromStore loads persisted history into the buffers before the first
// cycle. It returns the number of samples kept.
func (t *Tracker) SeedFromStore(ctx context.Context, src port.HistorySource, hours, limit int) (int, error) {
	rows, err := src.LoadHistory(ctx, hours, limit)
	if err != nil {
		return 0, fmt.Errorf("seed history: %w", err)
	}

	samples := make([]model.PriceSample, 0, len(rows))
	for _, r := range rows {
		samples = append(samples, model.PriceSample{Price: r.PriceCNY, Timestamp: r.Timestamp})
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.line.Seed(samples)
	for _, s := range t.line.Snapshot() {
		t.candles.Add(s.Price, s.Timestamp)
	}
	return n, nil
}

// SwitchMode changes the quote source and clears the history. It reports
// whether the mode changed.
func (t *Tracker) SwitchMode(mode model.DataMode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.modes.SwitchMode(mode) {
		return false
	}
	t.generation++
	t.line.Reset()
	t.candles.Reset()
	t.ticker = nil
	t.openDay = ""
	t.openUSD = 0
	if mode == model.TestMode {
		t.backfillLocked()
	}
	return true
}

// SeedSimulated fills the empty buffers with synthetic history. Used when the
// tracker starts in test mode.
func (t *Tracker) SeedSimulated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backfillLocked()
}

func (t *Tracker) backfillLocked() int {
	if t.backfill == nil {
		return 0
	}
	samples := t.backfill.Backfill(t.now(), t.fetcher.LastRate())
	n := t.line.Seed(samples)
	for _, s := range t.line.Snapshot() {
		t.candles.Add(s.Price, s.Timestamp)
	}
	t.logger.Info().Int("samples", n).Msg("simulated history generated")
	return n
}

func (t *Tracker) Mode() model.DataMode {
	return t.modes.GetCurrentMode()
}

// Ticker returns nil before the first successful cycle.
func (t *Tracker) Ticker() *model.Ticker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.ticker == nil {
		return nil
	}
	snap := *t.ticker
	return &snap
}

func (t *Tracker) Line(p model.Period) []model.PriceSample {
	return t.line.Period(p)
}

// Candles returns candles at the given width; a width different from the
// current one resets the candle history first.
func (t *Tracker) Candles(width time.Duration) []model.Candle {
	if width > 0 && t.candles.SetWidth(width) {
		t.logger.Info().Dur("bucket", width).Msg("candle width changed, candle history reset")
	}
	return t.candles.Candles()
}

func (t *Tracker) CandleWidth() time.Duration {
	return t.candles.Width()
}

func (t *Tracker) Samples() int {
	return t.line.Len()
}
