package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/domain/model"
	"github.com/douoai/jijin/internal/domain/port"
)

// Fetcher получает курс и спотовую котировку, держит последние удачные значения.
type Fetcher struct {
	quotes port.QuoteSource
	rates  []port.RateSource
	logger zerolog.Logger

	mu        sync.RWMutex
	lastRate  float64
	lastQuote *model.RawQuote
}

// NewFetcher tries rate sources in order: primary first, then backups.
func NewFetcher(quotes port.QuoteSource, rates []port.RateSource, defaultRate float64, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		quotes:   quotes,
		rates:    rates,
		logger:   logger,
		lastRate: defaultRate,
	}
}

// FetchExchangeRate never fails: when every source fails it returns the last
// known rate, which starts at the configured default.
func (f *Fetcher) FetchExchangeRate(ctx context.Context) float64 {
	for _, src := range f.rates {
		rate, err := src.FetchRate(ctx)
		if err != nil {
			f.logger.Warn().Err(err).Str("source", src.Name()).Msg("exchange rate source failed")
			continue
		}

		f.mu.Lock()
		f.lastRate = rate
		f.mu.Unlock()
		return rate
	}

	rate := f.LastRate()
	f.logger.Warn().Float64("rate", rate).Msg("all exchange rate sources failed, using cached rate")
	return rate
}

// FetchSpotQuote returns the fresh quote, else the last successful one, else the error.
func (f *Fetcher) FetchSpotQuote(ctx context.Context) (model.RawQuote, error) {
	q, _, err := f.FetchSpot(ctx)
	return q, err
}

// FetchSpot is FetchSpotQuote that also reports whether the cached quote was used.
func (f *Fetcher) FetchSpot(ctx context.Context) (model.RawQuote, bool, error) {
	q, err := f.quotes.FetchQuote(ctx)
	if err == nil {
		f.mu.Lock()
		f.lastQuote = &q
		f.mu.Unlock()
		return q, false, nil
	}

	f.mu.RLock()
	cached := f.lastQuote
	f.mu.RUnlock()

	if cached != nil {
		f.logger.Warn().Err(err).Str("source", f.quotes.Name()).Msg("spot quote failed, using last successful quote")
		return *cached, true, nil
	}
	return model.RawQuote{}, false, fmt.Errorf("spot quote from %s: %w", f.quotes.Name(), err)
}

func (f *Fetcher) LastRate() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastRate
}
