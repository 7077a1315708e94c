package service

import (
	"context"
	"errors"
	"sync"

	"github.com/douoai/jijin/internal/domain/model"
)

var errUpstream = errors.New("upstream unavailable")

type fakeRate struct {
	name  string
	rate  float64
	err   error
	calls int
}

func (f *fakeRate) Name() string { return f.name }

func (f *fakeRate) FetchRate(context.Context) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.rate, nil
}

type fakeQuote struct {
	name  string
	quote model.RawQuote
	err   error
}

func (f *fakeQuote) Name() string { return f.name }

func (f *fakeQuote) FetchQuote(context.Context) (model.RawQuote, error) {
	if f.err != nil {
		return model.RawQuote{}, f.err
	}
	return f.quote, nil
}

type fakePersister struct {
	mu   sync.Mutex
	recs []model.PriceRecord
}

func (f *fakePersister) Enqueue(rec model.PriceRecord) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return true
}

func (f *fakePersister) records() []model.PriceRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PriceRecord(nil), f.recs...)
}

type fakeHistory struct {
	rows []model.PriceRecord
	err  error
}

func (f *fakeHistory) LoadHistory(context.Context, int, int) ([]model.PriceRecord, error) {
	return f.rows, f.err
}
