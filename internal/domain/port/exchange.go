package port

import (
	"context"
	"time"

	"github.com/douoai/jijin/internal/domain/model"
)

// QuoteSource источник спотовой котировки золота.
type QuoteSource interface {
	Name() string
	FetchQuote(ctx context.Context) (model.RawQuote, error)
}

// RateSource источник курса USD->CNY.
type RateSource interface {
	Name() string
	FetchRate(ctx context.Context) (float64, error)
}

// HistorySource отдаёт сохранённые строки для прогрева буфера при старте.
type HistorySource interface {
	LoadHistory(ctx context.Context, hours, limit int) ([]model.PriceRecord, error)
}

// HistorySimulator заполняет график синтетической историей для тестового режима.
type HistorySimulator interface {
	Backfill(now time.Time, rate float64) []model.PriceSample
}
