package port

import (
	"context"

	"github.com/douoai/jijin/internal/domain/model"
)

// PriceStore append-only хранилище строк gold_prices.
type PriceStore interface {
	InsertPrice(ctx context.Context, rec model.PriceRecord) error
	// PricesSince returns rows with timestamp >= sinceMs, oldest first, at most limit.
	PricesSince(ctx context.Context, sinceMs int64, limit int) ([]model.PriceRecord, error)
	// LatestPrice returns nil, nil when the table is empty.
	LatestPrice(ctx context.Context) (*model.PriceRecord, error)
	DeletePricesBefore(ctx context.Context, beforeMs int64) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
