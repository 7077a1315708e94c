package port

import (
	"context"

	"github.com/douoai/jijin/internal/domain/model"
)

// LatestCache кеш последней сохранённой строки.
type LatestCache interface {
	SetLatest(ctx context.Context, rec model.PriceRecord) error
	// SetLatestIfNewer атомарно заменяет строку, если её timestamp не меньше
	// закешированного. Возвращает true, если запись произошла.
	SetLatestIfNewer(ctx context.Context, rec model.PriceRecord) (bool, error)
	// GetLatest returns nil, nil on a cache miss.
	GetLatest(ctx context.Context) (*model.PriceRecord, error)
	Invalidate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
