package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/domain/model"
	"github.com/douoai/jijin/internal/domain/port"
)

const (
	DefaultHours = 2
	DefaultLimit = 1000
)

// SavePriceRequest тело POST /api/price. Указатели отличают отсутствующее поле от нуля.
type SavePriceRequest struct {
	PriceUSD      *float64 `json:"priceUsd"`
	PriceCNY      *float64 `json:"priceCny"`
	ExchangeRate  *float64 `json:"exchangeRate"`
	ChangePercent *float64 `json:"changePercent"`
	ChangeAmount  *float64 `json:"changeAmount"`
	ClosePrice    *float64 `json:"closePrice"`
	OpenPrice     *float64 `json:"openPrice"`
	Timestamp     *int64   `json:"timestamp"`
}

// Validate checks required fields in the order they are reported.
func (r SavePriceRequest) Validate() error {
	switch {
	case r.PriceUSD == nil:
		return &model.ValidationError{Field: "priceUsd"}
	case r.PriceCNY == nil:
		return &model.ValidationError{Field: "priceCny"}
	case r.ExchangeRate == nil:
		return &model.ValidationError{Field: "exchangeRate"}
	case r.Timestamp == nil:
		return &model.ValidationError{Field: "timestamp"}
	}
	return nil
}

func (r SavePriceRequest) Record() model.PriceRecord {
	return model.PriceRecord{
		PriceUSD:      *r.PriceUSD,
		PriceCNY:      *r.PriceCNY,
		ExchangeRate:  *r.ExchangeRate,
		ChangePercent: r.ChangePercent,
		ChangeAmount:  r.ChangeAmount,
		ClosePrice:    r.ClosePrice,
		OpenPrice:     r.OpenPrice,
		Timestamp:     *r.Timestamp,
	}
}

type PriceUseCase struct {
	storage port.PriceStore
	cache   port.LatestCache
	logger  zerolog.Logger
	now     func() time.Time
}

// NewPriceUseCase cache may be nil.
func NewPriceUseCase(storage port.PriceStore, cache port.LatestCache, logger zerolog.Logger) *PriceUseCase {
	return &PriceUseCase{
		storage: storage,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

func (uc *PriceUseCase) SavePrice(ctx context.Context, req SavePriceRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	rec := req.Record()

	if err := uc.storage.InsertPrice(ctx, rec); err != nil {
		return fmt.Errorf("insert price: %w", err)
	}

	if uc.cache != nil {
		// кешируем только если новая строка не старше закешированной
		if _, err := uc.cache.SetLatestIfNewer(ctx, rec); err != nil {
			uc.logger.Warn().Err(err).Msg("failed to refresh latest price cache")
		}
	}
	return nil
}

// GetPrices returns rows from the last hours, oldest first. Non-positive
// arguments fall back to DefaultHours and DefaultLimit.
func (uc *PriceUseCase) GetPrices(ctx context.Context, hours, limit int) ([]model.PriceRecord, error) {
	if hours <= 0 {
		hours = DefaultHours
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	since := uc.now().UnixMilli() - int64(hours)*time.Hour.Milliseconds()
	rows, err := uc.storage.PricesSince(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	if rows == nil {
		rows = []model.PriceRecord{}
	}
	return rows, nil
}

// GetLatestPrice returns nil, nil when nothing has been stored.
func (uc *PriceUseCase) GetLatestPrice(ctx context.Context) (*model.PriceRecord, error) {
	// Сначала проверяем кеш
	if uc.cache != nil {
		rec, err := uc.cache.GetLatest(ctx)
		if err == nil && rec != nil {
			return rec, nil
		}
		if err != nil {
			uc.logger.Warn().Err(err).Msg("latest price cache unavailable, reading storage")
		}
	}

	rec, err := uc.storage.LatestPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("query latest price: %w", err)
	}

	if rec != nil && uc.cache != nil {
		// параллельная вставка могла уже положить более свежую строку
		if _, err := uc.cache.SetLatestIfNewer(ctx, *rec); err != nil {
			uc.logger.Warn().Err(err).Msg("failed to fill latest price cache")
		}
	}
	return rec, nil
}
