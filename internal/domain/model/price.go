package model

import "time"

// PriceSample одна точка истории: цена в юанях за грамм и время в миллисекундах.
type PriceSample struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

func (s PriceSample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// RawQuote снимок спотового фида (USD за тройскую унцию).
type RawQuote struct {
	SpotPriceForeign float64 `json:"spotPriceForeign"`
	ChangeAmount     float64 `json:"changeAmount"`
	ChangePercent    float64 `json:"changePercent"`
	ClosePrice       float64 `json:"closePrice"`
}

// Candle OHLC за одно ведро шириной bucket width. Timestamp - время последнего тика.
type Candle struct {
	BucketKey int64   `json:"bucketKey"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Ticks     int     `json:"ticks"`
	Timestamp int64   `json:"timestamp"`
}

// PriceRecord строка таблицы gold_prices. Необязательные поля nullable.
type PriceRecord struct {
	PriceUSD      float64  `json:"priceUsd" db:"price_usd"`
	PriceCNY      float64  `json:"priceCny" db:"price_cny"`
	ExchangeRate  float64  `json:"exchangeRate" db:"exchange_rate"`
	ChangePercent *float64 `json:"changePercent" db:"change_percent"`
	ChangeAmount  *float64 `json:"changeAmount" db:"change_amount"`
	ClosePrice    *float64 `json:"closePrice" db:"close_price"`
	OpenPrice     *float64 `json:"openPrice" db:"open_price"`
	Timestamp     int64    `json:"timestamp" db:"timestamp"`
}

// Ticker последнее отображаемое состояние трекера.
type Ticker struct {
	Price           float64   `json:"price"`
	PriceText       string    `json:"priceText"`
	SpotUSD         float64   `json:"spotUsd"`
	ExchangeRate    float64   `json:"exchangeRate"`
	ChangeAmount    float64   `json:"changeAmount"`
	ChangePercent   float64   `json:"changePercent"`
	CloseUSD        float64   `json:"closeUsd"`
	OpenUSD         float64   `json:"openUsd"`
	DomesticClose   float64   `json:"domesticClose"`
	DomesticOpen    float64   `json:"domesticOpen"`
	DomesticChange  float64   `json:"domesticChange"`
	Mode            DataMode  `json:"mode"`
	UpdatedAt       time.Time `json:"updatedAt"`
	FromCachedQuote bool      `json:"fromCachedQuote"`
}
