package exchange

import (
	"context"
	"fmt"
	"math"

	"github.com/douoai/jijin/internal/domain/model"
	"github.com/douoai/jijin/internal/domain/port"
)

type rateResponse struct {
	Rates map[string]*float64 `json:"rates"`
}

// RateFeed reads {rates:{<currency>: number}} envelopes.
type RateFeed struct {
	name     string
	url      string
	currency string
	client   *Client
}

func NewRateFeed(name, url, currency string, client *Client) port.RateSource {
	if currency == "" {
		currency = "CNY"
	}
	return &RateFeed{name: name, url: url, currency: currency, client: client}
}

func (r *RateFeed) Name() string { return r.name }

func (r *RateFeed) FetchRate(ctx context.Context) (float64, error) {
	var resp rateResponse
	if err := r.client.GetJSON(ctx, r.url, &resp); err != nil {
		return 0, fmt.Errorf("%s: %w", r.name, err)
	}

	v, ok := resp.Rates[r.currency]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s: %w: rates.%s missing", r.name, model.ErrInvalidResponse, r.currency)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return 0, fmt.Errorf("%s: %w: rates.%s = %v", r.name, model.ErrInvalidResponse, r.currency, *v)
	}
	return *v, nil
}
