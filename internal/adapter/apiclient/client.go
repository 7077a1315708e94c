// Package apiclient talks to the price store API from the tracker.
package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/douoai/jijin/internal/adapter/exchange"
	"github.com/douoai/jijin/internal/domain/model"
)

type listResponse struct {
	Success bool                `json:"success"`
	Data    []model.PriceRecord `json:"data"`
	Count   int                 `json:"count"`
	Error   string              `json:"error"`
}

// PriceAPI реализует port.PriceSink и port.HistorySource поверх HTTP API хранилища.
type PriceAPI struct {
	baseURL string
	client  *exchange.Client
}

func New(baseURL string, client *exchange.Client) *PriceAPI {
	return &PriceAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *PriceAPI) Name() string { return "price-api" }

func (p *PriceAPI) SavePrice(ctx context.Context, rec model.PriceRecord) error {
	if err := p.client.PostJSON(ctx, p.baseURL+"/api/price", rec, nil); err != nil {
		return fmt.Errorf("save price: %w", err)
	}
	return nil
}

func (p *PriceAPI) LoadHistory(ctx context.Context, hours, limit int) ([]model.PriceRecord, error) {
	q := url.Values{}
	q.Set("hours", strconv.Itoa(hours))
	q.Set("limit", strconv.Itoa(limit))

	var resp listResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"/api/prices?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("load history: %w: %s", model.ErrInvalidResponse, resp.Error)
	}
	return resp.Data, nil
}
