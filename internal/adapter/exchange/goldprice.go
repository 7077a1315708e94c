package exchange

import (
	"context"
	"fmt"
	"math"

	"github.com/douoai/jijin/internal/domain/model"
	"github.com/douoai/jijin/internal/domain/port"
)

type goldPriceResponse struct {
	Items []struct {
		XauPrice *float64 `json:"xauPrice"`
		ChgXau   float64  `json:"chgXau"`
		PcXau    float64  `json:"pcXau"`
		XauClose float64  `json:"xauClose"`
	} `json:"items"`
}

// GoldPriceFeed читает фид вида {items:[{xauPrice, chgXau, pcXau, xauClose}]}.
type GoldPriceFeed struct {
	name   string
	url    string
	client *Client
}

func NewGoldPriceFeed(name, url string, client *Client) port.QuoteSource {
	return &GoldPriceFeed{name: name, url: url, client: client}
}

func (g *GoldPriceFeed) Name() string { return g.name }

func (g *GoldPriceFeed) FetchQuote(ctx context.Context) (model.RawQuote, error) {
	var resp goldPriceResponse
	if err := g.client.GetJSON(ctx, g.url, &resp); err != nil {
		return model.RawQuote{}, fmt.Errorf("%s: %w", g.name, err)
	}

	if len(resp.Items) == 0 || resp.Items[0].XauPrice == nil {
		return model.RawQuote{}, fmt.Errorf("%s: %w: items[0].xauPrice missing", g.name, model.ErrInvalidResponse)
	}

	item := resp.Items[0]
	spot := *item.XauPrice
	if math.IsNaN(spot) || math.IsInf(spot, 0) || spot <= 0 {
		return model.RawQuote{}, fmt.Errorf("%s: %w: xauPrice %v", g.name, model.ErrInvalidResponse, spot)
	}

	return model.RawQuote{
		SpotPriceForeign: spot,
		ChangeAmount:     item.ChgXau,
		ChangePercent:    item.PcXau,
		ClosePrice:       item.XauClose,
	}, nil
}
