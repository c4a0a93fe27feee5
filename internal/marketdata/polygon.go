package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bobmcallan/stock-predictor/internal/common"
)

const aggregatesPath = "/v2/aggs/ticker/{ticker}/range/1/day/{from}/{to}"

// PolygonProvider reads daily aggregates from the Polygon.io REST API.
// The response body is returned verbatim.
type PolygonProvider struct {
	client *resty.Client
	apiKey string
	logger *common.Logger
}

// NewPolygonProvider creates a provider for baseURL (e.g. https://api.polygon.io).
func NewPolygonProvider(baseURL, apiKey string, timeout time.Duration, logger *common.Logger) *PolygonProvider {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &PolygonProvider{
		client: client,
		apiKey: apiKey,
		logger: logger,
	}
}

// Name identifies the provider in logs.
func (p *PolygonProvider) Name() string { return "polygon" }

// Fetch issues one aggregates request for ticker over w.
func (p *PolygonProvider) Fetch(ctx context.Context, ticker string, w Window) (string, bool, error) {
	start := time.Now()

	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"ticker": ticker,
			"from":   w.FromString(),
			"to":     w.ToString(),
		}).
		SetQueryParam("apiKey", p.apiKey).
		Get(aggregatesPath)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch aggregates for %s: %w", ticker, err)
	}

	if !resp.IsSuccess() {
		p.logger.Warn().
			Str("ticker", ticker).
			Int("status", resp.StatusCode()).
			Dur("duration", time.Since(start)).
			Msg("market data unavailable for ticker")
		return "", false, nil
	}

	p.logger.Debug().
		Str("ticker", ticker).
		Int("bytes", len(resp.Body())).
		Dur("duration", time.Since(start)).
		Msg("market data fetched")

	return resp.String(), true, nil
}
