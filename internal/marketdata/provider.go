// Package marketdata fetches recent daily price data for a ticker.
//
// A Provider distinguishes three results: a payload (the provider answered
// with a success status), an absence (the provider answered with anything
// else) and an error (the request itself failed). Only errors abort a
// report; absences are forwarded as data.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/config"
)

// Window is the inclusive range of trading days to fetch.
type Window struct {
	From time.Time
	To   time.Time
}

// FromString and ToString format the window bounds as YYYY-MM-DD.
func (w Window) FromString() string { return w.From.Format(config.DateLayout) }
func (w Window) ToString() string   { return w.To.Format(config.DateLayout) }

// Provider fetches the raw price payload for one ticker.
type Provider interface {
	Name() string
	// Fetch returns (body, true, nil) on success, ("", false, nil) when the
	// provider reports no data for the ticker, or an error when the request
	// could not be completed.
	Fetch(ctx context.Context, ticker string, w Window) (string, bool, error)
}

// New builds the provider selected by cfg.Provider.
func New(cfg config.MarketDataConfig, logger *common.Logger) (Provider, error) {
	switch cfg.Provider {
	case "", "polygon":
		return NewPolygonProvider(cfg.BaseURL, cfg.APIKey, cfg.GetTimeout(), logger), nil
	case "yahoo":
		return NewYahooProvider(cfg.GetTimeout(), logger), nil
	default:
		return nil, fmt.Errorf("unknown market data provider: %s", cfg.Provider)
	}
}
