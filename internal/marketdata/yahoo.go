package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/config"
)

// Bar is one daily candle.
type Bar struct {
	Date     string          `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adj_close"`
	Volume   int64           `json:"volume"`
}

// chartPayload is the text handed downstream for one ticker.
type chartPayload struct {
	Ticker string `json:"ticker"`
	From   string `json:"from"`
	To     string `json:"to"`
	Bars   []Bar  `json:"bars"`
}

type barSource func(ctx context.Context, symbol string, w Window) ([]Bar, error)

// YahooProvider reads daily bars from the Yahoo Finance chart API and
// serializes them as JSON.
type YahooProvider struct {
	bars    barSource
	timeout time.Duration
	logger  *common.Logger
}

// NewYahooProvider creates a provider backed by the default finance-go backend.
func NewYahooProvider(timeout time.Duration, logger *common.Logger) *YahooProvider {
	return newYahooProvider(finance.GetBackend(finance.YFinBackend), timeout, logger)
}

func newYahooProvider(backend finance.Backend, timeout time.Duration, logger *common.Logger) *YahooProvider {
	return &YahooProvider{
		bars:    chartBars(chart.Client{B: backend}),
		timeout: timeout,
		logger:  logger,
	}
}

// Name identifies the provider in logs.
func (p *YahooProvider) Name() string { return "yahoo" }

// Fetch loads the bars for ticker. An upstream error response or an empty
// series is an absence. A failed request or an expired context is an error.
func (p *YahooProvider) Fetch(ctx context.Context, ticker string, w Window) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	bars, err := p.bars(ctx, ticker, w)
	if err != nil {
		if isTransportError(err) || ctx.Err() != nil {
			return "", false, fmt.Errorf("failed to fetch chart for %s: %w", ticker, err)
		}
		p.logger.Warn().Str("ticker", ticker).Err(err).Msg("market data unavailable for ticker")
		return "", false, nil
	}
	if len(bars) == 0 {
		p.logger.Warn().Str("ticker", ticker).Msg("no bars in window")
		return "", false, nil
	}

	body, err := encodeBars(ticker, w, bars)
	if err != nil {
		return "", false, err
	}
	return body, true, nil
}

func encodeBars(ticker string, w Window, bars []Bar) (string, error) {
	out, err := json.Marshal(chartPayload{
		Ticker: ticker,
		From:   w.FromString(),
		To:     w.ToString(),
		Bars:   bars,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode bars for %s: %w", ticker, err)
	}
	return string(out), nil
}

// isTransportError reports whether err came from the HTTP client rather than
// from an upstream response.
func isTransportError(err error) bool {
	var uerr *url.Error
	return errors.As(err, &uerr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func chartBars(client chart.Client) barSource {
	return func(ctx context.Context, symbol string, w Window) ([]Bar, error) {
		return yahooBars(ctx, client, symbol, w)
	}
}

func yahooBars(ctx context.Context, client chart.Client, symbol string, w Window) ([]Bar, error) {
	from := w.From
	// the chart end bound is exclusive
	to := w.To.AddDate(0, 0, 1)

	iter := client.Get(&chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	})

	var bars []Bar
	for iter.Next() {
		b := iter.Bar()
		bars = append(bars, Bar{
			Date:     time.Unix(int64(b.Timestamp), 0).UTC().Format(config.DateLayout),
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			AdjClose: b.AdjClose,
			Volume:   int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get chart for %s: %w", symbol, err)
	}
	return bars, nil
}
