// Package report turns a list of tickers into model commentary: it fetches
// market data for every ticker in parallel and sends the combined result to
// a completion provider in one request.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/llm"
	"github.com/bobmcallan/stock-predictor/internal/marketdata"
	"github.com/bobmcallan/stock-predictor/internal/trace"
)

// DefaultSystemPrompt is sent with every completion unless configured otherwise.
const DefaultSystemPrompt = "You are a stock market expert. You will be given recent daily price data " +
	"for up to three stock tickers as a JSON array; an entry whose data is null had no data available. " +
	"Write a short report in markdown that summarizes each stock's recent performance and gives a clear " +
	"buy, hold or sell recommendation for each one. Do not recommend any follow-up actions."

// DefaultMaxTokens bounds the completion length.
const DefaultMaxTokens = 1024

var (
	ErrNoTickers              = errors.New("no tickers to generate a report for")
	ErrDataFetchFailed        = errors.New("market data fetch failed")
	ErrReportGenerationFailed = errors.New("report generation failed")
)

// Entry is one ticker's Stage A result. Data is nil when the provider had
// nothing for the ticker.
type Entry struct {
	Ticker string  `json:"ticker"`
	Data   *string `json:"data"`
}

// Bundle holds the fetch results in ticker order.
type Bundle []Entry

// Present counts entries that carry data.
func (b Bundle) Present() int {
	n := 0
	for _, e := range b {
		if e.Data != nil {
			n++
		}
	}
	return n
}

// Marshal serializes the bundle as the completion's user message.
func (b Bundle) Marshal() (string, error) {
	if b == nil {
		b = Bundle{}
	}
	out, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// WindowFunc returns the fetch window for a generation started at now.
type WindowFunc func(now time.Time) (marketdata.Window, error)

// Options tune an Orchestrator.
type Options struct {
	SystemPrompt string
	MaxTokens    int
	Window       WindowFunc
}

// Orchestrator runs report generation.
type Orchestrator struct {
	provider  marketdata.Provider
	completer llm.Completer
	system    string
	maxTokens int
	window    WindowFunc
	logger    *common.Logger
}

// NewOrchestrator creates an Orchestrator. Zero-valued options fall back to
// the defaults above.
func NewOrchestrator(provider marketdata.Provider, completer llm.Completer, opts Options, logger *common.Logger) *Orchestrator {
	o := &Orchestrator{
		provider:  provider,
		completer: completer,
		system:    opts.SystemPrompt,
		maxTokens: opts.MaxTokens,
		window:    opts.Window,
		logger:    logger,
	}
	if o.system == "" {
		o.system = DefaultSystemPrompt
	}
	if o.maxTokens <= 0 {
		o.maxTokens = DefaultMaxTokens
	}
	if o.window == nil {
		o.window = func(now time.Time) (marketdata.Window, error) {
			y, m, d := now.UTC().Date()
			to := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
			return marketdata.Window{From: to.AddDate(0, 0, -3), To: to}, nil
		}
	}
	return o
}

// Generate fetches data for tickers and returns the model's report.
// Errors wrap ErrNoTickers, ErrDataFetchFailed or ErrReportGenerationFailed.
func (o *Orchestrator) Generate(ctx context.Context, tickers []string) (string, error) {
	if len(tickers) == 0 {
		return "", ErrNoTickers
	}

	ctx, span := trace.StartSpan(ctx, "report.generate")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("tickers", tickers))

	start := time.Now()

	bundle, err := o.Fetch(ctx, tickers)
	if err != nil {
		span.RecordError(err)
		o.logger.Error().Strs("tickers", tickers).Err(err).Msg("report data fetch failed")
		return "", err
	}

	content, err := o.Complete(ctx, bundle)
	if err != nil {
		span.RecordError(err)
		o.logger.Error().Strs("tickers", tickers).Err(err).Msg("report completion failed")
		return "", err
	}

	o.logger.Info().
		Strs("tickers", tickers).
		Int("present", bundle.Present()).
		Int("absent", len(bundle)-bundle.Present()).
		Int("chars", len(content)).
		Dur("duration", time.Since(start)).
		Msg("report generated")

	return content, nil
}

// Fetch runs Stage A: one concurrent provider call per ticker, joined
// before returning. A transport error cancels the remaining calls and fails
// the whole stage; a ticker the provider has no data for is kept as an
// absent entry.
func (o *Orchestrator) Fetch(ctx context.Context, tickers []string) (Bundle, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}

	ctx, span := trace.StartSpan(ctx, "report.fetch")
	defer span.End()

	w, err := o.window(time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFetchFailed, err)
	}

	bundle := make(Bundle, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	for i, ticker := range tickers {
		bundle[i].Ticker = ticker
		g.Go(func() error {
			body, ok, err := o.provider.Fetch(gctx, ticker, w)
			if err != nil {
				return fmt.Errorf("%s: %w", ticker, err)
			}
			if ok {
				bundle[i].Data = &body
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataFetchFailed, err)
	}

	span.SetAttributes(attribute.Int("present", bundle.Present()))
	o.logger.Debug().
		Str("provider", o.provider.Name()).
		Str("from", w.FromString()).
		Str("to", w.ToString()).
		Int("present", bundle.Present()).
		Msg("market data fetched")

	return bundle, nil
}

// Complete runs Stage B: a single completion over the serialized bundle.
func (o *Orchestrator) Complete(ctx context.Context, bundle Bundle) (string, error) {
	ctx, span := trace.StartSpan(ctx, "report.complete")
	defer span.End()

	payload, err := bundle.Marshal()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReportGenerationFailed, err)
	}

	content, err := o.completer.Complete(ctx, llm.Request{
		System:    o.system,
		User:      payload,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReportGenerationFailed, err)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: %w", ErrReportGenerationFailed, llm.ErrEmptyCompletion)
	}
	return content, nil
}
