package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/config"
	"github.com/bobmcallan/stock-predictor/internal/handlers"
	"github.com/bobmcallan/stock-predictor/internal/llm"
	"github.com/bobmcallan/stock-predictor/internal/marketdata"
	"github.com/bobmcallan/stock-predictor/internal/mcp"
	"github.com/bobmcallan/stock-predictor/internal/report"
	"github.com/bobmcallan/stock-predictor/internal/session"
	"github.com/bobmcallan/stock-predictor/internal/view"
)

// sweepInterval is how often expired sessions are removed.
const sweepInterval = time.Minute

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Sessions     *session.Store
	Orchestrator *report.Orchestrator

	// HTTP handlers
	PageHandler    *handlers.PageHandler
	SessionHandler *handlers.SessionHandler
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	MCPHandler     *mcp.Handler

	cancel context.CancelFunc
}

// New initializes the application with the providers selected in cfg.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	provider, err := marketdata.New(cfg.MarketData, logger)
	if err != nil {
		return nil, err
	}

	completer, err := llm.New(context.Background(), cfg.Completion, logger)
	if err != nil {
		return nil, err
	}

	return NewWithProviders(cfg, logger, provider, completer)
}

// NewWithProviders initializes the application around the given providers.
func NewWithProviders(cfg *config.Config, logger *common.Logger, provider marketdata.Provider, completer llm.Completer) (*App, error) {
	if _, _, err := cfg.MarketData.Window(time.Now()); err != nil {
		return nil, fmt.Errorf("invalid market data window: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	a.Orchestrator = report.NewOrchestrator(provider, completer, report.Options{
		SystemPrompt: cfg.Completion.SystemPrompt,
		MaxTokens:    cfg.Completion.MaxTokens,
		Window:       marketWindow(cfg.MarketData),
	}, logger)

	a.Sessions = session.NewStore(
		cfg.Session.GetTTL(),
		cfg.Session.MaxSessions,
		view.Options{SurfaceErrors: cfg.UI.SurfaceErrors},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.Sessions.StartSweeper(ctx, sweepInterval)

	a.initHandlers()

	logger.Info().
		Str("market_data", provider.Name()).
		Str("completion", completer.Name()).
		Str("model", cfg.Completion.Model).
		Msg("application initialization complete")

	return a, nil
}

// marketWindow adapts the configured date window to the orchestrator.
func marketWindow(cfg config.MarketDataConfig) report.WindowFunc {
	return func(now time.Time) (marketdata.Window, error) {
		from, to, err := cfg.Window(now)
		if err != nil {
			return marketdata.Window{}, err
		}
		return marketdata.Window{From: from, To: to}, nil
	}
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.PageHandler = handlers.NewPageHandler(a.Logger, a.Sessions, a.Config.Tickers.QuickAdd)
	a.SessionHandler = handlers.NewSessionHandler(a.Sessions, a.Orchestrator, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.MCPHandler = mcp.NewHandler(a.Config, a.Orchestrator, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close stops background work.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}
