package config

// DefaultQuickAdd is the shortcut list shown under the ticker input.
var DefaultQuickAdd = []string{"NVDA", "AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA"}

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 4251,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "./logs/stock-predictor.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		MarketData: MarketDataConfig{
			Provider:     "polygon",
			BaseURL:      "https://api.polygon.io",
			LookbackDays: 3,
			Timeout:      "30s",
		},
		Completion: CompletionConfig{
			Provider:  "openai",
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 1024,
			Timeout:   "120s",
		},
		Tickers: TickersConfig{
			QuickAdd: append([]string(nil), DefaultQuickAdd...),
		},
		Session: SessionConfig{
			TTL:         "30m",
			MaxSessions: 1000,
		},
		UI: UIConfig{
			SurfaceErrors: true,
		},
	}
}
