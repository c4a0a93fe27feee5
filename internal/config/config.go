package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DateLayout is the layout of configured market-data dates.
const DateLayout = "2006-01-02"

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
	MarketData MarketDataConfig `toml:"market_data"`
	Completion CompletionConfig `toml:"completion"`
	Tickers    TickersConfig    `toml:"tickers"`
	Session    SessionConfig    `toml:"session"`
	UI         UIConfig         `toml:"ui"`
	Tracing    TracingConfig    `toml:"tracing"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// MarketDataConfig selects and configures the market-data provider.
// Provider is "polygon" (default) or "yahoo".
type MarketDataConfig struct {
	Provider     string `toml:"provider"`
	BaseURL      string `toml:"base_url"`
	APIKey       string `toml:"api_key"`
	StartDate    string `toml:"start_date"`
	EndDate      string `toml:"end_date"`
	LookbackDays int    `toml:"lookback_days"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the request timeout.
func (c *MarketDataConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Window returns the fetch window. Explicit start/end dates win; otherwise
// the window ends the day before now and spans LookbackDays.
func (c *MarketDataConfig) Window(now time.Time) (from, to time.Time, err error) {
	if c.StartDate != "" || c.EndDate != "" {
		from, err = time.Parse(DateLayout, c.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid market_data.start_date %q: %w", c.StartDate, err)
		}
		to, err = time.Parse(DateLayout, c.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid market_data.end_date %q: %w", c.EndDate, err)
		}
		if to.Before(from) {
			return time.Time{}, time.Time{}, fmt.Errorf("market_data.end_date %s is before start_date %s", c.EndDate, c.StartDate)
		}
		return from, to, nil
	}

	days := c.LookbackDays
	if days <= 0 {
		days = 3
	}
	y, m, d := now.UTC().Date()
	to = time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	from = to.AddDate(0, 0, -days)
	return from, to, nil
}

// CompletionConfig selects and configures the completion provider.
// Provider is "openai" (default, any OpenAI-compatible endpoint) or "gemini".
type CompletionConfig struct {
	Provider     string `toml:"provider"`
	BaseURL      string `toml:"base_url"`
	APIKey       string `toml:"api_key"`
	Model        string `toml:"model"`
	MaxTokens    int    `toml:"max_tokens"`
	Timeout      string `toml:"timeout"`
	SystemPrompt string `toml:"system_prompt"`
}

// GetTimeout parses and returns the request timeout.
func (c *CompletionConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// TickersConfig holds the quick-add shortcut list.
type TickersConfig struct {
	QuickAdd []string `toml:"quick_add"`
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	TTL         string `toml:"ttl"`
	MaxSessions int    `toml:"max_sessions"`
}

// GetTTL parses and returns the idle session lifetime.
func (c *SessionConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// UIConfig holds page behaviour switches.
type UIConfig struct {
	// SurfaceErrors shows a failure notice after a failed generation.
	// When false a failure only reverts the page to idle and is logged.
	SurfaceErrors bool `toml:"surface_errors"`
}

// TracingConfig toggles OpenTelemetry spans.
type TracingConfig struct {
	Enabled bool `toml:"enabled"`
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files (default ".env")
// into the process environment. Missing files are ignored and variables that
// are already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	normalize(config)

	return config, nil
}

// applyEnvOverrides applies STOCK_* and provider key environment variables.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("STOCK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("STOCK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if level := os.Getenv("STOCK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if provider := os.Getenv("STOCK_MARKET_DATA_PROVIDER"); provider != "" {
		config.MarketData.Provider = provider
	}
	if baseURL := os.Getenv("STOCK_MARKET_DATA_BASE_URL"); baseURL != "" {
		config.MarketData.BaseURL = baseURL
	}
	if key := firstEnv("STOCK_MARKET_DATA_API_KEY", "POLYGON_API_KEY"); key != "" {
		config.MarketData.APIKey = key
	}
	if start := os.Getenv("STOCK_MARKET_DATA_START_DATE"); start != "" {
		config.MarketData.StartDate = start
	}
	if end := os.Getenv("STOCK_MARKET_DATA_END_DATE"); end != "" {
		config.MarketData.EndDate = end
	}

	if provider := os.Getenv("STOCK_COMPLETION_PROVIDER"); provider != "" {
		config.Completion.Provider = provider
	}
	if baseURL := os.Getenv("STOCK_COMPLETION_BASE_URL"); baseURL != "" {
		config.Completion.BaseURL = baseURL
	}
	if model := os.Getenv("STOCK_COMPLETION_MODEL"); model != "" {
		config.Completion.Model = model
	}
	keyVars := []string{"STOCK_COMPLETION_API_KEY", "OPENAI_API_KEY"}
	if strings.EqualFold(config.Completion.Provider, "gemini") {
		keyVars = []string{"STOCK_COMPLETION_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	if key := firstEnv(keyVars...); key != "" {
		config.Completion.APIKey = key
	}

	if enabled := os.Getenv("STOCK_TRACING_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Tracing.Enabled = b
		}
	}
}

// normalize canonicalizes provider names and quick-add symbols.
func normalize(config *Config) {
	config.MarketData.Provider = strings.ToLower(strings.TrimSpace(config.MarketData.Provider))
	config.Completion.Provider = strings.ToLower(strings.TrimSpace(config.Completion.Provider))

	quick := make([]string, 0, len(config.Tickers.QuickAdd))
	for _, s := range config.Tickers.QuickAdd {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			quick = append(quick, s)
		}
	}
	config.Tickers.QuickAdd = quick
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate returns human-readable issues with mandatory settings.
// An empty slice means the configuration is usable.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	switch c.MarketData.Provider {
	case "polygon":
		if c.MarketData.APIKey == "" {
			issues = append(issues, "market_data.api_key is required (or set POLYGON_API_KEY)")
		}
	case "yahoo":
	default:
		issues = append(issues, fmt.Sprintf("market_data.provider %q is not one of polygon, yahoo", c.MarketData.Provider))
	}
	if _, _, err := c.MarketData.Window(time.Now()); err != nil {
		issues = append(issues, err.Error())
	}

	switch c.Completion.Provider {
	case "openai", "gemini":
		if c.Completion.APIKey == "" {
			issues = append(issues, "completion.api_key is required (or set OPENAI_API_KEY / GEMINI_API_KEY)")
		}
	default:
		issues = append(issues, fmt.Sprintf("completion.provider %q is not one of openai, gemini", c.Completion.Provider))
	}
	if c.Completion.Model == "" {
		issues = append(issues, "completion.model is required")
	}
	if c.Completion.MaxTokens <= 0 {
		issues = append(issues, "completion.max_tokens must be positive")
	}

	return issues
}

// BaseURL returns the externally reachable base URL of the server.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}
