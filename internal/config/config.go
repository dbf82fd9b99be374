package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the breakout tracker.
type Config struct {
	// API keys for the quote providers. An empty AlphaVantage key disables the fallback provider.
	FinnhubAPIKey      string `mapstructure:"finnhub_api_key"`
	AlphavantageAPIKey string `mapstructure:"alphavantage_api_key"`

	// Base URLs for API endpoints (configurable for testing)
	FinnhubBaseURL      string `mapstructure:"finnhub_base_url"`
	AlphavantageBaseURL string `mapstructure:"alphavantage_base_url"`

	// Timeouts for a single provider call and for a whole batch
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	BatchTimeout   time.Duration `mapstructure:"batch_timeout"`

	// Pacing of lookup starts within a batch, and the AlphaVantage quota
	BatchRate        float64 `mapstructure:"batch_rate"`
	BatchBurst       int     `mapstructure:"batch_burst"`
	AlphavantageRate int     `mapstructure:"alphavantage_rate"`

	// Watchlist persistence. Without a database URL the watchlist lives in memory only.
	DatabaseURL    string `mapstructure:"database_url"`
	WatchlistTable string `mapstructure:"watchlist_table"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Expected environment variables:
//   - FINNHUB_API_KEY
//   - ALPHAVANTAGE_API_KEY (optional, enables the fallback provider)
//   - FINNHUB_BASE_URL (optional, defaults to production)
//   - ALPHAVANTAGE_BASE_URL (optional, defaults to production)
//   - REQUEST_TIMEOUT, BATCH_TIMEOUT (optional, Go durations)
//   - BATCH_RATE, BATCH_BURST, ALPHAVANTAGE_RATE (optional)
//   - DATABASE_URL, WATCHLIST_TABLE (optional)
//   - LOG_LEVEL (optional: debug, info, warn, error)
func Load() (*Config, error) {
	v := viper.New()

	// Set up environment variable support
	v.SetEnvPrefix("") // No prefix, use full names
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("finnhub_base_url", "https://finnhub.io/api/v1")
	v.SetDefault("alphavantage_base_url", "https://www.alphavantage.co/query")
	v.SetDefault("request_timeout", "5s")
	v.SetDefault("batch_timeout", "30s")
	v.SetDefault("batch_rate", 10.0)
	v.SetDefault("batch_burst", 1)
	v.SetDefault("alphavantage_rate", 5)
	v.SetDefault("database_url", "")
	v.SetDefault("watchlist_table", "watchlist_items")
	v.SetDefault("log_level", "info")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.breakouttracker")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	// Bind environment variables for API keys
	v.BindEnv("finnhub_api_key", "FINNHUB_API_KEY")
	v.BindEnv("alphavantage_api_key", "ALPHAVANTAGE_API_KEY")

	// Bind environment variables for base URLs
	v.BindEnv("finnhub_base_url", "FINNHUB_BASE_URL")
	v.BindEnv("alphavantage_base_url", "ALPHAVANTAGE_BASE_URL")

	// Bind environment variables for tuning and storage
	v.BindEnv("request_timeout", "REQUEST_TIMEOUT")
	v.BindEnv("batch_timeout", "BATCH_TIMEOUT")
	v.BindEnv("batch_rate", "BATCH_RATE")
	v.BindEnv("batch_burst", "BATCH_BURST")
	v.BindEnv("alphavantage_rate", "ALPHAVANTAGE_RATE")
	v.BindEnv("database_url", "DATABASE_URL")
	v.BindEnv("watchlist_table", "WATCHLIST_TABLE")
	v.BindEnv("log_level", "LOG_LEVEL")

	// Unmarshal config into struct (durations decoded from strings like "5s")
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var missing []string
	if c.FinnhubAPIKey == "" {
		missing = append(missing, "FINNHUB_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	var invalid []string
	if c.RequestTimeout <= 0 {
		invalid = append(invalid, "REQUEST_TIMEOUT must be positive")
	}
	if c.BatchTimeout <= 0 {
		invalid = append(invalid, "BATCH_TIMEOUT must be positive")
	}
	if c.BatchRate <= 0 {
		invalid = append(invalid, "BATCH_RATE must be positive")
	}
	if c.BatchBurst < 1 {
		invalid = append(invalid, "BATCH_BURST must be at least 1")
	}
	if c.AlphavantageRate < 1 {
		invalid = append(invalid, "ALPHAVANTAGE_RATE must be at least 1")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		invalid = append(invalid, err.Error())
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, "; "))
	}

	return nil
}

// FallbackEnabled reports whether the AlphaVantage fallback provider is configured.
func (c *Config) FallbackEnabled() bool {
	return c.AlphavantageAPIKey != ""
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}
