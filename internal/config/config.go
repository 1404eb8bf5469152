package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"TrendSignal/internal/cache"
	"TrendSignal/internal/collector"
	"TrendSignal/internal/logging"
	"TrendSignal/internal/model"
	"TrendSignal/internal/strategy"
)

// ProviderConfig selects the market-data provider and its client settings.
type ProviderConfig struct {
	Name                    string `yaml:"name" envconfig:"PROVIDER"`
	collector.ClientOptions `yaml:",inline"`
}

// CacheConfig selects the cache backend and the freshness policy.
type CacheConfig struct {
	cache.Options `yaml:",inline"`
	MaxAge        time.Duration `yaml:"max_age" envconfig:"CACHE_MAX_AGE"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
}

// WatchlistConfig drives the periodic refresh.
type WatchlistConfig struct {
	// Symbols use the "TICKER", "TICKER:crypto" or "BASE/QUOTE" forms.
	Symbols  []string       `yaml:"symbols" envconfig:"WATCHLIST_SYMBOLS"`
	Interval model.Interval `yaml:"interval" envconfig:"WATCHLIST_INTERVAL"`
	Cron     string         `yaml:"cron" envconfig:"WATCHLIST_CRON"`
	Workers  int            `yaml:"workers" envconfig:"WATCHLIST_WORKERS"`
	Snapshot bool           `yaml:"snapshot" envconfig:"WATCHLIST_SNAPSHOT"`
}

// Config holds all application configuration.
type Config struct {
	Provider   ProviderConfig        `yaml:"provider"`
	Cache      CacheConfig           `yaml:"cache"`
	Indicators model.IndicatorParams `yaml:"indicators"`
	Scoring    strategy.Config       `yaml:"scoring"`
	Database   struct {
		// SQLitePath stores analysis snapshots; empty disables recording.
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database"`
	Watchlist WatchlistConfig `yaml:"watchlist"`
	Telegram  struct {
		BotToken string `yaml:"bot_token" envconfig:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"TELEGRAM_CHAT_ID"`
		APIBase  string `yaml:"api_base" envconfig:"TELEGRAM_API_BASE"`
	} `yaml:"telegram"`
	CryptoSymbols []string        `yaml:"crypto_symbols" envconfig:"CRYPTO_SYMBOLS"`
	Logging       logging.Options `yaml:"logging"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{
		Provider:   ProviderConfig{Name: "alphavantage", ClientOptions: collector.DefaultClientOptions()},
		Indicators: model.DefaultIndicatorParams(),
		Scoring:    strategy.DefaultConfig(),
		Watchlist: WatchlistConfig{
			Interval: model.IntervalDaily,
			Cron:     "0 */5 * * * *",
			Workers:  4,
		},
		CryptoSymbols: append([]string(nil), model.DefaultCryptoSymbols...),
		Logging:       logging.Options{Level: "info", Format: "text", MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 30},
	}
	cfg.Cache.Backend = "sqlite"
	cfg.Cache.SQLitePath = "data/cache.db"
	cfg.Cache.MaxAge = 15 * time.Minute
	cfg.Cache.FetchTimeout = collector.DefaultFetchTimeout
	cfg.Database.SQLitePath = "data/trendsignal.db"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// .env files and environment variable overrides. A missing file is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Already-set variables win over .env entries.
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.Provider.Name = strings.ToLower(cfg.Provider.Name)
	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)
	return cfg, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "alphavantage":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key is required for alphavantage (ALPHA_VANTAGE_API_KEY)")
		}
	case "yahoo", "mock":
	default:
		return fmt.Errorf("provider.name %q is not one of alphavantage, yahoo, mock", c.Provider.Name)
	}
	if c.Provider.Retry.MaxAttempts < 1 {
		return fmt.Errorf("provider.retry.max_attempts must be at least 1")
	}
	if c.Provider.RequestsPerMinute < 0 {
		return fmt.Errorf("provider.requests_per_minute must not be negative")
	}
	switch c.Cache.Backend {
	case "sqlite", "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of sqlite, redis, memory", c.Cache.Backend)
	}
	if c.Cache.MaxAge < 0 {
		return fmt.Errorf("cache.max_age must not be negative")
	}
	if c.Cache.FetchTimeout <= 0 {
		return fmt.Errorf("cache.fetch_timeout must be positive")
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if _, err := model.ParseInterval(string(c.Watchlist.Interval)); err != nil {
		return fmt.Errorf("watchlist.interval: %w", err)
	}
	if _, err := c.WatchlistSymbols(); err != nil {
		return err
	}
	if c.Watchlist.Workers < 1 {
		return fmt.Errorf("watchlist.workers must be at least 1")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether alerts and commands go through Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// WatchlistSymbols parses the configured watchlist.
func (c *Config) WatchlistSymbols() ([]model.Symbol, error) {
	syms := make([]model.Symbol, 0, len(c.Watchlist.Symbols))
	for _, s := range c.Watchlist.Symbols {
		sym, err := model.ParseSymbol(s, c.CryptoSymbols)
		if err != nil {
			return nil, fmt.Errorf("watchlist.symbols: %w", err)
		}
		syms = append(syms, sym)
	}
	return syms, nil
}
