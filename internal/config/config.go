// Package config loads the application configuration from YAML with
// environment variable overrides for credentials and paths.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the dip-hunter tool.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Yahoo    Yahoo    `yaml:"yahoo"`
	Logging  Logging  `yaml:"logging"`
	Universe Universe `yaml:"universe"`
	Fetch    Fetch    `yaml:"fetch"`
	Backtest Backtest `yaml:"backtest"`
	Alerts   Alerts   `yaml:"alerts"`
	Daemon   Daemon   `yaml:"daemon"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Yahoo holds the analyst-data endpoint. BaseURL is overridable for tests.
type Yahoo struct {
	BaseURL string `yaml:"base_url"`
	Enabled bool   `yaml:"enabled"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Universe names the watch-list file and the regime reference index.
type Universe struct {
	WatchlistPath string `yaml:"watchlist_path"`
	IndexSymbol   string `yaml:"index_symbol"`
}

// Fetch controls data loading behaviour.
type Fetch struct {
	LookbackYears   int `yaml:"lookback_years"`
	MaxWorkers      int `yaml:"max_workers"`
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Backtest sets the default simulation parameters.
type Backtest struct {
	Strategy        string  `yaml:"strategy"`
	StartingCapital float64 `yaml:"starting_capital"`
	WindowYears     int     `yaml:"window_years"`
}

// Alerts configures the Brevo email notifier. An empty APIKey disables email
// and alerts go to the log instead.
type Alerts struct {
	APIKey    string `yaml:"api_key"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
	ToEmail   string `yaml:"to_email"`
	BaseURL   string `yaml:"base_url"`
}

// Daemon configures scheduled scanning.
type Daemon struct {
	ScanCron string `yaml:"scan_cron"`
}

// Default returns the built-in configuration, used when no file is given.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/diphunter.db",
		},
		Alpaca: Alpaca{Feed: "sip"},
		Yahoo:  Yahoo{Enabled: true},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Universe: Universe{
			WatchlistPath: "stocks.json",
			IndexSymbol:   "SPY",
		},
		Fetch: Fetch{
			LookbackYears:   2,
			MaxWorkers:      4,
			RateLimitPerMin: 120,
		},
		Backtest: Backtest{
			Strategy:        "baseline",
			StartingCapital: 10000,
		},
		Daemon: Daemon{
			// 23:05 UTC on weekdays, after the US close.
			ScanCron: "0 5 23 * * 1-5",
		},
	}
}

// Load reads the YAML configuration file at the given path over the defaults,
// then applies environment variable overrides. An empty path loads defaults
// and overrides only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BREVO_APIKEY"); v != "" {
		cfg.Alerts.APIKey = v
	}

	// Canonical Alpaca env vars used by the SDK take highest priority.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
