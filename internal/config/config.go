package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
)

type Server struct {
	Port              string `json:"port" env:"PORT"`
	RequestTimeoutSec int    `json:"request_timeout_sec" env:"REQUEST_TIMEOUT_SEC"`
	// MaxConcurrency bounds parallel per-ticker fetches in a batch.
	// 1 restores strictly sequential processing.
	MaxConcurrency int `json:"max_concurrency" env:"MAX_CONCURRENCY"`
	// GlobalRatePerSec caps upstream calls per second across all providers
	// with a shared token bucket. 0 disables the cap.
	GlobalRatePerSec float64 `json:"global_rate_per_sec" env:"GLOBAL_RATE_PER_SEC"`
	GlobalRateBurst  int     `json:"global_rate_burst" env:"GLOBAL_RATE_BURST"`
}

type Yahoo struct {
	Enabled         bool   `json:"enabled" env:"YAHOO_ENABLED"`
	QuoteSummaryURL string `json:"quote_summary_url" env:"YAHOO_QUOTE_SUMMARY_URL"`
	CacheTTLSeconds int    `json:"cache_ttl_sec" env:"YAHOO_CACHE_TTL_SEC"`
	CacheMaxItems   int    `json:"cache_max_items" env:"YAHOO_CACHE_MAX_ITEMS"`
}

type Morningstar struct {
	Enabled               bool   `json:"enabled" env:"MORNINGSTAR_ENABLED"`
	APIKey                string `json:"api_key" env:"MORNINGSTAR_API_KEY"`
	SearchURL             string `json:"search_url" env:"MORNINGSTAR_SEARCH_URL"`
	QuoteURL              string `json:"quote_url" env:"MORNINGSTAR_QUOTE_URL"`
	TimeseriesURL         string `json:"timeseries_url" env:"MORNINGSTAR_TIMESERIES_URL"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" env:"MORNINGSTAR_MIN_INTERVAL_SEC"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec" env:"MORNINGSTAR_CACHE_TTL_SEC"`
	CacheMaxItems         int    `json:"cache_max_items" env:"MORNINGSTAR_CACHE_MAX_ITEMS"`
}

type FT struct {
	Enabled               bool   `json:"enabled" env:"FT_ENABLED"`
	TearsheetURL          string `json:"tearsheet_url" env:"FT_TEARSHEET_URL"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" env:"FT_MIN_INTERVAL_SEC"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec" env:"FT_CACHE_TTL_SEC"`
	CacheMaxItems         int    `json:"cache_max_items" env:"FT_CACHE_MAX_ITEMS"`
}

type Investing struct {
	Enabled               bool   `json:"enabled" env:"INVESTING_ENABLED"`
	FundsURL              string `json:"funds_url" env:"INVESTING_FUNDS_URL"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" env:"INVESTING_MIN_INTERVAL_SEC"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec" env:"INVESTING_CACHE_TTL_SEC"`
	CacheMaxItems         int    `json:"cache_max_items" env:"INVESTING_CACHE_MAX_ITEMS"`
}

type Config struct {
	Server      Server      `json:"server"`
	Yahoo       Yahoo       `json:"yahoo"`
	Morningstar Morningstar `json:"morningstar"`
	FT          FT          `json:"ft"`
	Investing   Investing   `json:"investing"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 15, MaxConcurrency: 4},
		Yahoo: Yahoo{
			Enabled:         true,
			QuoteSummaryURL: "https://query1.finance.yahoo.com/v10/finance/quoteSummary",
		},
		Morningstar: Morningstar{
			Enabled: true,
			// Fixed public key used by the Morningstar web frontend.
			APIKey:        "lstzFDEOhfFNMLikKa0am9mgEKLBl49T",
			SearchURL:     "https://global.morningstar.com/api/v1/es/search/securities",
			QuoteURL:      "https://api-global.morningstar.com/sal-service/v1/fund/quote/v7",
			TimeseriesURL: "https://tools.morningstar.es/api/rest.svc/timeseries_price/2nhcdckzon",
		},
		FT: FT{
			Enabled:               true,
			TearsheetURL:          "https://markets.ft.com/data/funds/tearsheet/summary",
			MinRequestIntervalSec: 1,
		},
		Investing: Investing{
			Enabled:               true,
			FundsURL:              "https://es.investing.com/funds",
			MinRequestIntervalSec: 1,
		},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override file values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
