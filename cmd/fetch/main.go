// Command fetch performs a one-shot quote or history fetch against the
// configured providers and prints the JSON for inspection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"financeapi/internal/aggregate"
	"financeapi/internal/config"
	"financeapi/internal/httpx"
	"financeapi/internal/provider"
	"financeapi/internal/provider/ft"
	"financeapi/internal/provider/investing"
	"financeapi/internal/provider/morningstar"
	"financeapi/internal/provider/yahoo"
)

func main() {
	var symbolsCSV string
	var historyTicker string
	var startStr string
	var timeout int
	var configPath string
	var verbose bool

	flag.StringVar(&symbolsCSV, "symbols", "IBE.MC", "comma-separated tickers/ISINs to quote")
	flag.StringVar(&historyTicker, "history", "", "fetch daily history for this ticker instead of quotes")
	flag.StringVar(&startStr, "start", "", "history start date (YYYY-MM-DD, default 2000-01-01)")
	flag.IntVar(&timeout, "timeout", 30, "request timeout seconds")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeout > 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	// Bare adapters, no rate-limit or cache decorators: a one-shot tool
	// makes a single pass.
	var providers []provider.Provider
	if cfg.Yahoo.Enabled {
		providers = append(providers, yahoo.New(yahoo.Config{QuoteSummaryURL: cfg.Yahoo.QuoteSummaryURL}, httpClient, log))
	}
	if cfg.Morningstar.Enabled {
		client, err := morningstar.NewAPIClient(
			cfg.Morningstar.APIKey,
			morningstar.WithSearchURL(cfg.Morningstar.SearchURL),
			morningstar.WithQuoteURL(cfg.Morningstar.QuoteURL),
			morningstar.WithTimeseriesURL(cfg.Morningstar.TimeseriesURL),
			morningstar.WithHTTPClient(httpClient.HTTP),
		)
		if err != nil {
			log.Fatalf("morningstar client: %v", err)
		}
		providers = append(providers, morningstar.New(client, log))
	}
	if cfg.FT.Enabled {
		providers = append(providers, ft.New(ft.Config{TearsheetURL: cfg.FT.TearsheetURL}, httpClient, log))
	}
	if cfg.Investing.Enabled {
		providers = append(providers, investing.New(investing.Config{FundsURL: cfg.Investing.FundsURL}, httpClient, log))
	}
	if len(providers) == 0 {
		log.Fatal("no providers enabled")
	}

	agg := aggregate.New(providers, cfg.Server.MaxConcurrency, log)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	defer cancel()

	if historyTicker != "" {
		records, err := agg.GetHistory(ctx, strings.TrimSpace(historyTicker), aggregate.ParseStart(startStr))
		if err != nil {
			log.Fatalf("history: %v", err)
		}
		printJSON(aggregate.TrendHistory{Symbol: historyTicker, Historical: records})
		return
	}

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal("no symbols provided")
	}
	printJSON(agg.GetQuotes(ctx, symbols))
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
