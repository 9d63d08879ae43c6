package main

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"financeapi/internal/aggregate"
	"financeapi/internal/config"
	"financeapi/internal/httpx"
	"financeapi/internal/provider"
	"financeapi/internal/provider/cache"
	"financeapi/internal/provider/ft"
	"financeapi/internal/provider/investing"
	"financeapi/internal/provider/morningstar"
	"financeapi/internal/provider/ratelimit"
	"financeapi/internal/provider/yahoo"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if lvl, err := logrus.ParseLevel(v); err == nil {
			log.SetLevel(lvl)
		}
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	providers := buildProviders(cfg, httpClient, log)
	if len(providers) == 0 {
		log.Fatal("no providers enabled")
	}
	agg := aggregate.New(providers, cfg.Server.MaxConcurrency, log)
	srv := &server{agg: agg, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", srv.handleRoot)
	mux.HandleFunc("/quote", srv.handleQuote)
	mux.HandleFunc("/history", srv.handleHistory)
	mux.HandleFunc("/trendhistory", srv.handleTrendHistory)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("server listening on :%s", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

// buildProviders assembles the enabled adapters, each wrapped with its
// configured rate limit and cache decorators.
func buildProviders(cfg config.Config, httpClient *httpx.Client, log *logrus.Logger) []provider.Provider {
	var providers []provider.Provider

	if cfg.Yahoo.Enabled {
		var p provider.Provider = yahoo.New(yahoo.Config{QuoteSummaryURL: cfg.Yahoo.QuoteSummaryURL}, httpClient, log)
		if cfg.Yahoo.CacheTTLSeconds > 0 {
			p = &cache.Provider{P: p, TTL: time.Duration(cfg.Yahoo.CacheTTLSeconds) * time.Second, MaxItems: cfg.Yahoo.CacheMaxItems}
		}
		providers = append(providers, p)
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
		var p provider.Provider = morningstar.New(client, log)
		if cfg.Morningstar.MinRequestIntervalSec > 0 {
			p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.Morningstar.MinRequestIntervalSec) * time.Second}
		}
		if cfg.Morningstar.CacheTTLSeconds > 0 {
			p = &cache.Provider{P: p, TTL: time.Duration(cfg.Morningstar.CacheTTLSeconds) * time.Second, MaxItems: cfg.Morningstar.CacheMaxItems}
		}
		providers = append(providers, p)
	}
	if cfg.FT.Enabled {
		var p provider.Provider = ft.New(ft.Config{TearsheetURL: cfg.FT.TearsheetURL}, httpClient, log)
		if cfg.FT.MinRequestIntervalSec > 0 {
			p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.FT.MinRequestIntervalSec) * time.Second}
		}
		if cfg.FT.CacheTTLSeconds > 0 {
			p = &cache.Provider{P: p, TTL: time.Duration(cfg.FT.CacheTTLSeconds) * time.Second, MaxItems: cfg.FT.CacheMaxItems}
		}
		providers = append(providers, p)
	}
	if cfg.Investing.Enabled {
		var p provider.Provider = investing.New(investing.Config{FundsURL: cfg.Investing.FundsURL}, httpClient, log)
		if cfg.Investing.MinRequestIntervalSec > 0 {
			p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.Investing.MinRequestIntervalSec) * time.Second}
		}
		if cfg.Investing.CacheTTLSeconds > 0 {
			p = &cache.Provider{P: p, TTL: time.Duration(cfg.Investing.CacheTTLSeconds) * time.Second, MaxItems: cfg.Investing.CacheMaxItems}
		}
		providers = append(providers, p)
	}

	if cfg.Server.GlobalRatePerSec > 0 {
		// One bucket shared by every provider caps total upstream traffic.
		tb := ratelimit.NewTokenBucket(cfg.Server.GlobalRatePerSec, cfg.Server.GlobalRateBurst)
		for i, p := range providers {
			providers[i] = &ratelimit.TokenBucketProvider{P: p, TB: tb}
		}
	}
	return providers
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Open CORS for browser consumers.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses the response when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		// Prefer best speed to reduce CPU usage since payloads are JSON
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
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
