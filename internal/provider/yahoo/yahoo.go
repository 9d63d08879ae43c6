// Package yahoo adapts the finance-go library (and the quoteSummary REST
// endpoint it fronts) to the normalized quote and history contracts.
package yahoo

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/sirupsen/logrus"

	"financeapi/internal/httpx"
	"financeapi/internal/provider"
)

type Config struct {
	// QuoteSummaryURL is the base of the v10 quoteSummary endpoint used
	// when the library snapshot comes back empty, and for analyst data.
	QuoteSummaryURL string
}

type Provider struct {
	cfg    Config
	client *httpx.Client
	log    *logrus.Logger
}

func New(cfg Config, hc *httpx.Client, log *logrus.Logger) *Provider {
	if cfg.QuoteSummaryURL == "" {
		cfg.QuoteSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"
	}
	return &Provider{cfg: cfg, client: hc, log: log}
}

func (p *Provider) Tag() provider.Tag { return provider.Yahoo }

// FetchQuote prefers the library's lightweight snapshot and falls back to
// the fuller quoteSummary payload when that yields nothing. Analyst targets
// and the recommendation trend are fetched best-effort on top.
func (p *Provider) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	q, err := getQuote(ctx, symbol)
	var out provider.Quote
	switch {
	case err == nil && q != nil && q.RegularMarketPrice != 0:
		out = fromSnapshot(symbol, q)
	default:
		if err != nil {
			p.log.WithError(err).WithField("symbol", symbol).Debug("yahoo snapshot failed, using quoteSummary")
		}
		out, err = p.fetchSummaryQuote(ctx, symbol)
		if err != nil {
			return provider.Quote{}, err
		}
	}

	if fd, rt, err := p.fetchAnalystData(ctx, symbol); err != nil {
		p.log.WithError(err).WithField("symbol", symbol).Debug("yahoo analyst data unavailable")
	} else {
		out.TargetHighPrice = fd.TargetHighPrice.Raw
		out.TargetLowPrice = fd.TargetLowPrice.Raw
		out.TargetMeanPrice = fd.TargetMeanPrice.Raw
		out.Recommendations = rt
	}
	return out, nil
}

func fromSnapshot(symbol string, q *finance.Quote) provider.Quote {
	price := ptr(q.RegularMarketPrice)
	change := ptr(q.RegularMarketChange)
	out := provider.Quote{
		Symbol:            symbol,
		Exchange:          q.FullExchangeName,
		Price:             price,
		Change:            change,
		ChangesPercentage: ptr(q.RegularMarketChangePercent),
		DayLow:            ptr(q.RegularMarketDayLow),
		DayHigh:           ptr(q.RegularMarketDayHigh),
		YearHigh:          ptr(q.FiftyTwoWeekHigh),
		YearLow:           ptr(q.FiftyTwoWeekLow),
		Open:              ptr(q.RegularMarketOpen),
		PreviousClose:     derivePrevious(price, change),
		Source:            provider.Yahoo,
	}
	if q.RegularMarketTime > 0 {
		out.Timestamp = time.Unix(int64(q.RegularMarketTime), 0).UTC().Format(provider.TimestampLayout)
	}
	return out
}

// FetchHistory returns daily closes from start (default 2000-01-01) to
// today.
func (p *Provider) FetchHistory(ctx context.Context, symbol string, start time.Time) ([]provider.HistoryRecord, error) {
	if start.IsZero() {
		start = provider.DefaultHistoryStart
	}
	bars, err := getBars(ctx, symbol, start)
	if err != nil {
		return nil, fmt.Errorf("yahoo history for %s: %w", symbol, err)
	}
	records := make([]provider.HistoryRecord, 0, len(bars))
	for _, b := range bars {
		c, _ := b.Close.Float64()
		records = append(records, provider.HistoryRecord{
			Date:  time.Unix(int64(b.Timestamp), 0).UTC().Format("2006-01-02"),
			Close: &c,
		})
	}
	return records, nil
}

// The finance-go calls take no context, so they run in a goroutine and the
// select below honors cancellation.
func getQuote(ctx context.Context, symbol string) (*finance.Quote, error) {
	type result struct {
		q   *finance.Quote
		err error
	}
	ch := make(chan result, 1)
	go func() {
		q, err := quote.Get(symbol)
		ch <- result{q, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.q, r.err
	}
}

func getBars(ctx context.Context, symbol string, start time.Time) ([]*finance.ChartBar, error) {
	type result struct {
		bars []*finance.ChartBar
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		end := time.Now()
		iter := chart.Get(&chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		})
		var bars []*finance.ChartBar
		for iter.Next() {
			bars = append(bars, iter.Bar())
		}
		ch <- result{bars, iter.Err()}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.bars, r.err
	}
}

func ptr(v float64) *float64 { return &v }

func derivePrevious(price, change *float64) *float64 {
	if price == nil || change == nil {
		return nil
	}
	pc := *price - *change
	return &pc
}
