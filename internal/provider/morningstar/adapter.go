package morningstar

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"financeapi/internal/normalize"
	"financeapi/internal/provider"
)

// Provider adapts the Morningstar API client to the normalized quote and
// history contracts. Twelve-character tickers are treated as ISINs and
// resolved through the search endpoint first; anything else is assumed to
// already be a Morningstar code.
type Provider struct {
	client *APIClient
	log    *logrus.Logger
}

func New(client *APIClient, log *logrus.Logger) *Provider {
	return &Provider{client: client, log: log}
}

func (p *Provider) Tag() provider.Tag { return provider.Morningstar }

func (p *Provider) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	securityID := symbol
	if len(symbol) == 12 {
		meta, err := p.client.SearchByISIN(ctx, symbol)
		if err != nil {
			return provider.Quote{}, err
		}
		securityID = meta.SecurityID
		p.log.WithFields(logrus.Fields{"isin": symbol, "securityID": securityID}).Debug("morningstar code resolved")
	}

	fq, err := p.client.GetFundQuote(ctx, securityID, symbol)
	if err != nil {
		return provider.Quote{}, err
	}

	change := deriveChange(fq.LatestPrice, fq.Trailing1DayReturn)
	var asOf time.Time
	if fq.LatestPriceDate != "" {
		t, err := time.Parse("2006-01-02", fq.LatestPriceDate)
		if err != nil {
			p.log.WithField("date", fq.LatestPriceDate).Debug("morningstar price date unparseable")
		} else {
			asOf = t
		}
	}
	if fq.LatestPrice == nil && change == nil && asOf.IsZero() {
		return provider.Quote{}, fmt.Errorf("morningstar quote for %s: %w", symbol, provider.ErrEmptyExtraction)
	}
	return provider.NewQuote(symbol, fq.DomicileCountryID, fq.LatestPrice, change, fq.Trailing1DayReturn, asOf, provider.Morningstar), nil
}

func (p *Provider) FetchHistory(ctx context.Context, symbol string, start time.Time) ([]provider.HistoryRecord, error) {
	performanceID := symbol
	if len(symbol) == 12 {
		meta, err := p.client.SearchByISIN(ctx, symbol)
		if err != nil {
			return nil, err
		}
		performanceID = meta.PerformanceID
	}

	if start.IsZero() {
		start = provider.DefaultHistoryStart
	}
	details, err := p.client.GetTimeseries(ctx, performanceID, start, time.Now())
	if err != nil {
		return nil, err
	}

	records := make([]provider.HistoryRecord, 0, len(details))
	for _, d := range details {
		records = append(records, provider.HistoryRecord{
			Date:  d.EndDate,
			Close: normalize.Number(d.Value),
		})
	}
	return records, nil
}

// deriveChange recovers the absolute 1-day change from the latest price and
// the trailing 1-day percent return, rounded to 4 decimals.
func deriveChange(price, pct *float64) *float64 {
	if price == nil || pct == nil {
		return nil
	}
	c := *price - *price/(1+*pct/100)
	c = math.Round(c*10000) / 10000
	return &c
}
