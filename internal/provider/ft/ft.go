// Package ft scrapes quote data from FT markets tearsheet pages.
package ft

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"financeapi/internal/httpx"
	"financeapi/internal/normalize"
	"financeapi/internal/provider"
)

const (
	priceSelector = "div.mod-tearsheet-overview__quote ul.mod-tearsheet-overview__quote__bar li span.mod-ui-data-list__value"
	// The change span nests inside the same data list values.
	changeSelector = "div.mod-tearsheet-overview__quote ul.mod-tearsheet-overview__quote__bar li span.mod-ui-data-list__value span"
	dateSelector   = "div.mod-tearsheet-overview__quote div.mod-disclaimer"
)

// changePattern matches the change formats FT renders:
// "+0.15 (1.23%)" and "2.40 / 0.82%".
var changePattern = regexp.MustCompile(`([+\-]?[0-9.,]+)\s*[/(]?\s*([+\-]?[0-9.,]+)%`)

// datePattern matches "Mar 5 2024" and "March 5 2024" inside the
// disclaimer text.
var datePattern = regexp.MustCompile(`([A-Za-z]{3,9}\s+\d{1,2}\s+\d{4})`)

type Config struct {
	// TearsheetURL is the summary page base; the ticker is appended as the
	// s query parameter.
	TearsheetURL string
}

type Provider struct {
	cfg    Config
	client *httpx.Client
	log    *logrus.Logger
}

func New(cfg Config, hc *httpx.Client, log *logrus.Logger) *Provider {
	if cfg.TearsheetURL == "" {
		cfg.TearsheetURL = "https://markets.ft.com/data/funds/tearsheet/summary"
	}
	return &Provider{cfg: cfg, client: hc, log: log}
}

func (p *Provider) Tag() provider.Tag { return provider.FT }

func (p *Provider) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	u := p.cfg.TearsheetURL + "?s=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return provider.Quote{}, err
	}
	res, err := p.client.Do(ctx, req)
	if err != nil {
		return provider.Quote{}, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return provider.Quote{}, &provider.StatusError{Method: http.MethodGet, URL: u, Code: res.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("parse tearsheet: %w", err)
	}

	var price, change, changePct *float64
	var asOf time.Time

	if s := doc.Find(priceSelector).First(); s.Length() > 0 {
		price = normalize.Number(s.Text())
	}
	if s := doc.Find(changeSelector).First(); s.Length() > 0 {
		if m := changePattern.FindStringSubmatch(s.Text()); m != nil {
			change = normalize.Number(m[1])
			changePct = normalize.Number(m[2])
		}
	}
	if s := doc.Find(dateSelector).First(); s.Length() > 0 {
		if m := datePattern.FindStringSubmatch(s.Text()); m != nil {
			asOf = parseDisclaimerDate(m[1])
		}
	}

	if price == nil && change == nil && asOf.IsZero() {
		return provider.Quote{}, fmt.Errorf("ft tearsheet for %s: %w", symbol, provider.ErrEmptyExtraction)
	}

	// FT does not expose the exchange; the ticker prefix approximates it.
	exchange := symbol
	if len(exchange) > 2 {
		exchange = exchange[:2]
	}
	return provider.NewQuote(symbol, exchange, price, change, changePct, asOf, provider.FT), nil
}

func parseDisclaimerDate(s string) time.Time {
	for _, layout := range []string{"Jan 2 2006", "January 2 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
