// Package investing scrapes fund quote data from Investing.com pages.
package investing

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"financeapi/internal/httpx"
	"financeapi/internal/normalize"
	"financeapi/internal/provider"
)

const (
	exchangeSelector = "div.instrumentHead div.exchangeDropdownContainer a i"
	// The quote block renders price, change and percent change as a
	// fixed-position list of spans.
	quoteSelector = "div.instrumentDataDetails div.current-data div.main-current-data div.top span"
	dateSelector  = "div.instrumentDataDetails div.current-data div.bottom span"
)

type Config struct {
	// FundsURL is the fund page base; the lower-cased ticker is appended
	// as the last path segment.
	FundsURL string
}

type Provider struct {
	cfg    Config
	client *httpx.Client
	log    *logrus.Logger
}

func New(cfg Config, hc *httpx.Client, log *logrus.Logger) *Provider {
	if cfg.FundsURL == "" {
		cfg.FundsURL = "https://es.investing.com/funds"
	}
	return &Provider{cfg: cfg, client: hc, log: log}
}

func (p *Provider) Tag() provider.Tag { return provider.Investing }

func (p *Provider) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	u := strings.TrimRight(p.cfg.FundsURL, "/") + "/" + strings.ToLower(symbol)
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
		return provider.Quote{}, fmt.Errorf("parse fund page: %w", err)
	}

	var price, change, changePct *float64
	var asOf time.Time
	var exchange string

	if s := doc.Find(exchangeSelector).First(); s.Length() > 0 {
		exchange = strings.TrimSpace(s.Text())
	}

	// The es locale renders decimal commas.
	spans := doc.Find(quoteSelector)
	if s := spans.Eq(0); s.Length() > 0 {
		price = normalize.DecimalCommaNumber(s.Text())
	}
	if s := spans.Eq(1); s.Length() > 0 {
		change = normalize.DecimalCommaNumber(s.Text())
	}
	if s := spans.Eq(3); s.Length() > 0 {
		changePct = normalize.DecimalCommaNumber(s.Text())
	}

	if s := doc.Find(dateSelector).Eq(1); s.Length() > 0 {
		t, err := normalize.ShortDate(strings.TrimSpace(s.Text()))
		if err != nil {
			p.log.WithField("text", s.Text()).Debug("investing date unparseable")
		} else {
			asOf = t
		}
	}

	if price == nil && change == nil && asOf.IsZero() {
		return provider.Quote{}, fmt.Errorf("investing page for %s: %w", symbol, provider.ErrEmptyExtraction)
	}
	return provider.NewQuote(symbol, exchange, price, change, changePct, asOf, provider.Investing), nil
}
