// Package aggregate fans requests over the provider chain computed per
// ticker, with sequential fallback and per-ticker failure isolation.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"financeapi/internal/provider"
	"financeapi/internal/router"
)

// attemptState tracks one ticker's walk down its provider chain.
type attemptState int

const (
	stateTrying attemptState = iota
	stateSucceeded
	stateExhausted
)

// TrendDelimiter separates ticker and start date in a trendhistory spec.
const TrendDelimiter = "@@"

type Aggregator struct {
	providers map[provider.Tag]provider.Provider
	order     func(string) []provider.Tag
	// maxConcurrency bounds parallel per-ticker fetches; provider attempts
	// for one ticker always stay sequential.
	maxConcurrency int
	log            *logrus.Logger
}

func New(providers []provider.Provider, maxConcurrency int, log *logrus.Logger) *Aggregator {
	byTag := make(map[provider.Tag]provider.Provider, len(providers))
	for _, p := range providers {
		byTag[p.Tag()] = p
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Aggregator{
		providers:      byTag,
		order:          router.SelectOrder,
		maxConcurrency: maxConcurrency,
		log:            log,
	}
}

// QuoteResult is either a quote or an inline per-ticker error.
type QuoteResult struct {
	Symbol string
	Quote  *provider.Quote
	Err    string
}

func (r QuoteResult) MarshalJSON() ([]byte, error) {
	if r.Err != "" {
		return json.Marshal(struct {
			Symbol string `json:"symbol"`
			Error  string `json:"error"`
		}{r.Symbol, r.Err})
	}
	return json.Marshal(r.Quote)
}

// TrendHistory is one ticker's historical series in a batch response.
type TrendHistory struct {
	Symbol     string                   `json:"symbol"`
	Historical []provider.HistoryRecord `json:"historical"`
}

// tryProviders walks the ticker's chain, calling attempt per provider until
// one succeeds. Returns the terminal state and the accumulated failure
// messages.
func (a *Aggregator) tryProviders(ticker string, attempt func(provider.Provider) error) (attemptState, []string) {
	state := stateTrying
	var errs []string
	for _, tag := range a.order(ticker) {
		p, ok := a.providers[tag]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s failed: provider not configured", tag))
			continue
		}
		a.log.WithFields(logrus.Fields{"ticker": ticker, "provider": tag}).Debug("trying provider")
		if err := attempt(p); err != nil {
			errs = append(errs, fmt.Sprintf("%s failed: %v", tag, err))
			continue
		}
		state = stateSucceeded
		break
	}
	if state != stateSucceeded {
		state = stateExhausted
	}
	return state, errs
}

// GetQuotes resolves each ticker independently; a ticker whose whole chain
// fails degrades to an inline error entry and never aborts the batch.
// Result order matches input order.
func (a *Aggregator) GetQuotes(ctx context.Context, tickers []string) []QuoteResult {
	results := make([]QuoteResult, len(tickers))
	g := &errgroup.Group{}
	g.SetLimit(a.maxConcurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			var quote provider.Quote
			state, errs := a.tryProviders(ticker, func(p provider.Provider) error {
				q, err := p.FetchQuote(ctx, ticker)
				if err != nil {
					return err
				}
				quote = q
				return nil
			})
			if state == stateExhausted {
				results[i] = QuoteResult{Symbol: ticker, Err: strings.Join(errs, "; ")}
				return nil
			}
			results[i] = QuoteResult{Symbol: ticker, Quote: &quote}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// GetHistory returns daily history for one ticker, falling back across the
// history-capable providers in router order. An error is returned only when
// every provider fails.
func (a *Aggregator) GetHistory(ctx context.Context, ticker string, start time.Time) ([]provider.HistoryRecord, error) {
	var records []provider.HistoryRecord
	state, errs := a.tryProviders(ticker, func(p provider.Provider) error {
		rs, err := provider.History(ctx, p, ticker, start)
		if err != nil {
			return err
		}
		records = rs
		return nil
	})
	if state == stateExhausted {
		return nil, errors.New(strings.Join(errs, "; "))
	}
	return records, nil
}

// ParseTrendSpec splits a "TICKER@@STARTDATE" spec. A missing or
// unparseable date yields a zero time so the adapter default applies.
func ParseTrendSpec(spec string) (ticker string, start time.Time) {
	ticker, startStr, _ := strings.Cut(spec, TrendDelimiter)
	return strings.TrimSpace(ticker), ParseStart(startStr)
}

// ParseStart parses a YYYY-MM-DD start date, returning zero when absent or
// malformed.
func ParseStart(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetTrendHistory resolves a batch of trend specs. Per-ticker failures are
// dropped from the result; only a batch with zero successes returns an
// error carrying every accumulated message.
func (a *Aggregator) GetTrendHistory(ctx context.Context, specs []string) ([]TrendHistory, error) {
	type item struct {
		th   TrendHistory
		ok   bool
		errs []string
	}
	items := make([]item, len(specs))
	g := &errgroup.Group{}
	g.SetLimit(a.maxConcurrency)
	for i, spec := range specs {
		g.Go(func() error {
			ticker, start := ParseTrendSpec(spec)
			if ticker == "" {
				items[i] = item{errs: []string{fmt.Sprintf("empty ticker in spec %q", spec)}}
				return nil
			}
			records, err := a.GetHistory(ctx, ticker, start)
			if err != nil {
				a.log.WithField("ticker", ticker).WithError(err).Debug("trend history failed")
				items[i] = item{errs: []string{fmt.Sprintf("%s: %v", ticker, err)}}
				return nil
			}
			items[i] = item{th: TrendHistory{Symbol: ticker, Historical: records}, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]TrendHistory, 0, len(items))
	var errs []string
	for _, it := range items {
		if it.ok {
			out = append(out, it.th)
			continue
		}
		errs = append(errs, it.errs...)
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.New(strings.Join(errs, "; "))
	}
	return out, nil
}
