package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"financeapi/internal/provider"
)

type fakeProvider struct {
	tag     provider.Tag
	quote   provider.Quote
	err     error
	calls   int
	hist    []provider.HistoryRecord
	histErr error
}

func (f *fakeProvider) Tag() provider.Tag { return f.tag }

func (f *fakeProvider) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	f.calls++
	if f.err != nil {
		return provider.Quote{}, f.err
	}
	q := f.quote
	q.Symbol = symbol
	return q, nil
}

func (f *fakeProvider) FetchHistory(ctx context.Context, symbol string, start time.Time) ([]provider.HistoryRecord, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	return f.hist, nil
}

func newAggregator(maxConcurrency int, providers ...provider.Provider) *Aggregator {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(providers, maxConcurrency, log)
}

func price(v float64) provider.Quote {
	return provider.Quote{Price: &v}
}

func TestGetQuotes_FailureIsolatedPerTicker(t *testing.T) {
	yf := &fakeProvider{tag: provider.Yahoo, quote: price(190.5)}
	agg := newAggregator(4, yf)

	// Both tickers route to Yahoo only; fail the second call by symbol.
	failing := &fakeProvider{tag: provider.Yahoo, err: errors.New("boom")}
	agg.providers[provider.Yahoo] = symbolSwitch{"AAPL": yf, "BAD": failing}

	results := agg.GetQuotes(context.Background(), []string{"AAPL", "BAD"})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Symbol != "AAPL" || results[0].Err != "" || results[0].Quote == nil {
		t.Errorf("AAPL entry = %+v, want quote", results[0])
	}
	if results[1].Symbol != "BAD" || results[1].Err == "" {
		t.Errorf("BAD entry = %+v, want inline error", results[1])
	}
	if !strings.Contains(results[1].Err, "YF failed: boom") {
		t.Errorf("error %q does not name the provider", results[1].Err)
	}
}

// symbolSwitch routes FetchQuote to a different provider per symbol.
type symbolSwitch map[string]provider.Provider

func (s symbolSwitch) Tag() provider.Tag { return provider.Yahoo }

func (s symbolSwitch) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	return s[symbol].FetchQuote(ctx, symbol)
}

func TestGetQuotes_FallsBackInChainOrder(t *testing.T) {
	ms := &fakeProvider{tag: provider.Morningstar, err: errors.New("no code found")}
	ft := &fakeProvider{tag: provider.FT, err: errors.New("empty extraction")}
	inv := &fakeProvider{tag: provider.Investing, quote: price(251.8)}
	yf := &fakeProvider{tag: provider.Yahoo, quote: price(1.0)}
	agg := newAggregator(1, ms, ft, inv, yf)

	results := agg.GetQuotes(context.Background(), []string{"ES0159201013"})
	if results[0].Err != "" {
		t.Fatalf("unexpected error: %s", results[0].Err)
	}
	if got := *results[0].Quote.Price; got != 251.8 {
		t.Errorf("price = %v, want the third provider's 251.8", got)
	}
	if ms.calls != 1 || ft.calls != 1 || inv.calls != 1 {
		t.Errorf("calls = MS:%d FT:%d INV:%d, want one each", ms.calls, ft.calls, inv.calls)
	}
	if yf.calls != 0 {
		t.Errorf("YF called %d times after an earlier success", yf.calls)
	}
}

func TestGetQuotes_MissingProviderRecorded(t *testing.T) {
	// Ten-character codes route to Morningstar only, which is not wired.
	agg := newAggregator(1, &fakeProvider{tag: provider.Yahoo, quote: price(1.0)})

	results := agg.GetQuotes(context.Background(), []string{"0P0000OQPB"})
	if results[0].Err == "" {
		t.Fatal("want inline error for unconfigured chain")
	}
	if !strings.Contains(results[0].Err, "MS failed: provider not configured") {
		t.Errorf("error %q does not mention the unconfigured provider", results[0].Err)
	}
}

func TestQuoteResult_MarshalJSON(t *testing.T) {
	v := 10.5
	ok := QuoteResult{Symbol: "AAPL", Quote: &provider.Quote{Symbol: "AAPL", Price: &v, Source: provider.Yahoo}}
	b, err := json.Marshal(ok)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), `"error"`) {
		t.Errorf("success entry carries an error field: %s", b)
	}

	bad := QuoteResult{Symbol: "BAD", Err: "YF failed: boom"}
	b, err = json.Marshal(bad)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"symbol":"BAD","error":"YF failed: boom"}`
	if string(b) != want {
		t.Errorf("error entry = %s, want %s", b, want)
	}
}

func TestGetHistory_FallsBackAndFails(t *testing.T) {
	c := 10.5
	ms := &fakeProvider{tag: provider.Morningstar, histErr: errors.New("series down")}
	ft := &fakeProvider{tag: provider.FT, hist: []provider.HistoryRecord{{Date: "2020-01-02", Close: &c}}}
	agg := newAggregator(1, ms, ft, &fakeProvider{tag: provider.Investing}, &fakeProvider{tag: provider.Yahoo})

	records, err := agg.GetHistory(context.Background(), "ES0159201013", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Date != "2020-01-02" {
		t.Errorf("records = %+v", records)
	}
}

func TestGetHistory_AllExhaustedJoinsErrors(t *testing.T) {
	agg := newAggregator(1, &fakeProvider{tag: provider.Morningstar, histErr: errors.New("down")})

	_, err := agg.GetHistory(context.Background(), "0P0000OQPB", time.Time{})
	if err == nil {
		t.Fatal("want error when the whole chain fails")
	}
	if !strings.Contains(err.Error(), "MS failed: down") {
		t.Errorf("error %q does not carry the provider failure", err)
	}
}

func TestGetHistory_QuoteOnlyProviderIsNoHistory(t *testing.T) {
	agg := newAggregator(1, quoteOnlyProvider{tag: provider.Yahoo})

	_, err := agg.GetHistory(context.Background(), "AAPL", time.Time{})
	if err == nil || !strings.Contains(err.Error(), provider.ErrNoHistory.Error()) {
		t.Errorf("err = %v, want history-unsupported failure", err)
	}
}

// quoteOnlyProvider implements no FetchHistory, so the history type
// assertion fails.
type quoteOnlyProvider struct{ tag provider.Tag }

func (q quoteOnlyProvider) Tag() provider.Tag { return q.tag }

func (q quoteOnlyProvider) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	return provider.Quote{Symbol: symbol}, nil
}

func TestParseTrendSpec(t *testing.T) {
	tests := []struct {
		spec   string
		ticker string
		start  time.Time
	}{
		{"AAPL@@2020-01-02", "AAPL", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"AAPL", "AAPL", time.Time{}},
		{"AAPL@@", "AAPL", time.Time{}},
		{"AAPL@@garbage", "AAPL", time.Time{}},
		{" AAPL @@2020-01-02", "AAPL", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"@@2020-01-02", "", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		ticker, start := ParseTrendSpec(tt.spec)
		if ticker != tt.ticker || !start.Equal(tt.start) {
			t.Errorf("ParseTrendSpec(%q) = (%q, %v), want (%q, %v)", tt.spec, ticker, start, tt.ticker, tt.start)
		}
	}
}

func TestGetTrendHistory_DropsFailuresKeepsSuccesses(t *testing.T) {
	c := 10.5
	yf := &fakeProvider{tag: provider.Yahoo, hist: []provider.HistoryRecord{{Date: "2020-01-02", Close: &c}}}
	agg := newAggregator(4, yf)

	out, err := agg.GetTrendHistory(context.Background(), []string{"AAPL@@2020-01-01", "0P0000OQPB"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Symbol != "AAPL" {
		t.Fatalf("out = %+v, want only the AAPL series", out)
	}
	if len(out[0].Historical) != 1 {
		t.Errorf("historical = %+v", out[0].Historical)
	}
}

func TestGetTrendHistory_ZeroSuccessesIsError(t *testing.T) {
	agg := newAggregator(4)

	_, err := agg.GetTrendHistory(context.Background(), []string{"0P0000OQPB", ""})
	if err == nil {
		t.Fatal("want error when no spec succeeds")
	}
	if !strings.Contains(err.Error(), "provider not configured") || !strings.Contains(err.Error(), "empty ticker") {
		t.Errorf("error %q does not accumulate both failures", err)
	}
}
