package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"financeapi/internal/provider"
)

type countingProvider struct {
	calls int
	err   error
	hist  []provider.HistoryRecord
}

func (p *countingProvider) Tag() provider.Tag { return provider.FT }

func (p *countingProvider) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	p.calls++
	if p.err != nil {
		return provider.Quote{}, p.err
	}
	v := float64(p.calls)
	return provider.Quote{Symbol: symbol, Price: &v}, nil
}

func (p *countingProvider) FetchHistory(ctx context.Context, symbol string, start time.Time) ([]provider.HistoryRecord, error) {
	return p.hist, nil
}

func TestFetchQuote_DisabledPassesThrough(t *testing.T) {
	upstream := &countingProvider{}
	c := &Provider{P: upstream}

	for range 3 {
		if _, err := c.FetchQuote(context.Background(), "A"); err != nil {
			t.Fatal(err)
		}
	}
	if upstream.calls != 3 {
		t.Errorf("upstream called %d times, want every call with TTL 0", upstream.calls)
	}
}

func TestFetchQuote_ServesCachedWithinTTL(t *testing.T) {
	upstream := &countingProvider{}
	c := &Provider{P: upstream, TTL: time.Minute}

	first, err := c.FetchQuote(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.FetchQuote(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	if upstream.calls != 1 {
		t.Errorf("upstream called %d times, want 1", upstream.calls)
	}
	if *first.Price != *second.Price {
		t.Errorf("cached price %v differs from first %v", *second.Price, *first.Price)
	}

	// Distinct symbols never share entries.
	if _, err := c.FetchQuote(context.Background(), "B"); err != nil {
		t.Fatal(err)
	}
	if upstream.calls != 2 {
		t.Errorf("upstream called %d times after new symbol, want 2", upstream.calls)
	}
}

func TestFetchQuote_ServesStaleOnUpstreamError(t *testing.T) {
	upstream := &countingProvider{}
	c := &Provider{P: upstream, TTL: time.Nanosecond}

	first, err := c.FetchQuote(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)

	upstream.err = errors.New("upstream down")
	got, err := c.FetchQuote(context.Background(), "A")
	if err != nil {
		t.Fatalf("want stale quote, got error %v", err)
	}
	if *got.Price != *first.Price {
		t.Errorf("stale price %v, want %v", *got.Price, *first.Price)
	}
}

func TestFetchQuote_ErrorWithNoStaleEntry(t *testing.T) {
	upstream := &countingProvider{err: errors.New("upstream down")}
	c := &Provider{P: upstream, TTL: time.Minute}

	if _, err := c.FetchQuote(context.Background(), "A"); err == nil {
		t.Fatal("want error when nothing cached")
	}
}

func TestStore_EnforcesMaxItems(t *testing.T) {
	upstream := &countingProvider{}
	c := &Provider{P: upstream, TTL: time.Minute, MaxItems: 2}

	for _, s := range []string{"A", "B", "C", "D"} {
		if _, err := c.FetchQuote(context.Background(), s); err != nil {
			t.Fatal(err)
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.items) > 2 {
		t.Errorf("cache holds %d entries, want at most 2", len(c.items))
	}
	if _, ok := c.items["D"]; !ok {
		t.Error("most recent entry was evicted")
	}
}

func TestFetchHistory_Uncached(t *testing.T) {
	v := 10.5
	upstream := &countingProvider{hist: []provider.HistoryRecord{{Date: "2020-01-02", Close: &v}}}
	c := &Provider{P: upstream, TTL: time.Minute}

	records, err := c.FetchHistory(context.Background(), "A", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("records = %+v", records)
	}
}
