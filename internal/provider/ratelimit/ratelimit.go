package ratelimit

import (
	"context"
	"sync"
	"time"

	"financeapi/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between upstream
// calls, shared across quote and history fetches. Concurrent calls wait
// until the interval has elapsed since the last call, or return early if the
// context is canceled. The scraped upstreams throttle aggressive clients,
// so the scrape providers are wrapped by default.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration
	mu       sync.Mutex
	last     time.Time
}

func (m *MinInterval) Tag() provider.Tag { return m.P.Tag() }

func (m *MinInterval) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	if err := m.gate(ctx); err != nil {
		return provider.Quote{}, err
	}
	q, err := m.P.FetchQuote(ctx, symbol)
	m.mark()
	return q, err
}

func (m *MinInterval) FetchHistory(ctx context.Context, symbol string, start time.Time) ([]provider.HistoryRecord, error) {
	// Quote-only providers answer without an upstream call, so do not
	// burn the interval wait on them.
	hp, ok := m.P.(provider.HistoryProvider)
	if !ok {
		return nil, provider.ErrNoHistory
	}
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	rs, err := hp.FetchHistory(ctx, symbol, start)
	m.mark()
	return rs, err
}

func (m *MinInterval) gate(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	wait := time.Until(m.last.Add(m.Interval))
	m.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MinInterval) mark() {
	if m.Interval <= 0 {
		return
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}
