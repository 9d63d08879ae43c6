package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"financeapi/internal/provider"
)

// entry stores one cached quote with expiry.
type entry struct {
	expiresAt time.Time
	quote     provider.Quote
}

// Provider caches quote snapshots per symbol for a TTL, coalescing
// concurrent refreshes of the same symbol. History calls pass through
// uncached. Disabled (TTL <= 0) it is a transparent wrapper, which is the
// default so requests stay fully upstream-fresh unless configured.
type Provider struct {
	P        provider.Provider
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry
	sf    singleflight.Group
}

func (c *Provider) Tag() provider.Tag { return c.P.Tag() }

func (c *Provider) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	if c.TTL <= 0 {
		return c.P.FetchQuote(ctx, symbol)
	}

	now := time.Now()
	c.mu.RLock()
	e, ok := c.items[symbol]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.quote, nil
	}

	v, err, _ := c.sf.Do(symbol, func() (any, error) {
		q, err := c.P.FetchQuote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		c.store(symbol, q)
		return q, nil
	})
	if err != nil {
		// Serve a stale entry rather than failing when one exists.
		if ok {
			return e.quote, nil
		}
		return provider.Quote{}, err
	}
	return v.(provider.Quote), nil
}

func (c *Provider) FetchHistory(ctx context.Context, symbol string, start time.Time) ([]provider.HistoryRecord, error) {
	return provider.History(ctx, c.P, symbol, start)
}

func (c *Provider) store(symbol string, q provider.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[symbol] = entry{expiresAt: time.Now().Add(c.TTL), quote: q}

	// best-effort cap: drop expired first, then arbitrary keys
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		now := time.Now()
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
			if len(c.items) <= c.MaxItems {
				return
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				return
			}
			if k != symbol {
				delete(c.items, k)
			}
		}
	}
}
