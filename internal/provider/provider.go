package provider

import (
	"context"
	"time"
)

// Tag identifies the upstream that produced a record.
type Tag string

const (
	Yahoo       Tag = "YF"
	Morningstar Tag = "MS"
	FT          Tag = "FT"
	Investing   Tag = "INV"
)

// TimestampLayout is the canonical timestamp representation used by every
// provider. Date-only upstreams (fund NAVs) render midnight UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// Quote is the normalized shape returned by all providers.
// Numeric fields are nil when the upstream did not supply a usable value;
// they marshal as JSON null, never as a string or NaN.
type Quote struct {
	Symbol            string   `json:"symbol"`
	Exchange          string   `json:"exchange,omitempty"`
	Price             *float64 `json:"price"`
	Change            *float64 `json:"change"`
	ChangesPercentage *float64 `json:"changesPercentage"`
	DayLow            *float64 `json:"dayLow"`
	DayHigh           *float64 `json:"dayHigh"`
	YearHigh          *float64 `json:"yearHigh"`
	YearLow           *float64 `json:"yearLow"`
	Open              *float64 `json:"open"`
	PreviousClose     *float64 `json:"previousClose"`
	Timestamp         string   `json:"timestamp,omitempty"`
	Source            Tag      `json:"source"`

	// Analyst data, populated by the Yahoo adapter only.
	TargetHighPrice *float64         `json:"targetHighPrice,omitempty"`
	TargetLowPrice  *float64         `json:"targetLowPrice,omitempty"`
	TargetMeanPrice *float64         `json:"targetMeanPrice,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// Recommendation is one period of the Yahoo analyst recommendation trend.
type Recommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// HistoryRecord is one daily close. Close is nil when the upstream reported
// no value for that day.
type HistoryRecord struct {
	Date  string   `json:"date"`
	Close *float64 `json:"close"`
}

// Provider fetches a quote snapshot for a single ticker.
// One outbound call per invocation; no retries inside the adapter.
type Provider interface {
	Tag() Tag
	FetchQuote(ctx context.Context, symbol string) (Quote, error)
}

// HistoryProvider is implemented by providers that also serve daily history.
// A zero start means the adapter applies its own default.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, start time.Time) ([]HistoryRecord, error)
}

// DefaultHistoryStart is used when the caller supplies no start date.
var DefaultHistoryStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// History dispatches to p's FetchHistory when the provider (or a decorator
// around it) supports history; quote-only providers yield ErrNoHistory.
func History(ctx context.Context, p Provider, symbol string, start time.Time) ([]HistoryRecord, error) {
	hp, ok := p.(HistoryProvider)
	if !ok {
		return nil, ErrNoHistory
	}
	return hp.FetchHistory(ctx, symbol, start)
}

// NewQuote builds the normalized quote shape shared by the fund-oriented
// providers: day range and open collapse to the single NAV price and the
// 52-week range is reported as zero, since the upstream pages do not carry
// those fields. previousClose is derived from price and change when both
// are present.
func NewQuote(symbol, exchange string, price, change, changePct *float64, asOf time.Time, source Tag) Quote {
	zero := 0.0
	q := Quote{
		Symbol:            symbol,
		Exchange:          exchange,
		Price:             price,
		Change:            change,
		ChangesPercentage: changePct,
		DayLow:            price,
		DayHigh:           price,
		YearHigh:          &zero,
		YearLow:           &zero,
		Open:              price,
		Source:            source,
	}
	if price != nil && change != nil {
		pc := *price - *change
		q.PreviousClose = &pc
	}
	if !asOf.IsZero() {
		q.Timestamp = asOf.UTC().Format(TimestampLayout)
	}
	return q
}
