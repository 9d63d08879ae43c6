package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"financeapi/internal/provider"
)

// rawVal is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper.
type rawVal struct {
	Raw *float64 `json:"raw"`
}

type priceModule struct {
	ExchangeName               string `json:"exchangeName"`
	RegularMarketPrice         rawVal `json:"regularMarketPrice"`
	RegularMarketChange        rawVal `json:"regularMarketChange"`
	RegularMarketChangePercent rawVal `json:"regularMarketChangePercent"`
	RegularMarketDayLow        rawVal `json:"regularMarketDayLow"`
	RegularMarketDayHigh       rawVal `json:"regularMarketDayHigh"`
	RegularMarketOpen          rawVal `json:"regularMarketOpen"`
	RegularMarketTime          int64  `json:"regularMarketTime"`
}

type summaryDetailModule struct {
	FiftyTwoWeekHigh rawVal `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow  rawVal `json:"fiftyTwoWeekLow"`
}

type financialDataModule struct {
	TargetHighPrice rawVal `json:"targetHighPrice"`
	TargetLowPrice  rawVal `json:"targetLowPrice"`
	TargetMeanPrice rawVal `json:"targetMeanPrice"`
}

type recommendationTrendModule struct {
	Trend []struct {
		Period     string `json:"period"`
		StrongBuy  int    `json:"strongBuy"`
		Buy        int    `json:"buy"`
		Hold       int    `json:"hold"`
		Sell       int    `json:"sell"`
		StrongSell int    `json:"strongSell"`
	} `json:"trend"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price               *priceModule               `json:"price"`
			SummaryDetail       *summaryDetailModule       `json:"summaryDetail"`
			FinancialData       *financialDataModule       `json:"financialData"`
			RecommendationTrend *recommendationTrendModule `json:"recommendationTrend"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"quoteSummary"`
}

func (p *Provider) getSummary(ctx context.Context, symbol string, modules string) (*quoteSummaryResponse, error) {
	u := fmt.Sprintf("%s/%s?modules=%s", p.cfg.QuoteSummaryURL, url.PathEscape(symbol), modules)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &provider.StatusError{Method: http.MethodGet, URL: u, Code: res.StatusCode}
	}
	var body quoteSummaryResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode quoteSummary: %w", err)
	}
	return &body, nil
}

// fetchSummaryQuote builds a full quote from the fuller quoteSummary
// snapshot when the library path yields nothing.
func (p *Provider) fetchSummaryQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	body, err := p.getSummary(ctx, symbol, "price,summaryDetail")
	if err != nil {
		return provider.Quote{}, err
	}
	if len(body.QuoteSummary.Result) == 0 || body.QuoteSummary.Result[0].Price == nil {
		return provider.Quote{}, &provider.ParseError{Source: provider.Yahoo, What: "price module for " + symbol}
	}
	r := body.QuoteSummary.Result[0]
	pm := r.Price

	out := provider.Quote{
		Symbol:            symbol,
		Exchange:          pm.ExchangeName,
		Price:             pm.RegularMarketPrice.Raw,
		Change:            pm.RegularMarketChange.Raw,
		ChangesPercentage: pm.RegularMarketChangePercent.Raw,
		DayLow:            pm.RegularMarketDayLow.Raw,
		DayHigh:           pm.RegularMarketDayHigh.Raw,
		Open:              pm.RegularMarketOpen.Raw,
		PreviousClose:     derivePrevious(pm.RegularMarketPrice.Raw, pm.RegularMarketChange.Raw),
		Source:            provider.Yahoo,
	}
	if sd := r.SummaryDetail; sd != nil {
		out.YearHigh = sd.FiftyTwoWeekHigh.Raw
		out.YearLow = sd.FiftyTwoWeekLow.Raw
	}
	if pm.RegularMarketTime > 0 {
		out.Timestamp = time.Unix(pm.RegularMarketTime, 0).UTC().Format(provider.TimestampLayout)
	}
	if out.Price == nil && out.Change == nil && out.Timestamp == "" {
		return provider.Quote{}, fmt.Errorf("yahoo quoteSummary for %s: %w", symbol, provider.ErrEmptyExtraction)
	}
	return out, nil
}

// fetchAnalystData pulls price targets and the recommendation trend.
// Call sites treat failures as non-fatal.
func (p *Provider) fetchAnalystData(ctx context.Context, symbol string) (financialDataModule, []provider.Recommendation, error) {
	body, err := p.getSummary(ctx, symbol, "financialData,recommendationTrend")
	if err != nil {
		return financialDataModule{}, nil, err
	}
	if len(body.QuoteSummary.Result) == 0 {
		return financialDataModule{}, nil, &provider.ParseError{Source: provider.Yahoo, What: "analyst modules for " + symbol}
	}
	r := body.QuoteSummary.Result[0]

	var fd financialDataModule
	if r.FinancialData != nil {
		fd = *r.FinancialData
	}
	var recs []provider.Recommendation
	if r.RecommendationTrend != nil {
		for _, t := range r.RecommendationTrend.Trend {
			recs = append(recs, provider.Recommendation{
				Period:     t.Period,
				StrongBuy:  t.StrongBuy,
				Buy:        t.Buy,
				Hold:       t.Hold,
				Sell:       t.Sell,
				StrongSell: t.StrongSell,
			})
		}
	}
	return fd, recs, nil
}
