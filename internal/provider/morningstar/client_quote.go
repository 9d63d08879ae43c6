package morningstar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"financeapi/internal/provider"
)

// FundQuote is the subset of the sal-service investment-overview payload
// the adapter consumes. Pointers keep absent upstream values distinguishable
// from zero.
type FundQuote struct {
	LatestPrice         *float64 `json:"latestPrice"`
	Trailing1DayReturn  *float64 `json:"trailing1DayReturn"`
	LatestPriceDate     string   `json:"latestPriceDate"`
	DomicileCountryID   string   `json:"domicileCountryId"`
	ListedCurrency      string   `json:"listedCurrency"`
	InvestmentType      string   `json:"investmentType"`
	LastActualOwnerName string   `json:"lastActualOwnerName"`
}

// GetFundQuote fetches the latest NAV snapshot for a resolved security ID.
// The referer mirrors the fund page the web frontend sends it from.
func (c *APIClient) GetFundQuote(ctx context.Context, securityID, isin string) (FundQuote, error) {
	u := fmt.Sprintf("%s/%s/data?fundServCode=&showAnalystRatingChinaFund=false&showAnalystRating=false&hideesg=false&region=EEA&languageId=es&locale=es&clientId=MDC&benchmarkId=mstarorcat&component=sal-mip-investment-overview&version=4.69.0", c.quoteURL, securityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return FundQuote{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Apikey", c.apiKey)
	req.Header.Set("Referer", "https://global.morningstar.com/es/inversiones/fondos/"+isin+"/cotizacion")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return FundQuote{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return FundQuote{}, &provider.StatusError{Method: http.MethodGet, URL: c.quoteURL, Code: res.StatusCode}
	}

	var body FundQuote
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return FundQuote{}, fmt.Errorf("decoding quote response: %w", err)
	}
	return body, nil
}
