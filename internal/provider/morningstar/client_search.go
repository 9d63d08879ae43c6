package morningstar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"financeapi/internal/provider"
)

// searchFilter restricts ISIN resolution to the eligible country and
// investment-type combinations the original frontend queries: exchange
// traded funds listed in western Europe plus open/variable-capital funds
// sold in Spain.
const searchFilter = `((((investmentType = "FE") AND (exchangeCountry in ("AUT","BEL","CHE","DEU","ESP","FRA","GBR","IRL","ITA","LUX","NLD","PRT","DNK","FIN","NOR","SWE"))) OR ((investmentType = "FO") AND (countriesOfSale = "ESP")) OR ((investmentType = "FV") AND (countriesOfSale = "ESP"))))`

// SecurityMeta carries the identifiers of one search hit.
type SecurityMeta struct {
	SecurityID    string `json:"securityID"`
	PerformanceID string `json:"performanceID"`
}

type searchResponse struct {
	Results []struct {
		Meta SecurityMeta `json:"meta"`
	} `json:"results"`
}

// SearchByISIN resolves an ISIN to its Morningstar identifiers, taking the
// first search hit. Returns provider.ErrNoCodeFound when the result set is
// empty.
func (c *APIClient) SearchByISIN(ctx context.Context, isin string) (SecurityMeta, error) {
	query := url.Values{
		"limit": {"1"},
		"page":  {"1"},
		"query": {fmt.Sprintf(`((isin ~= %q) AND %s)`, isin, searchFilter)},
		"sort":  {"_score"},
	}

	u := c.searchURL + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return SecurityMeta{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return SecurityMeta{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return SecurityMeta{}, &provider.StatusError{Method: http.MethodGet, URL: c.searchURL, Code: res.StatusCode}
	}

	var body searchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return SecurityMeta{}, fmt.Errorf("decoding search response: %w", err)
	}
	if len(body.Results) == 0 {
		return SecurityMeta{}, fmt.Errorf("isin %s: %w", isin, provider.ErrNoCodeFound)
	}
	return body.Results[0].Meta, nil
}
