package morningstar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"financeapi/internal/provider"
)

// idSuffix is an undocumented but required fragment of the timeseries id
// parameter. Kept opaque; the endpoint rejects requests without it.
const idSuffix = "]2]0]"

type timeseriesResponse struct {
	TimeSeries struct {
		Security []struct {
			HistoryDetail []HistoryDetail `json:"HistoryDetail"`
		} `json:"Security"`
	} `json:"TimeSeries"`
}

// HistoryDetail is one daily NAV row. Value arrives as a plain decimal
// string.
type HistoryDetail struct {
	EndDate string `json:"EndDate"`
	Value   string `json:"Value"`
}

// GetTimeseries fetches daily NAV history for a performance ID between
// start and end inclusive, ascending by date as the endpoint returns it.
func (c *APIClient) GetTimeseries(ctx context.Context, performanceID string, start, end time.Time) ([]HistoryDetail, error) {
	// The id value embeds literal ']' characters; the endpoint expects them
	// unencoded, so the query string is assembled by hand.
	u := fmt.Sprintf("%s?id=%s%s&currencyId=EUR&idtype=Morningstar&frequency=daily&startDate=%s&endDate=%s&outputType=json",
		c.timeseriesURL, performanceID, idSuffix,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &provider.StatusError{Method: http.MethodGet, URL: c.timeseriesURL, Code: res.StatusCode}
	}

	var body timeseriesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding timeseries response: %w", err)
	}
	if len(body.TimeSeries.Security) == 0 {
		return nil, nil
	}
	return body.TimeSeries.Security[0].HistoryDetail, nil
}
