package morningstar

import (
	"net/http"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=morningstar_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultSearchURL     = "https://global.morningstar.com/api/v1/es/search/securities"
	defaultQuoteURL      = "https://api-global.morningstar.com/sal-service/v1/fund/quote/v7"
	defaultTimeseriesURL = "https://tools.morningstar.es/api/rest.svc/timeseries_price/2nhcdckzon"
)

// APIClient is a client for the Morningstar web API endpoints.
type APIClient struct {
	// apiKey is the fixed key the Morningstar web frontend sends in the
	// Apikey header of quote requests.
	apiKey string
	// searchURL is the securities search endpoint used for ISIN resolution.
	searchURL string
	// quoteURL is the sal-service fund quote endpoint.
	quoteURL string
	// timeseriesURL is the daily price timeseries endpoint.
	timeseriesURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers sent with each request.
	header http.Header
}

// APIClientOption is a configuration option for the Morningstar API client.
type APIClientOption func(*APIClient)

// WithSearchURL sets the securities search endpoint.
func WithSearchURL(u string) APIClientOption {
	return func(c *APIClient) {
		c.searchURL = u
	}
}

// WithQuoteURL sets the fund quote endpoint.
func WithQuoteURL(u string) APIClientOption {
	return func(c *APIClient) {
		c.quoteURL = u
	}
}

// WithTimeseriesURL sets the price timeseries endpoint.
func WithTimeseriesURL(u string) APIClientOption {
	return func(c *APIClient) {
		c.timeseriesURL = u
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) APIClientOption {
	return func(c *APIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) APIClientOption {
	return func(c *APIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewAPIClient creates a new Morningstar API client.
func NewAPIClient(key string, options ...APIClientOption) (*APIClient, error) {
	var client = &APIClient{
		apiKey:        key,
		searchURL:     defaultSearchURL,
		quoteURL:      defaultQuoteURL,
		timeseriesURL: defaultTimeseriesURL,
		httpClient:    http.DefaultClient,
		header:        http.Header{},
	}
	client.header.Set("User-Agent", "Mozilla/5.0")
	for _, option := range options {
		option(client)
	}
	return client, nil
}
