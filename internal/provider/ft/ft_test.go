package ft

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"financeapi/internal/httpx"
	"financeapi/internal/provider"
)

const tearsheetHTML = `<html><body>
<div class="mod-tearsheet-overview__quote">
  <ul class="mod-tearsheet-overview__quote__bar">
    <li>
      <span class="mod-ui-data-list__label">Price</span>
      <span class="mod-ui-data-list__value">1,234.50</span>
    </li>
    <li>
      <span class="mod-ui-data-list__label">Today's Change</span>
      <span class="mod-ui-data-list__value"><span>2.40 / 0.19%</span></span>
    </li>
  </ul>
  <div class="mod-disclaimer">Data delayed at least 15 minutes, as of Mar 05 2024.</div>
</div>
</body></html>`

func testProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(Config{TearsheetURL: srv.URL}, httpx.New(5*time.Second), log)
}

func TestFetchQuote_ExtractsTearsheetFields(t *testing.T) {
	t.Parallel()

	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GB00B45Q9038:GBP", r.URL.Query().Get("s"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(tearsheetHTML))
	})

	q, err := p.FetchQuote(t.Context(), "GB00B45Q9038:GBP")
	require.NoError(t, err)

	require.Equal(t, "GB00B45Q9038:GBP", q.Symbol)
	require.Equal(t, "GB", q.Exchange)
	require.Equal(t, provider.FT, q.Source)
	require.NotNil(t, q.Price)
	require.Equal(t, 1234.5, *q.Price)
	require.NotNil(t, q.Change)
	require.Equal(t, 2.4, *q.Change)
	require.NotNil(t, q.ChangesPercentage)
	require.Equal(t, 0.19, *q.ChangesPercentage)
	require.Equal(t, "2024-03-05 00:00:00", q.Timestamp)

	// Funds expose no intraday range; the day values collapse to the price.
	require.Equal(t, *q.Price, *q.DayLow)
	require.Equal(t, *q.Price, *q.DayHigh)
	require.NotNil(t, q.PreviousClose)
	require.InDelta(t, 1232.1, *q.PreviousClose, 1e-9)
}

func TestFetchQuote_ParenthesizedChange(t *testing.T) {
	t.Parallel()

	const page = `<html><body><div class="mod-tearsheet-overview__quote">
<ul class="mod-tearsheet-overview__quote__bar">
<li><span class="mod-ui-data-list__value">98.12</span></li>
<li><span class="mod-ui-data-list__value"><span>-0.45 (-0.46%)</span></span></li>
</ul></div></body></html>`
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	})

	q, err := p.FetchQuote(t.Context(), "IE00B4ND3602:EUR")
	require.NoError(t, err)
	require.Equal(t, -0.45, *q.Change)
	require.Equal(t, -0.46, *q.ChangesPercentage)
	// Disclaimer missing: no timestamp rather than a bogus one.
	require.Empty(t, q.Timestamp)
}

func TestFetchQuote_EmptyPage(t *testing.T) {
	t.Parallel()

	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>not the tearsheet you expected</body></html>"))
	})

	_, err := p.FetchQuote(t.Context(), "GB00B45Q9038:GBP")
	require.ErrorIs(t, err, provider.ErrEmptyExtraction)
}

func TestFetchQuote_UpstreamError(t *testing.T) {
	t.Parallel()

	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.FetchQuote(t.Context(), "GB00B45Q9038:GBP")
	var statusErr *provider.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}
