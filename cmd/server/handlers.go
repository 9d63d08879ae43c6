package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"financeapi/internal/aggregate"
	"financeapi/internal/provider"
)

type server struct {
	agg *aggregate.Aggregator
	log *logrus.Logger
}

type historyResponse struct {
	Symbol     string                   `json:"symbol"`
	Historical []provider.HistoryRecord `json:"historical"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Symbol string `json:"symbol,omitempty"`
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "Unofficial Finance API (Yahoo, Morningstar, FT & Investing)",
		"endpoints": []string{
			"/quote?symbols=IBE.MC,0P0000OQPB.IR",
			"/history?ticker=IBE.MC&start=2010-01-01",
			"/trendhistory?tickers=IBE.MC@@2010-01-01,ES0159201013@@2015-06-01",
		},
		"notes": []string{
			"Quotes for stocks/ETFs are usually delayed ~15 minutes depending on exchange.",
			"Mutual funds typically have one NAV per day.",
		},
	})
}

// handleQuote serves one quote-or-error object per requested symbol, in
// request order. Partial failure never turns into a 500.
func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbols := splitCSV(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing symbols query param"})
		return
	}
	if len(symbols) > 1000 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "too many symbols (max 1000)"})
		return
	}
	writeJSON(w, http.StatusOK, s.agg.GetQuotes(r.Context(), symbols))
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if ticker == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing ticker query param"})
		return
	}
	start := aggregate.ParseStart(r.URL.Query().Get("start"))

	records, err := s.agg.GetHistory(r.Context(), ticker, start)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Symbol: ticker})
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no historical data", Symbol: ticker})
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Symbol: ticker, Historical: records})
}

func (s *server) handleTrendHistory(w http.ResponseWriter, r *http.Request) {
	specs := splitCSV(r.URL.Query().Get("tickers"))
	if len(specs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing tickers query param"})
		return
	}
	out, err := s.agg.GetTrendHistory(r.Context(), specs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
