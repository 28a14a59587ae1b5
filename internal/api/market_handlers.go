package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gregfu05/api-aggregator/internal/aggregate"
	"github.com/gregfu05/api-aggregator/internal/providers"
	"github.com/gregfu05/api-aggregator/internal/telemetry"
)

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	symbols := r.URL.Query().Get("symbols")

	window := s.defaultWindowSec
	if rawWindow := strings.TrimSpace(r.URL.Query().Get("window")); rawWindow != "" {
		parsed, err := strconv.Atoi(rawWindow)
		if err != nil {
			writeError(w, http.StatusBadRequest, "window must be an integer number of seconds")
			return
		}
		window = parsed
	}

	payload, err := s.Aggregator.Aggregate(r.Context(), symbols, window)
	if err != nil {
		var contractErr *aggregate.Failure
		var cacheErr *aggregate.CacheUnavailableError
		switch {
		case errors.As(err, &contractErr):
			writeError(w, http.StatusBadRequest, contractErr.Error())
		case errors.As(err, &cacheErr):
			writeError(w, http.StatusServiceUnavailable, "cache store unavailable")
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	if payload.Meta.Cache == aggregate.CacheHit {
		telemetry.CacheHit()
	} else {
		telemetry.CacheMiss()
	}
	telemetry.AggregateWarnings(len(payload.Meta.Warnings))

	writeJSON(w, http.StatusOK, payload)
}

type cryptoPriceResponse struct {
	IDs  string             `json:"ids"`
	VS   string             `json:"vs"`
	Data providers.PriceMap `json:"data"`
}

func (s *Server) handleCryptoPrice(w http.ResponseWriter, r *http.Request) {
	ids := strings.TrimSpace(r.URL.Query().Get("ids"))
	if ids == "" {
		writeError(w, http.StatusBadRequest, "ids query parameter is required")
		return
	}
	vs := strings.TrimSpace(r.URL.Query().Get("vs"))
	if vs == "" {
		vs = "usd"
	}

	data, err := s.Crypto.FetchPrices(r.Context(), strings.Split(ids, ","), strings.Split(vs, ","))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cryptoPriceResponse{IDs: ids, VS: vs, Data: data})
}

type stockQuoteResponse struct {
	Symbol string          `json:"symbol"`
	Data   providers.Quote `json:"data"`
}

func (s *Server) handleStockQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}

	quote, err := s.Stocks.FetchQuote(r.Context(), symbol)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stockQuoteResponse{Symbol: symbol, Data: quote})
}

type historyResponse struct {
	Symbol   string                 `json:"symbol"`
	Series   []providers.PricePoint `json:"series"`
	Currency string                 `json:"currency"`
}

func (s *Server) handleCryptoHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}

	days := 30
	if rawDays := strings.TrimSpace(r.URL.Query().Get("days")); rawDays != "" {
		parsed, err := strconv.Atoi(rawDays)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	series, err := s.Crypto.MarketChart(r.Context(), id, days, "usd")
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Symbol: id, Series: series, Currency: "usd"})
}

func (s *Server) handleStockHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}

	series, err := s.Stocks.DailySeries(r.Context(), symbol)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Symbol: symbol, Series: series, Currency: "usd"})
}

func (s *Server) handleSuggestCrypto(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	matches, err := s.Crypto.SuggestCoins(r.Context(), query, suggestLimit(r))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleSuggestStocks(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	matches, err := s.Stocks.SymbolSearch(r.Context(), query, suggestLimit(r))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func suggestLimit(r *http.Request) int {
	limit := 10
	if rawLimit := strings.TrimSpace(r.URL.Query().Get("limit")); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 50 {
		limit = 50
	}
	return limit
}

// writeUpstreamError maps provider failures: a rate-limit signal is the
// caller's problem (4xx), everything else is a bad gateway.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var rateLimited *providers.RateLimitError
	if errors.As(err, &rateLimited) {
		telemetry.UpstreamRateLimited(rateLimited.Provider)
		writeError(w, http.StatusBadRequest, rateLimited.Error())
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
