package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestAlphaVantageFetchQuote(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Fatalf("expected GLOBAL_QUOTE, got %q", got)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Fatalf("expected symbol AAPL, got %q", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "test-key" {
			t.Fatalf("expected apikey test-key, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Global Quote":{"01. symbol":"AAPL","05. price":"190.5000","07. latest trading day":"2025-08-28"}}`))
	}))
	defer ts.Close()

	c := NewAlphaVantageClient(ts.URL, "test-key")
	quote, err := c.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	price, ok := quote.PriceField()
	if !ok || price != "190.5000" {
		t.Fatalf("expected price field, got %q ok=%v", price, ok)
	}
	day, ok := quote.LatestTradingDay()
	if !ok || day != "2025-08-28" {
		t.Fatalf("expected trading day, got %q ok=%v", day, ok)
	}
}

func TestAlphaVantageFetchQuoteAlternateSpellings(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"GlobalQuote":{"price":"101.25","07_latest_trading_day":"2025-08-27"}}`))
	}))
	defer ts.Close()

	c := NewAlphaVantageClient(ts.URL, "test-key")
	quote, err := c.FetchQuote(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	price, ok := quote.PriceField()
	if !ok || price != "101.25" {
		t.Fatalf("expected fallback price spelling, got %q ok=%v", price, ok)
	}
	day, ok := quote.LatestTradingDay()
	if !ok || day != "2025-08-27" {
		t.Fatalf("expected fallback day spelling, got %q ok=%v", day, ok)
	}
}

func TestAlphaVantageFetchQuoteRateLimit(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 25 requests per day."}`))
	}))
	defer ts.Close()

	c := NewAlphaVantageClient(ts.URL, "test-key")
	_, err := c.FetchQuote(context.Background(), "AAPL")

	var rateLimited *RateLimitError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateLimited.Provider != SourceAlphaVantage {
		t.Fatalf("unexpected provider: %q", rateLimited.Provider)
	}
}

func TestAlphaVantageFetchQuoteInformationError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Error Message":"Invalid API call."}`))
	}))
	defer ts.Close()

	c := NewAlphaVantageClient(ts.URL, "test-key")
	_, err := c.FetchQuote(context.Background(), "NOPE")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if !strings.Contains(upstream.Message, "Invalid API call") {
		t.Fatalf("expected upstream message, got %q", upstream.Message)
	}
}

func TestAlphaVantageFetchQuoteNon200(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewAlphaVantageClient(ts.URL, "test-key")
	_, err := c.FetchQuote(context.Background(), "AAPL")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", upstream.Status)
	}
}

func TestAlphaVantageMissingAPIKey(t *testing.T) {
	t.Parallel()

	c := NewAlphaVantageClient("https://www.alphavantage.co/query", "")
	_, err := c.FetchQuote(context.Background(), "AAPL")
	if err == nil || !strings.Contains(err.Error(), "api key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestAlphaVantageDailySeriesFallsBackToPlainDaily(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("function") {
		case "TIME_SERIES_DAILY_ADJUSTED":
			_, _ = w.Write([]byte(`{"Information":"premium endpoint"}`))
		case "TIME_SERIES_DAILY":
			_, _ = w.Write([]byte(`{"Time Series (Daily)":{
				"2025-08-27":{"4. close":"189.00"},
				"2025-08-28":{"4. close":"190.50"}
			}}`))
		default:
			t.Fatalf("unexpected function %q", r.URL.Query().Get("function"))
		}
	}))
	defer ts.Close()

	c := NewAlphaVantageClient(ts.URL, "test-key")
	points, err := c.DailySeries(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Y != 189.00 || points[1].Y != 190.50 {
		t.Fatalf("expected ascending closes, got %+v", points)
	}
	if points[0].T >= points[1].T {
		t.Fatalf("expected ascending timestamps, got %+v", points)
	}

	// second call is served from the short-lived series cache
	if _, err := c.DailySeries(context.Background(), "AAPL"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 upstream calls total, got %d", got)
	}
}

func TestAlphaVantageSymbolSearch(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "SYMBOL_SEARCH" {
			t.Fatalf("expected SYMBOL_SEARCH, got %q", got)
		}
		if got := r.URL.Query().Get("keywords"); got != "apple" {
			t.Fatalf("expected keywords apple, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bestMatches":[
			{"1. symbol":"AAPL","2. name":"Apple Inc","3. type":"Equity","4. region":"United States","8. currency":"USD"},
			{"1. symbol":"APLE","2. name":"Apple Hospitality","3. type":"Equity","4. region":"United States","8. currency":"USD"}
		]}`))
	}))
	defer ts.Close()

	c := NewAlphaVantageClient(ts.URL, "test-key")
	matches, err := c.SymbolSearch(context.Background(), "apple", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected limit respected, got %d", len(matches))
	}
	if matches[0].Symbol != "AAPL" || matches[0].Name != "Apple Inc" || matches[0].Currency != "USD" {
		t.Fatalf("unexpected match: %+v", matches[0])
	}
}
