package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	alphaVantageDefaultBaseURL = "https://www.alphavantage.co/query"

	dailySeriesMaxAge = time.Minute
	dailySeriesPoints = 30
)

// Quote holds the raw field map of one GLOBAL_QUOTE response. Alpha Vantage
// has shipped several spellings of the same fields over time, so lookups go
// through an ordered alias chain instead of a fixed struct.
type Quote map[string]string

var (
	quotePriceAliases = []string{"05. price", "05. Price", "price", "05_price"}
	quoteDayAliases   = []string{"07. latest trading day", "07_latest_trading_day"}

	dailySeriesBlockAliases = []string{
		"Time Series (Daily) Adjusted",
		"Time Series (Daily)",
		"Time Series (Digital Currency Daily)",
	}
	dailyCloseAliases = []string{"5. adjusted close", "4. close", "5. close"}
)

// PriceField returns the first present price spelling, unparsed.
func (q Quote) PriceField() (string, bool) {
	return firstPresent(q, quotePriceAliases)
}

// LatestTradingDay returns the upstream-reported trading day, if any.
func (q Quote) LatestTradingDay() (string, bool) {
	return firstPresent(q, quoteDayAliases)
}

func firstPresent(fields map[string]string, aliases []string) (string, bool) {
	for _, alias := range aliases {
		if value, ok := fields[alias]; ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}

type AlphaVantageClient struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu    sync.Mutex
	daily map[string]dailyCacheEntry
}

type dailyCacheEntry struct {
	points    []PricePoint
	fetchedAt time.Time
}

func NewAlphaVantageClient(baseURL, apiKey string) *AlphaVantageClient {
	resolvedBaseURL := strings.TrimRight(baseURL, "/")
	if resolvedBaseURL == "" {
		resolvedBaseURL = alphaVantageDefaultBaseURL
	}

	return &AlphaVantageClient{
		baseURL: resolvedBaseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		daily: make(map[string]dailyCacheEntry),
	}
}

// FetchQuote retrieves one GLOBAL_QUOTE. A "Note" field in an otherwise
// successful body is Alpha Vantage's throttling signal and becomes a
// RateLimitError.
func (c *AlphaVantageClient) FetchQuote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("stock symbol is empty")
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	body, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	quote := Quote{}
	if raw, ok := firstRaw(body, "Global Quote", "GlobalQuote"); ok {
		if err := json.Unmarshal(raw, &quote); err != nil {
			return nil, &UpstreamError{Provider: SourceAlphaVantage, Message: "invalid quote payload: " + err.Error()}
		}
	}
	if len(quote) == 0 {
		if info, ok := infoMessage(body); ok {
			return nil, &UpstreamError{Provider: SourceAlphaVantage, Message: info}
		}
	}
	return quote, nil
}

// DailySeries returns the last ~30 daily closes for a symbol, ascending.
// Falls back from the adjusted series to the plain one when the adjusted
// endpoint is not available on the account's plan. Results are cached briefly
// per symbol since chart reloads hammer this endpoint.
func (c *AlphaVantageClient) DailySeries(ctx context.Context, symbol string) ([]PricePoint, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if key == "" {
		return nil, fmt.Errorf("stock symbol is empty")
	}

	c.mu.Lock()
	cached, ok := c.daily[key]
	c.mu.Unlock()
	if ok && time.Since(cached.fetchedAt) < dailySeriesMaxAge {
		return cached.points, nil
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	params.Set("symbol", key)
	params.Set("outputsize", "compact")

	body, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	series, ok := firstRaw(body, dailySeriesBlockAliases...)
	if !ok {
		if _, hasInfo := infoMessage(body); hasInfo {
			params.Set("function", "TIME_SERIES_DAILY")
			body, err = c.query(ctx, params)
			if err != nil {
				return nil, err
			}
			series, ok = firstRaw(body, dailySeriesBlockAliases...)
		}
		if !ok {
			return nil, &UpstreamError{Provider: SourceAlphaVantage, Message: "no daily series for " + key}
		}
	}

	var rows map[string]map[string]string
	if err := json.Unmarshal(series, &rows); err != nil {
		return nil, &UpstreamError{Provider: SourceAlphaVantage, Message: "invalid series payload: " + err.Error()}
	}

	points := make([]PricePoint, 0, len(rows))
	for date, row := range rows {
		closeStr, ok := firstPresent(row, dailyCloseAliases)
		if !ok {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
		if err != nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		points = append(points, PricePoint{T: day.UnixMilli(), Y: closePrice})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].T < points[j].T })
	if len(points) > dailySeriesPoints {
		points = points[len(points)-dailySeriesPoints:]
	}

	c.mu.Lock()
	c.daily[key] = dailyCacheEntry{points: points, fetchedAt: time.Now()}
	c.mu.Unlock()

	return points, nil
}

// SymbolSearch backs the stock typeahead.
func (c *AlphaVantageClient) SymbolSearch(ctx context.Context, keywords string, limit int) ([]SymbolMatch, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return []SymbolMatch{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", keywords)

	body, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	var best []map[string]string
	if raw, ok := firstRaw(body, "bestMatches"); ok {
		if err := json.Unmarshal(raw, &best); err != nil {
			return nil, &UpstreamError{Provider: SourceAlphaVantage, Message: "invalid search payload: " + err.Error()}
		}
	}

	out := make([]SymbolMatch, 0, limit)
	for _, match := range best {
		out = append(out, SymbolMatch{
			Symbol:   match["1. symbol"],
			Name:     match["2. name"],
			Type:     match["3. type"],
			Region:   match["4. region"],
			Currency: match["8. currency"],
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (c *AlphaVantageClient) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("alphavantage api key is not set")
	}
	params.Set("apikey", c.apiKey)

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Provider: SourceAlphaVantage, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &UpstreamError{
			Provider: SourceAlphaVantage,
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(string(body)),
		}
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &UpstreamError{Provider: SourceAlphaVantage, Message: "invalid response: " + err.Error()}
	}

	if note, ok := stringField(body, "Note"); ok {
		return nil, &RateLimitError{Provider: SourceAlphaVantage, Message: note}
	}

	return body, nil
}

func firstRaw(body map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if raw, ok := body[key]; ok && len(raw) > 0 && string(raw) != "null" {
			return raw, true
		}
	}
	return nil, false
}

func stringField(body map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := body[key]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

func infoMessage(body map[string]json.RawMessage) (string, bool) {
	if info, ok := stringField(body, "Information"); ok {
		return info, true
	}
	return stringField(body, "Error Message")
}
