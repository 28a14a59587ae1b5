package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	coinGeckoPublicBaseURL = "https://api.coingecko.com/api/v3"
	coinGeckoProBaseURL    = "https://pro-api.coingecko.com/api/v3"

	coinListMaxAge = 6 * time.Hour
)

type CoinGeckoClient struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	client       *http.Client

	mu           sync.Mutex
	coinList     []Coin
	coinListedAt time.Time
}

type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func NewCoinGeckoClient(baseURL, apiKey string) *CoinGeckoClient {
	resolvedBaseURL := strings.TrimRight(baseURL, "/")
	if resolvedBaseURL == "" {
		resolvedBaseURL = coinGeckoPublicBaseURL
	}

	header := "x-cg-demo-api-key"
	if strings.Contains(resolvedBaseURL, "pro-api.coingecko.com") {
		header = "x-cg-pro-api-key"
	}

	return &CoinGeckoClient{
		baseURL:      resolvedBaseURL,
		apiKey:       apiKey,
		apiKeyHeader: header,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchPrices issues one batched /simple/price call for all ids. Ids absent
// from the response are simply missing from the returned map; the caller
// decides what absence means.
func (c *CoinGeckoClient) FetchPrices(ctx context.Context, ids, vsCurrencies []string) (PriceMap, error) {
	ids = dedupeLower(ids)
	if len(ids) == 0 {
		return PriceMap{}, nil
	}
	if len(vsCurrencies) == 0 {
		vsCurrencies = []string{"usd"}
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", strings.Join(vsCurrencies, ","))

	var prices PriceMap
	if err := c.getJSON(ctx, "/simple/price", query, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// MarketChart returns up to the requested number of daily close points for a
// coin id, ascending by time.
func (c *CoinGeckoClient) MarketChart(ctx context.Context, id string, days int, vsCurrency string) ([]PricePoint, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, fmt.Errorf("coingecko id is empty")
	}
	if days <= 0 {
		days = 30
	}
	if vsCurrency == "" {
		vsCurrency = "usd"
	}

	query := url.Values{}
	query.Set("vs_currency", vsCurrency)
	query.Set("days", strconv.Itoa(days))

	var payload struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", query, &payload); err != nil {
		return nil, err
	}

	points := make([]PricePoint, 0, len(payload.Prices))
	for _, pair := range payload.Prices {
		points = append(points, PricePoint{T: int64(pair[0]), Y: pair[1]})
	}
	return points, nil
}

// SuggestCoins matches the cached coin list by name or symbol prefix.
func (c *CoinGeckoClient) SuggestCoins(ctx context.Context, prefix string, limit int) ([]Coin, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []Coin{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	coins, err := c.coinListCached(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]Coin, 0, limit)
	for _, coin := range coins {
		if strings.HasPrefix(strings.ToLower(coin.Name), prefix) || strings.HasPrefix(strings.ToLower(coin.Symbol), prefix) {
			matches = append(matches, Coin{
				ID:     coin.ID,
				Symbol: strings.ToUpper(coin.Symbol),
				Name:   coin.Name,
			})
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

// coinListCached refreshes the /coins/list snapshot at most every coinListMaxAge.
// The list is tens of thousands of entries and changes rarely.
func (c *CoinGeckoClient) coinListCached(ctx context.Context) ([]Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.coinList) > 0 && time.Since(c.coinListedAt) < coinListMaxAge {
		return c.coinList, nil
	}

	query := url.Values{}
	query.Set("include_platform", "false")

	var coins []Coin
	if err := c.getJSON(ctx, "/coins/list", query, &coins); err != nil {
		if len(c.coinList) > 0 {
			// stale list beats no list for typeahead
			return c.coinList, nil
		}
		return nil, err
	}

	c.coinList = coins
	c.coinListedAt = time.Now()
	return c.coinList, nil
}

func (c *CoinGeckoClient) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &UpstreamError{Provider: SourceCoinGecko, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &UpstreamError{
			Provider: SourceCoinGecko,
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &UpstreamError{Provider: SourceCoinGecko, Message: "invalid response: " + err.Error()}
	}
	return nil
}

func CoinGeckoDefaultBaseURL(plan string) string {
	if strings.EqualFold(plan, "pro") {
		return coinGeckoProBaseURL
	}
	return coinGeckoPublicBaseURL
}

func dedupeLower(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(strings.ToLower(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
