package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gregfu05/api-aggregator/internal/cache"
	"github.com/gregfu05/api-aggregator/internal/providers"
)

const (
	// ttlFloor stops a pathologically small window from defeating the cache.
	ttlFloor = 15 * time.Second

	vsCurrency = "usd"
)

type CacheStore interface {
	Get(ctx context.Context, key string) (*cache.Entry, error)
	Set(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error
}

type CryptoSource interface {
	FetchPrices(ctx context.Context, ids, vsCurrencies []string) (providers.PriceMap, error)
}

type StockSource interface {
	FetchQuote(ctx context.Context, symbol string) (providers.Quote, error)
}

// Service is the aggregation core: it classifies symbols, fans out to both
// upstream sources, normalizes the results, and enforces cache TTL semantics.
// It holds no per-request state; the cache store is the only shared resource.
// Concurrent misses for the same key may both fetch and both write, last
// write wins; there is no single-flight de-duplication.
type Service struct {
	cache  CacheStore
	crypto CryptoSource
	stocks StockSource
	now    func() time.Time
}

func NewService(store CacheStore, crypto CryptoSource, stocks StockSource) *Service {
	return &Service{
		cache:  store,
		crypto: crypto,
		stocks: stocks,
		now:    time.Now,
	}
}

// Aggregate resolves a CSV of symbols into one normalized payload, serving
// from cache when an unexpired entry exists for the request key. Per-symbol
// upstream failures degrade to warnings; only cache-store failures and
// contract violations surface as errors.
func (s *Service) Aggregate(ctx context.Context, symbolsCsv string, ttlWindowSeconds int) (Payload, error) {
	if ttlWindowSeconds < 0 {
		return Payload{}, &Failure{Reason: fmt.Sprintf("ttl window must not be negative, got %d", ttlWindowSeconds)}
	}

	now := s.now().UTC()
	symbols := SplitSymbols(symbolsCsv)

	// An empty query is answered directly and never cached.
	if len(symbols) == 0 {
		return Payload{
			GeneratedAt: now,
			Assets:      []AssetRecord{},
			Meta: Meta{
				Cache:    CacheMiss,
				Sources:  []SourceCount{},
				Warnings: []string{"no symbols provided"},
			},
		}, nil
	}

	key := BuildKey(symbolsCsv, ttlWindowSeconds)

	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		return Payload{}, &CacheUnavailableError{Op: "get", Err: err}
	}
	if entry != nil {
		var payload Payload
		if err := json.Unmarshal(entry.Payload, &payload); err == nil {
			// Cache status is derived per lookup, never read from the store.
			payload.Meta.Cache = CacheHit
			return payload, nil
		}
		// A corrupt entry is indistinguishable from a miss; recompute.
	}

	payload := s.fetchAll(ctx, now, symbols)
	if ctx.Err() != nil {
		// Cancelled mid-flight: discard partial results, never cache them.
		return Payload{}, ctx.Err()
	}

	stored := payload
	stored.Meta.Cache = ""
	data, err := json.Marshal(stored)
	if err != nil {
		return Payload{}, &Failure{Reason: "payload not serializable: " + err.Error()}
	}

	ttl := time.Duration(ttlWindowSeconds) * time.Second
	if ttl < ttlFloor {
		ttl = ttlFloor
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		return Payload{}, &CacheUnavailableError{Op: "set", Err: err}
	}

	payload.Meta.Cache = CacheMiss
	return payload, nil
}

// symbolGroup is one unique symbol to resolve. Lookup is the normalized
// upstream identifier; Display keeps the first-seen submitted form.
type symbolGroup struct {
	Lookup  string
	Display string
}

type stockResult struct {
	quote providers.Quote
	err   error
}

func (s *Service) fetchAll(ctx context.Context, now time.Time, symbols []string) Payload {
	cryptoGroup, stockGroup := splitByClass(symbols)

	var (
		wg        sync.WaitGroup
		priceMap  providers.PriceMap
		cryptoErr error
	)

	if len(cryptoGroup) > 0 {
		ids := make([]string, len(cryptoGroup))
		for i, g := range cryptoGroup {
			ids[i] = g.Lookup
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			priceMap, cryptoErr = s.crypto.FetchPrices(ctx, ids, []string{vsCurrency})
		}()
	}

	stockResults := make([]stockResult, len(stockGroup))
	for i, g := range stockGroup {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			quote, err := s.stocks.FetchQuote(ctx, symbol)
			stockResults[i] = stockResult{quote: quote, err: err}
		}(i, g.Lookup)
	}

	wg.Wait()

	assets := make([]AssetRecord, 0, len(cryptoGroup)+len(stockGroup))
	warnings := []string{}
	cryptoRecords, stockRecords := 0, 0

	// Crypto records first, in the crypto group's input order.
	for _, g := range cryptoGroup {
		if cryptoErr != nil {
			warnings = append(warnings, fmt.Sprintf("%s: crypto source failed: %v", g.Display, cryptoErr))
			continue
		}
		price, ok := priceMap[g.Lookup][vsCurrency]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: no %s price in %s response", g.Display, vsCurrency, providers.SourceCoinGecko))
			continue
		}
		if !validPrice(price) {
			warnings = append(warnings, fmt.Sprintf("%s: invalid price %v from %s", g.Display, price, providers.SourceCoinGecko))
			continue
		}
		assets = append(assets, AssetRecord{
			Symbol: g.Display,
			Class:  ClassCrypto,
			Price:  price,
			Source: providers.SourceCoinGecko,
			AsOf:   now.Format(time.RFC3339),
		})
		cryptoRecords++
	}

	// Then stock records, in the stock group's input order.
	for i, g := range stockGroup {
		result := stockResults[i]
		if result.err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", g.Display, result.err))
			continue
		}
		raw, ok := result.quote.PriceField()
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: no price field in %s response", g.Display, providers.SourceAlphaVantage))
			continue
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || !validPrice(price) {
			warnings = append(warnings, fmt.Sprintf("%s: unparseable price %q from %s", g.Display, raw, providers.SourceAlphaVantage))
			continue
		}
		asOf, ok := result.quote.LatestTradingDay()
		if !ok {
			asOf = now.Format("2006-01-02")
		}
		assets = append(assets, AssetRecord{
			Symbol: g.Display,
			Class:  ClassStock,
			Price:  price,
			Source: providers.SourceAlphaVantage,
			AsOf:   asOf,
		})
		stockRecords++
	}

	return Payload{
		GeneratedAt: now,
		Assets:      assets,
		Meta: Meta{
			Sources: []SourceCount{
				{Name: providers.SourceCoinGecko, Records: cryptoRecords},
				{Name: providers.SourceAlphaVantage, Records: stockRecords},
			},
			Warnings: warnings,
		},
	}
}

// splitByClass partitions symbols into disjoint crypto and stock groups,
// preserving each group's first-occurrence order. Both groups deduplicate
// within a request: the crypto batch call wants unique ids, and repeating an
// identical per-symbol stock call buys nothing.
func splitByClass(symbols []string) (cryptoGroup, stockGroup []symbolGroup) {
	seenCrypto := make(map[string]struct{})
	seenStock := make(map[string]struct{})

	for _, symbol := range symbols {
		switch Classify(symbol) {
		case ClassCrypto:
			id := CryptoLookupID(symbol)
			if _, ok := seenCrypto[id]; ok {
				continue
			}
			seenCrypto[id] = struct{}{}
			cryptoGroup = append(cryptoGroup, symbolGroup{Lookup: id, Display: symbol})
		case ClassStock:
			if _, ok := seenStock[symbol]; ok {
				continue
			}
			seenStock[symbol] = struct{}{}
			stockGroup = append(stockGroup, symbolGroup{Lookup: symbol, Display: symbol})
		}
	}
	return cryptoGroup, stockGroup
}

func validPrice(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0) && price >= 0
}
