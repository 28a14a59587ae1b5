package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gregfu05/api-aggregator/internal/aggregate"
	"github.com/gregfu05/api-aggregator/internal/db"
	"github.com/gregfu05/api-aggregator/internal/providers"
)

type Aggregator interface {
	Aggregate(ctx context.Context, symbolsCsv string, ttlWindowSeconds int) (aggregate.Payload, error)
}

type CryptoClient interface {
	FetchPrices(ctx context.Context, ids, vsCurrencies []string) (providers.PriceMap, error)
	MarketChart(ctx context.Context, id string, days int, vsCurrency string) ([]providers.PricePoint, error)
	SuggestCoins(ctx context.Context, prefix string, limit int) ([]providers.Coin, error)
}

type StockClient interface {
	FetchQuote(ctx context.Context, symbol string) (providers.Quote, error)
	DailySeries(ctx context.Context, symbol string) ([]providers.PricePoint, error)
	SymbolSearch(ctx context.Context, keywords string, limit int) ([]providers.SymbolMatch, error)
}

type Store interface {
	ListAssets(ctx context.Context) ([]db.Asset, error)
	AddAsset(ctx context.Context, symbol string, assetType db.AssetType, name string) (db.Asset, error)
	UpdateAsset(ctx context.Context, symbol string, update db.AssetUpdate) (db.Asset, bool, error)
	DeleteAsset(ctx context.Context, symbol string) (int64, error)
	RequestLogStatus(ctx context.Context, latest int) (int64, []db.RequestLog, error)
}

type CacheManager interface {
	Status(ctx context.Context, sample int) (int64, []string, error)
	Clear(ctx context.Context, keys []string) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
}

type Server struct {
	Aggregator Aggregator
	Crypto     CryptoClient
	Stocks     StockClient
	DB         Store
	Cache      CacheManager

	defaultWindowSec int
}

func NewServer(agg Aggregator, crypto CryptoClient, stocks StockClient, store Store, cacheMgr CacheManager, defaultWindowSec int) *Server {
	if defaultWindowSec <= 0 {
		defaultWindowSec = 60
	}
	return &Server{
		Aggregator:       agg,
		Crypto:           crypto,
		Stocks:           stocks,
		DB:               store,
		Cache:            cacheMgr,
		defaultWindowSec: defaultWindowSec,
	}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/aggregate", s.handleAggregate)
	r.Get("/crypto/price", s.handleCryptoPrice)
	r.Get("/stocks/quote", s.handleStockQuote)
	r.Get("/history/crypto", s.handleCryptoHistory)
	r.Get("/history/stock", s.handleStockHistory)
	r.Get("/suggest/crypto", s.handleSuggestCrypto)
	r.Get("/suggest/stocks", s.handleSuggestStocks)

	r.Get("/assets", s.handleListAssets)
	r.Post("/assets", s.handleCreateAsset)
	r.Put("/assets", s.handleUpdateAsset)
	r.Delete("/assets", s.handleDeleteAsset)

	r.Get("/cache/status", s.handleCacheStatus)
	r.Post("/cache/clear", s.handleCacheClear)
	r.Get("/logs/status", s.handleLogsStatus)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports readiness by pinging the database and the cache store. A
// failed dependency returns 503 so load balancers stop routing here.
func Health(database, cacheStore Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := database.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := cacheStore.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, apiError{Error: message})
}

func decodeJSONBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}
