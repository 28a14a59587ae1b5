package main

import (
	"context"
	"expvar"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gregfu05/api-aggregator/internal/aggregate"
	"github.com/gregfu05/api-aggregator/internal/api"
	"github.com/gregfu05/api-aggregator/internal/cache"
	"github.com/gregfu05/api-aggregator/internal/config"
	"github.com/gregfu05/api-aggregator/internal/db"
	"github.com/gregfu05/api-aggregator/internal/providers"
	"github.com/gregfu05/api-aggregator/internal/telemetry"
)

type cacheStore interface {
	aggregate.CacheStore
	api.CacheManager
	Ping(ctx context.Context) error
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadForServer()
	if err != nil {
		slog.Error("failed to load server config", "error", err)
		os.Exit(1)
	}

	database, err := db.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	store, closeStore, err := newCacheStore(cfg)
	if err != nil {
		slog.Error("failed to initialize cache store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	crypto := providers.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey)
	stocks := providers.NewAlphaVantageClient(cfg.AlphaVantageBaseURL, cfg.AlphaVantageAPIKey)
	aggregator := aggregate.NewService(store, crypto, stocks)
	apiServer := api.NewServer(aggregator, crypto, stocks, database, store, cfg.DefaultWindowSec)

	router := chi.NewRouter()
	router.Use(telemetry.RequestMetricsMiddleware)
	router.Use(api.RequestLogMiddleware(database))
	router.Get("/health", api.Health(database, store))
	router.Handle("/debug/vars", expvar.Handler())
	apiServer.Mount(router)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	slog.Info("aggregator server started", "port", cfg.Port, "cache_backend", cfg.CacheBackend)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serverErrCh:
		slog.Error("aggregator server terminated unexpectedly", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("aggregator server stopped")
}

func newCacheStore(cfg config.Config) (cacheStore, func(), error) {
	if cfg.CacheBackend == config.CacheBackendMemory {
		store := cache.NewMemoryStore(time.Minute)
		return store, store.Close, nil
	}

	store, err := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
