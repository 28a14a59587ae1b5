package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gregfu05/api-aggregator/internal/aggregate"
	"github.com/gregfu05/api-aggregator/internal/cache"
	"github.com/gregfu05/api-aggregator/internal/config"
	"github.com/gregfu05/api-aggregator/internal/db"
	"github.com/gregfu05/api-aggregator/internal/providers"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadForWorker()
	if err != nil {
		slog.Error("failed to load worker config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	var store aggregate.CacheStore
	if cfg.CacheBackend == config.CacheBackendMemory {
		// A memory cache is process-local; warming it from a separate worker
		// is pointless, so the worker insists on the shared backend.
		slog.Error("worker requires CACHE_BACKEND=redis")
		os.Exit(1)
	}
	redisStore, err := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("failed to initialize cache store", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	store = redisStore

	crypto := providers.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey)
	stocks := providers.NewAlphaVantageClient(cfg.AlphaVantageBaseURL, cfg.AlphaVantageAPIKey)
	aggregator := aggregate.NewService(store, crypto, stocks)
	warmer := aggregate.NewWarmer(database, aggregator, cfg.WarmWindowSec, slog.Default())

	interval := time.Duration(cfg.WarmIntervalSec) * time.Second
	scheduler := aggregate.NewScheduler(interval, func(ctx context.Context) error {
		if err := warmer.Warm(ctx); err != nil {
			// Upstream trouble should not kill the loop; only cancellation does.
			slog.Warn("cache warm failed", "error", err)
		}
		return ctx.Err()
	})

	slog.Info("cache warm worker started", "interval", interval.String(), "window_sec", cfg.WarmWindowSec)

	if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("cache warm worker stopped")
}
