package config

import (
	"strings"
	"testing"
)

// clearEnv blanks every variable load reads so tests do not inherit values
// from the host environment. t.Setenv restores the originals afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT",
		"DATABASE_URL",
		"CACHE_BACKEND",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"COINGECKO_BASE_URL",
		"COINGECKO_API_KEY",
		"ALPHAVANTAGE_BASE_URL",
		"ALPHAVANTAGE_API_KEY",
		"DEFAULT_WINDOW_SEC",
		"WARM_INTERVAL_SEC",
		"WARM_WINDOW_SEC",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadForServerDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/aggregator")
	t.Setenv("ALPHAVANTAGE_API_KEY", "test-key")

	cfg, err := LoadForServer()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.CacheBackend != CacheBackendRedis {
		t.Fatalf("expected redis default backend, got %q", cfg.CacheBackend)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected default redis addr, got %q", cfg.RedisAddr)
	}
	if cfg.DefaultWindowSec != 60 {
		t.Fatalf("expected default window 60, got %d", cfg.DefaultWindowSec)
	}
	if cfg.WarmIntervalSec != 300 || cfg.WarmWindowSec != 300 {
		t.Fatalf("expected warm defaults 300/300, got %d/%d", cfg.WarmIntervalSec, cfg.WarmWindowSec)
	}
}

func TestLoadRequiredVariables(t *testing.T) {
	clearEnv(t)

	_, err := LoadForServer()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL is required") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
	if !strings.Contains(err.Error(), "ALPHAVANTAGE_API_KEY is required") {
		t.Fatalf("expected ALPHAVANTAGE_API_KEY error, got %v", err)
	}
}

func TestLoadRejectsUnknownCacheBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/aggregator")
	t.Setenv("ALPHAVANTAGE_API_KEY", "test-key")
	t.Setenv("CACHE_BACKEND", "memcached")

	_, err := LoadForServer()
	if err == nil || !strings.Contains(err.Error(), "CACHE_BACKEND must be redis or memory") {
		t.Fatalf("expected cache backend error, got %v", err)
	}
}

func TestLoadMemoryBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/aggregator")
	t.Setenv("ALPHAVANTAGE_API_KEY", "test-key")
	t.Setenv("CACHE_BACKEND", "MEMORY")

	cfg, err := LoadForWorker()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.CacheBackend != CacheBackendMemory {
		t.Fatalf("expected lowercased memory backend, got %q", cfg.CacheBackend)
	}
}

func TestLoadWorkerRejectsNonPositiveWarmInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/aggregator")
	t.Setenv("ALPHAVANTAGE_API_KEY", "test-key")
	t.Setenv("WARM_INTERVAL_SEC", "0")

	_, err := LoadForWorker()
	if err == nil || !strings.Contains(err.Error(), "WARM_INTERVAL_SEC must be positive") {
		t.Fatalf("expected warm interval error, got %v", err)
	}

	// The server does not run the warm scheduler, so it stays indifferent.
	if _, err := LoadForServer(); err != nil {
		t.Fatalf("expected no error for server mode, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/aggregator")
	t.Setenv("ALPHAVANTAGE_API_KEY", "test-key")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DEFAULT_WINDOW_SEC", "120")

	cfg, err := LoadForServer()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "9090" || cfg.RedisDB != 3 || cfg.DefaultWindowSec != 120 {
		t.Fatalf("expected overrides applied, got %+v", cfg)
	}
}

func TestLoadIgnoresBadIntegers(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/aggregator")
	t.Setenv("ALPHAVANTAGE_API_KEY", "test-key")
	t.Setenv("REDIS_DB", "three")

	cfg, err := LoadForServer()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("expected fallback redis db, got %d", cfg.RedisDB)
	}
}
