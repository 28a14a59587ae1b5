package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeServer Mode = "server"
	ModeWorker Mode = "worker"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config holds service configuration shared by the API server and the
// cache-warm worker.
type Config struct {
	Port string

	DatabaseURL string

	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CoinGeckoBaseURL    string
	CoinGeckoAPIKey     string
	AlphaVantageBaseURL string
	AlphaVantageAPIKey  string

	DefaultWindowSec int
	WarmIntervalSec  int
	WarmWindowSec    int
}

func LoadForServer() (Config, error) {
	return load(ModeServer)
}

func LoadForWorker() (Config, error) {
	return load(ModeWorker)
}

func load(mode Mode) (Config, error) {
	// Best-effort .env load for local development; env vars win in production.
	_ = godotenv.Load()

	cfg := Config{
		Port:                envDefault("PORT", "8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		CacheBackend:        strings.ToLower(envDefault("CACHE_BACKEND", CacheBackendRedis)),
		RedisAddr:           envDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             envDefaultInt("REDIS_DB", 0),
		CoinGeckoBaseURL:    os.Getenv("COINGECKO_BASE_URL"),
		CoinGeckoAPIKey:     os.Getenv("COINGECKO_API_KEY"),
		AlphaVantageBaseURL: os.Getenv("ALPHAVANTAGE_BASE_URL"),
		AlphaVantageAPIKey:  os.Getenv("ALPHAVANTAGE_API_KEY"),
		DefaultWindowSec:    envDefaultInt("DEFAULT_WINDOW_SEC", 60),
		WarmIntervalSec:     envDefaultInt("WARM_INTERVAL_SEC", 300),
		WarmWindowSec:       envDefaultInt("WARM_WINDOW_SEC", 300),
	}

	var validationErrs []string
	requireEnv("DATABASE_URL", cfg.DatabaseURL, &validationErrs)
	requireEnv("ALPHAVANTAGE_API_KEY", cfg.AlphaVantageAPIKey, &validationErrs)

	if cfg.CacheBackend != CacheBackendRedis && cfg.CacheBackend != CacheBackendMemory {
		validationErrs = append(validationErrs, "CACHE_BACKEND must be redis or memory")
	}
	if cfg.CacheBackend == CacheBackendRedis {
		requireEnv("REDIS_ADDR", cfg.RedisAddr, &validationErrs)
	}

	switch mode {
	case ModeServer:
	case ModeWorker:
		// The scheduler ticker panics on a non-positive interval.
		if cfg.WarmIntervalSec <= 0 {
			validationErrs = append(validationErrs, "WARM_INTERVAL_SEC must be positive")
		}
	default:
		validationErrs = append(validationErrs, "unknown service mode")
	}

	if len(validationErrs) > 0 {
		return cfg, errors.New(strings.Join(validationErrs, "; "))
	}

	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDefaultInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	return fallback
}

func requireEnv(name, value string, errs *[]string) {
	if strings.TrimSpace(value) == "" {
		*errs = append(*errs, name+" is required")
	}
}
