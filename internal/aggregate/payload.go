package aggregate

import "time"

type AssetClass string

const (
	ClassCrypto AssetClass = "crypto"
	ClassStock  AssetClass = "stock"
)

type CacheStatus string

const (
	CacheHit  CacheStatus = "hit"
	CacheMiss CacheStatus = "miss"
)

// AssetRecord is one normalized price observation. Symbol keeps the caller's
// original casing; AsOf is the upstream-reported trading time when available,
// otherwise the request time.
type AssetRecord struct {
	Symbol string     `json:"symbol"`
	Class  AssetClass `json:"type"`
	Price  float64    `json:"price"`
	Source string     `json:"source"`
	AsOf   string     `json:"asOf"`
}

type SourceCount struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
}

// Meta describes how the payload was produced. Cache reflects the lookup
// outcome of the current request and is never persisted with the payload.
type Meta struct {
	Cache    CacheStatus   `json:"cache"`
	Sources  []SourceCount `json:"sources"`
	Warnings []string      `json:"warnings"`
}

// Payload is both the wire response and the cached value. GeneratedAt is set
// at fetch time and deliberately not refreshed on a cache hit.
type Payload struct {
	GeneratedAt time.Time     `json:"timestamp"`
	Assets      []AssetRecord `json:"assets"`
	Meta        Meta          `json:"meta"`
}
