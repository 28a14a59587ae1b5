package providers

import "fmt"

const (
	SourceCoinGecko    = "coingecko"
	SourceAlphaVantage = "alphavantage"
)

// PriceMap is the batched crypto price response: id -> vs currency -> price.
type PriceMap map[string]map[string]float64

// PricePoint is one observation in a history series, ascending by T (unix ms).
type PricePoint struct {
	T int64   `json:"t"`
	Y float64 `json:"y"`
}

// UpstreamError reports a transport failure or non-2xx status from a provider.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// RateLimitError reports a provider-side throttling signal. Callers map it to
// a 4xx response instead of a generic upstream failure.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit: %s", e.Provider, e.Message)
}
