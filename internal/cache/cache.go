// Package cache is a passive TTL key-value store for aggregate payloads.
// It holds no business logic: the aggregator is the sole writer, and an
// expired entry is treated as absent on read even before the backing store
// physically purges it.
package cache

import (
	"encoding/json"
	"time"
)

type Entry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (e Entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
