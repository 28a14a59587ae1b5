package db

import "time"

type AssetType string

const (
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeStock  AssetType = "stock"
)

// Asset is one entry of the user-managed watch list, keyed by symbol.
type Asset struct {
	Symbol    string    `json:"symbol"`
	Type      AssetType `json:"type"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	AddedAt   time.Time `json:"addedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AssetUpdate carries the mutable asset fields; nil means leave unchanged.
type AssetUpdate struct {
	Type   *AssetType
	Name   *string
	Active *bool
}

type RequestLog struct {
	RequestID  string    `json:"requestId"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Query      string    `json:"query"`
	Status     int       `json:"status"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}
