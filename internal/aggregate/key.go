package aggregate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

const keySchemaVersion = "v1"

// BuildKey derives the cache key for a request. It is a pure function of the
// symbol set and TTL window: token order and duplicate whitespace do not
// change the key, different TTL windows do. The composed string is hashed so
// arbitrarily long symbol lists yield fixed-size keys.
func BuildKey(symbolsCsv string, ttlWindowSeconds int) string {
	symbols := SplitSymbols(symbolsCsv)
	sort.Strings(symbols)

	composed := fmt.Sprintf("agg:%s:%d:%s", keySchemaVersion, ttlWindowSeconds, strings.Join(symbols, ","))
	sum := sha256.Sum256([]byte(composed))
	return fmt.Sprintf("agg:%s:%d:%s", keySchemaVersion, ttlWindowSeconds, hex.EncodeToString(sum[:])[:16])
}

// SplitSymbols parses a CSV of symbols into trimmed, non-empty tokens,
// preserving input order and duplicates.
func SplitSymbols(symbolsCsv string) []string {
	parts := strings.Split(symbolsCsv, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
