package aggregate

import "strings"

// Classify maps a raw ticker-like string to an asset class without any I/O.
// A symbol is a stock ticker iff, after trimming, it is entirely uppercase
// ASCII letters (dots allowed) and 1-6 letters long once dots are stripped.
// Everything else is treated as a crypto id. This is a deliberate heuristic:
// "BTC" classifies as a stock ticker, and an all-caps string longer than six
// letters classifies as crypto.
func Classify(rawSymbol string) AssetClass {
	symbol := strings.TrimSpace(rawSymbol)
	if symbol == "" {
		return ClassCrypto
	}

	letters := 0
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
		case r == '.':
		default:
			return ClassCrypto
		}
	}
	if letters < 1 || letters > 6 {
		return ClassCrypto
	}
	return ClassStock
}

// CryptoLookupID normalizes a crypto-classified symbol for upstream lookup.
func CryptoLookupID(rawSymbol string) string {
	return strings.ToLower(strings.TrimSpace(rawSymbol))
}
