package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a normalized market-data snapshot for one symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	DayHigh   decimal.Decimal `json:"day_high"`
	DayLow    decimal.Decimal `json:"day_low"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// DedupSymbols normalizes symbols and removes duplicates and blanks,
// keeping first-seen order.
func DedupSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
