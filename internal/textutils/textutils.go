// Package textutils provides text normalization utilities for raw
// notification payloads.
package textutils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	whitespaceRegex    = regexp.MustCompile(`\s+`)
	trailingPunctRegex = regexp.MustCompile(`[.,]+$`)
)

// ParseMoney parses a money string as it appears in bank notifications:
// spaces as thousands separators, comma or dot as the decimal separator.
// Returns false when the input is not a number.
func ParseMoney(raw string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(raw, " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	// Collapse thousand-separator dots: keep only the last dot as decimal.
	if parts := strings.Split(cleaned, "."); len(parts) > 2 {
		cleaned = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

// SanitizeOperatorName collapses whitespace and strips trailing punctuation
// from a raw operator string, preserving the original casing.
func SanitizeOperatorName(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := whitespaceRegex.ReplaceAllString(raw, " ")
	cleaned = trailingPunctRegex.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// NormalizeForMatch lowercases and collapses whitespace for case-insensitive
// directory matching.
func NormalizeForMatch(raw string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(strings.ToLower(raw), " "))
}

// Snippet returns the leading fragment of a raw text for diagnostics,
// truncated on a rune boundary.
func Snippet(raw string, max int) string {
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}
