// Package cardutils normalizes card identifiers found in notification texts.
package cardutils

import "strings"

// NormalizeLast4 strips non-digits from the input and keeps the last four
// digits. Returns "" when no digits remain, which the pipeline treats as an
// unknown card.
func NormalizeLast4(input string) string {
	var digits strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()
	if cleaned == "" {
		return ""
	}
	if len(cleaned) > 4 {
		return cleaned[len(cleaned)-4:]
	}
	return cleaned
}
