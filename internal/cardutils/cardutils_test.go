package cardutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLast4(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain digits", "1234", "1234"},
		{"Star prefix", "*5678", "5678"},
		{"Triple star prefix", "***9012", "9012"},
		{"Full PAN keeps last four", "8600123412345678", "5678"},
		{"Mixed separators", "86-00 1234", "1234"},
		{"Fewer than four digits", "77", "77"},
		{"No digits", "card", ""},
		{"Empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeLast4(tc.input))
		})
	}
}
