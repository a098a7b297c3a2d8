package dateutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		expectedY   int
		expectedM   time.Month
		expectedD   int
		expectedFmt string
	}{
		{"ISO date", "2025-04-06", false, 2025, time.April, 6, DateLayoutISO},
		{"Full timestamp", "2025-04-06 12:30:45", false, 2025, time.April, 6, DateLayoutFull},
		{"RFC3339", "2025-04-06T12:30:45Z", false, 2025, time.April, 6, time.RFC3339},
		{"European", "06.04.2025", false, 2025, time.April, 6, DateLayoutEuropean},
		{"European short year", "06.04.25", false, 2025, time.April, 6, DateLayoutShortYear},
		{"Month name", "01-Apr-2025", false, 2025, time.April, 1, DateLayoutWithMonth},
		{"Surrounding spaces", "  2025-04-06  ", false, 2025, time.April, 6, DateLayoutISO},
		{"Empty string", "", true, 0, 0, 0, ""},
		{"Garbage", "not a date", true, 0, 0, 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, layout, err := ParseDateTime(tc.input)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedFmt, layout)
			assert.Equal(t, tc.expectedY, parsed.Year())
			assert.Equal(t, tc.expectedM, parsed.Month())
			assert.Equal(t, tc.expectedD, parsed.Day())
		})
	}
}

func TestDisplayParts(t *testing.T) {
	ts := time.Date(2025, time.April, 6, 14, 5, 0, 0, time.UTC) // a Sunday

	weekday, date, clock := DisplayParts(ts)
	assert.Equal(t, "Sunday", weekday)
	assert.Equal(t, "06.04.2025", date)
	assert.Equal(t, "14:05", clock)
}
