// Package dateutils provides common date and time operations used throughout the application.
package dateutils

import (
	"fmt"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutFull      = "2006-01-02 15:04:05"
	DateLayoutEuropean  = "02.01.2006"
	DateLayoutShortYear = "02.01.06"
	DateLayoutWithMonth = "02-Jan-2006"
)

// CommonFormats is a list of formats seen in bank notification texts,
// ordered from most to least specific.
var CommonFormats = []string{
	time.RFC3339,
	DateLayoutFull,
	"2006-01-02 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	DateLayoutISO,
	DateLayoutEuropean,
	DateLayoutShortYear,
	DateLayoutWithMonth,
	"02-01-2006",
	"06-01-02",
}

// ParseDateTime attempts to parse a datetime string using the common
// notification formats. Returns the parsed time and the matched layout.
func ParseDateTime(raw string) (time.Time, string, error) {
	cleaned := strings.TrimSpace(raw)
	for _, format := range CommonFormats {
		if t, err := time.Parse(format, cleaned); err == nil {
			return t, format, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unable to parse datetime: %s", raw)
}

// DisplayParts splits a timestamp into the weekday, date and time strings
// shown in the spreadsheet grid.
func DisplayParts(t time.Time) (weekday, date, clock string) {
	return t.Weekday().String(), t.Format(DateLayoutEuropean), t.Format("15:04")
}
