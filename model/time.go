package model

import (
	"fmt"
	"time"
)

// The catalog reports acquisition times in several RFC 3339 variants: with or
// without fractional seconds and sometimes without a zone designator. Parsing
// is lenient and always yields UTC.

// CatalogTimeFormat is the layout used when writing times back out
const CatalogTimeFormat = "2006-01-02T15:04:05.999999999Z"

// DateFormat is the day-granularity layout used for search ranges and composite keys
const DateFormat = "2006-01-02"

var catalogTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	DateFormat,
}

// ParseCatalogTime is a drop-in replacement for time.Parse, matching against the time formats the catalog uses
func ParseCatalogTime(value string) (time.Time, error) {
	for _, layout := range catalogTimeLayouts {
		if output, err := time.Parse(layout, value); err == nil {
			return output.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("Date could not be parsed by any expected time format: `%s`", value)
}

// FormatDate returns the UTC calendar date of t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not in YYYY-MM-DD format", value)
	}
	return t, nil
}
