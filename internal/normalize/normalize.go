// Package normalize converts locale-formatted numeric and date strings from
// scraped markets pages into canonical values.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var numberCleaner = strings.NewReplacer(
	" ", " ", // NBSP
	" ", " ", // narrow NBSP
)

// Number parses a locale-formatted numeric string. Spaces (including
// non-breaking variants), thousands-separator commas and a trailing percent
// sign are stripped before parsing. Malformed input degrades to nil, never
// to an error.
func Number(s string) *float64 {
	s = numberCleaner.Replace(s)
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// DecimalCommaNumber parses numbers written with a decimal comma
// ("1,23" -> 1.23) as used on es.investing.com. A value with both thousands
// dots and a decimal comma degrades to nil, matching the original behavior.
func DecimalCommaNumber(s string) *float64 {
	return Number(strings.ReplaceAll(s, ",", "."))
}

// Short-form date layouts tried in order: four-digit year, two-digit year,
// then no year (current year assumed).
var shortDateLayouts = []string{"02/01/2006", "02/01/06", "02/01"}

// ShortDate parses DD/MM/YYYY, DD/MM/YY or DD/MM. The year-less form
// assumes the current year. Returns an error when no layout matches;
// callers degrade to a missing date rather than propagating.
func ShortDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range shortDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if layout == "02/01" {
			month, day := t.Month(), t.Day()
			t = time.Date(time.Now().Year(), month, day, 0, 0, 0, 0, time.UTC)
			// time.Date normalizes an invalid day (Feb 29 in a non-leap
			// year) into the next month; reject instead of shifting.
			if t.Month() != month || t.Day() != day {
				continue
			}
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date format: %q", s)
}
