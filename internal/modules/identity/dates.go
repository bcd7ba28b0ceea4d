// Package identity provides the deterministic identity cross-checker:
// declared applicant fields are compared against machine-extracted
// travel-document fields without any external calls.
package identity

import (
	"strings"
	"time"
)

// dateFormats are tried in order. Covers ISO, European day-first, and the
// JavaScript Date.toString() form that browser-filled forms produce.
var dateFormats = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// mrzDateFormat is the 6-digit YYMMDD form travel documents carry.
const mrzDateFormat = "060102"

// NormalizeDate parses a birth date written in any of the supported formats
// and returns its calendar day in UTC. Unparseable input normalizes to the
// zero time (the "unknown" sentinel); it never returns an error, because a
// malformed date is a mismatch to report, not a failure.
func NormalizeDate(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}

	// Browser date strings append "(Central European Standard Time)" etc.
	if idx := strings.Index(s, "("); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return truncateToDay(t)
		}
	}

	// MRZ birth dates are YYMMDD; two-digit years in the future roll back
	// a century (a birth date cannot be ahead of today).
	if len(s) == 6 {
		if t, err := time.Parse(mrzDateFormat, s); err == nil {
			if t.After(time.Now()) {
				t = t.AddDate(-100, 0, 0)
			}
			return truncateToDay(t)
		}
	}

	return time.Time{}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DatesEqual compares two normalized dates. The unknown sentinel is only
// equal to itself, so one unparseable side always mismatches.
func DatesEqual(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	return a.Equal(b)
}
