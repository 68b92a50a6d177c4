// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/moria-dashboard/pkg/constants"
)

const (
	// DateLayout is the canonical date format used across the dashboard.
	DateLayout = constants.DateLayout
)

// InputLayouts lists the date formats accepted in price tables, in the order
// they are tried. Day-first is preferred over month-first for slash dates, as
// exported by Brazilian administrators.
var InputLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"2006/01/02",
	"20060102",
}

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// MustDate parses a canonical date and panics on error.
func MustDate(dateStr string) time.Time {
	return MustParseTime(DateLayout, dateStr)
}

// ParseDate parses a date in any of the InputLayouts and truncates it to a
// UTC calendar day.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range InputLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// Day strips the clock and location of t.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t in the canonical layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
