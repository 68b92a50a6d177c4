// Package testutil provides common utility functions for testing.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// WriteFile writes contents under dir and returns the full path.
func WriteFile(t testing.TB, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// BusinessDays returns n weekdays starting at start (or the next weekday).
func BusinessDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for len(days) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return days
}

// GrowthPath returns n prices starting at base and compounding the daily
// rates in turn, cycling through them.
func GrowthPath(base float64, n int, rates ...float64) []float64 {
	if len(rates) == 0 {
		rates = []float64{0}
	}
	values := make([]float64, n)
	v := base
	for i := range values {
		if i > 0 {
			v *= 1 + rates[(i-1)%len(rates)]
		}
		values[i] = v
	}
	return values
}

// PriceCSV renders a price table with a DATA index column. NaN values are
// written as empty cells.
func PriceCSV(dates []time.Time, columns map[string][]float64, order ...string) string {
	var b strings.Builder
	b.WriteString("DATA")
	for _, name := range order {
		b.WriteString(",")
		b.WriteString(name)
	}
	b.WriteString("\n")
	for i, d := range dates {
		b.WriteString(d.Format("2006-01-02"))
		for _, name := range order {
			b.WriteString(",")
			if v := columns[name][i]; !math.IsNaN(v) {
				b.WriteString(fmt.Sprintf("%.6f", v))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SamplePriceCSV renders n business days of a steadily growing fund and
// benchmark starting 2023-01-02.
func SamplePriceCSV(n int) string {
	dates := BusinessDays(time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC), n)
	return PriceCSV(dates, map[string][]float64{
		"Fundo": GrowthPath(100, n, 0.002, -0.001, 0.0015),
		"CDI":   GrowthPath(100, n, 0.0004),
	}, "Fundo", "CDI")
}
