package analytics

import (
	"testing"
	"time"

	"github.com/iwvelando/moria-dashboard/pkg/datetime"
)

// daily builds a series with one observation per calendar day from start.
func daily(t *testing.T, name, start string, values ...float64) PriceSeries {
	t.Helper()
	first := datetime.MustDate(start)
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Date: first.AddDate(0, 0, i), Value: v}
	}
	s, err := NewPriceSeries(name, points)
	if err != nil {
		t.Fatalf("failed to build series %s: %v", name, err)
	}
	return s
}

// dated builds a series from "YYYY-MM-DD" keys given in ascending order.
func dated(t *testing.T, name string, dates []string, values []float64) PriceSeries {
	t.Helper()
	if len(dates) != len(values) {
		t.Fatalf("dates and values differ in length: %d vs %d", len(dates), len(values))
	}
	points := make([]Point, len(values))
	for i := range values {
		points[i] = Point{Date: datetime.MustDate(dates[i]), Value: values[i]}
	}
	s, err := NewPriceSeries(name, points)
	if err != nil {
		t.Fatalf("failed to build series %s: %v", name, err)
	}
	return s
}

func day(s string) time.Time {
	return datetime.MustDate(s)
}
