// Package analytics implements the return and volatility computations behind
// the dashboard charts. Every function is a pure, single pass over an
// in-memory series; none of them touch the filesystem or log.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/iwvelando/moria-dashboard/pkg/datetime"
)

// Point is one dated observation of a series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PriceSeries is an immutable, date-ascending sequence of strictly positive
// price levels for one instrument.
type PriceSeries struct {
	name   string
	points []Point
}

// NewPriceSeries validates points and builds a PriceSeries. Dates must be
// unique and ascending; values must be finite and strictly positive.
func NewPriceSeries(name string, points []Point) (PriceSeries, error) {
	copied := make([]Point, len(points))
	for i, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Value <= 0 {
			return PriceSeries{}, fmt.Errorf("%w: series %q has value %v at %s",
				ErrInvalidSeries, name, p.Value, datetime.FormatDate(p.Date))
		}
		day := datetime.Day(p.Date)
		if i > 0 && !day.After(copied[i-1].Date) {
			return PriceSeries{}, fmt.Errorf("%w: series %q dates not strictly ascending at %s",
				ErrInvalidSeries, name, datetime.FormatDate(day))
		}
		copied[i] = Point{Date: day, Value: p.Value}
	}
	return PriceSeries{name: name, points: copied}, nil
}

// MustPriceSeries is NewPriceSeries for fixtures known to be valid.
func MustPriceSeries(name string, points []Point) PriceSeries {
	s, err := NewPriceSeries(name, points)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the instrument name.
func (s PriceSeries) Name() string { return s.name }

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.points) }

// Empty reports whether the series has no observations.
func (s PriceSeries) Empty() bool { return len(s.points) == 0 }

// At returns the i-th observation.
func (s PriceSeries) At(i int) Point { return s.points[i] }

// Points returns a copy of the observations.
func (s PriceSeries) Points() []Point {
	return append([]Point(nil), s.points...)
}

// Dates returns the series index.
func (s PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.points))
	for i, p := range s.points {
		dates[i] = p.Date
	}
	return dates
}

// Values returns the price levels in date order.
func (s PriceSeries) Values() []float64 {
	values := make([]float64, len(s.points))
	for i, p := range s.points {
		values[i] = p.Value
	}
	return values
}

// IndexOf returns the position of date in the series index.
func (s PriceSeries) IndexOf(date time.Time) (int, bool) {
	day := datetime.Day(date)
	i := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Date.Before(day)
	})
	if i < len(s.points) && s.points[i].Date.Equal(day) {
		return i, true
	}
	return i, false
}

// Between returns the inclusive sub-series [start, end]. Both dates must be
// present in the index.
func (s PriceSeries) Between(start, end time.Time) (PriceSeries, error) {
	if s.Empty() {
		return PriceSeries{}, fmt.Errorf("%w: series %q is empty", ErrRange, s.name)
	}
	if end.Before(start) {
		return PriceSeries{}, fmt.Errorf("%w: start %s is after end %s",
			ErrRange, datetime.FormatDate(start), datetime.FormatDate(end))
	}
	i, ok := s.IndexOf(start)
	if !ok {
		return PriceSeries{}, fmt.Errorf("%w: start %s not in series %q",
			ErrRange, datetime.FormatDate(start), s.name)
	}
	j, ok := s.IndexOf(end)
	if !ok {
		return PriceSeries{}, fmt.Errorf("%w: end %s not in series %q",
			ErrRange, datetime.FormatDate(end), s.name)
	}
	return PriceSeries{name: s.name, points: s.points[i : j+1]}, nil
}

// Within returns the observations dated inside [start, end]. Unlike Between
// the bounds need not be in the index; a zero bound is open. An empty result
// is ErrRange.
func (s PriceSeries) Within(start, end time.Time) (PriceSeries, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return PriceSeries{}, fmt.Errorf("%w: start %s is after end %s",
			ErrRange, datetime.FormatDate(start), datetime.FormatDate(end))
	}
	i, j := 0, len(s.points)
	if !start.IsZero() {
		i, _ = s.IndexOf(start)
	}
	if !end.IsZero() {
		day := datetime.Day(end)
		j = sort.Search(len(s.points), func(k int) bool {
			return s.points[k].Date.After(day)
		})
	}
	if i >= j {
		return PriceSeries{}, fmt.Errorf("%w: series %q has no observations between %s and %s",
			ErrRange, s.name, formatBound(start), formatBound(end))
	}
	return PriceSeries{name: s.name, points: s.points[i:j]}, nil
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return datetime.FormatDate(t)
}

// Scale multiplies every value by factor, which must be positive.
func (s PriceSeries) Scale(factor float64) (PriceSeries, error) {
	points := make([]Point, len(s.points))
	for i, p := range s.points {
		points[i] = Point{Date: p.Date, Value: p.Value * factor}
	}
	return NewPriceSeries(s.name, points)
}

// PercentChanges returns the day-over-day simple returns. The result has one
// element fewer than the series; element i is the change into observation i+1.
func (s PriceSeries) PercentChanges() []float64 {
	if len(s.points) < 2 {
		return nil
	}
	changes := make([]float64, len(s.points)-1)
	for i := 1; i < len(s.points); i++ {
		changes[i-1] = s.points[i].Value/s.points[i-1].Value - 1
	}
	return changes
}

// CumulativeReturn returns last/first - 1 over the whole series, or 0 when
// the series has fewer than two observations.
func CumulativeReturn(s PriceSeries) float64 {
	if len(s.points) < 2 {
		return 0
	}
	return s.points[len(s.points)-1].Value/s.points[0].Value - 1
}
