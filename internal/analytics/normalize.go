package analytics

import (
	"fmt"
	"time"

	"github.com/iwvelando/moria-dashboard/pkg/datetime"
	"github.com/iwvelando/moria-dashboard/pkg/mathutil"
)

// NormalizedSeries is a series rebased so its first value is exactly 1.
type NormalizedSeries struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Normalize divides every value of series in the inclusive range [start, end]
// by the first value of that range.
func Normalize(series PriceSeries, start, end time.Time) (NormalizedSeries, error) {
	ranged, err := series.Between(start, end)
	if err != nil {
		return NormalizedSeries{}, err
	}
	return rebase(series.Name(), ranged.points)
}

func rebase(name string, points []Point) (NormalizedSeries, error) {
	if len(points) == 0 {
		return NormalizedSeries{}, fmt.Errorf("%w: series %q has no observations in range", ErrRange, name)
	}
	base := points[0].Value
	if base <= 0 || !mathutil.IsFinite(base) {
		return NormalizedSeries{}, fmt.Errorf("%w: series %q starts at %v on %s",
			ErrDegenerateRange, name, base, datetime.FormatDate(points[0].Date))
	}

	out := NormalizedSeries{Name: name, Points: make([]Point, len(points))}
	for i, p := range points {
		v := p.Value / base
		if !mathutil.IsFinite(v) {
			return NormalizedSeries{}, fmt.Errorf("%w: series %q value %v on %s",
				ErrDegenerateRange, name, p.Value, datetime.FormatDate(p.Date))
		}
		out.Points[i] = Point{Date: p.Date, Value: v}
	}
	out.Points[0].Value = 1
	return out, nil
}

// Values returns the rebased levels in date order.
func (n NormalizedSeries) Values() []float64 {
	values := make([]float64, len(n.Points))
	for i, p := range n.Points {
		values[i] = p.Value
	}
	return values
}

// Dates returns the dates of the rebased levels.
func (n NormalizedSeries) Dates() []time.Time {
	dates := make([]time.Time, len(n.Points))
	for i, p := range n.Points {
		dates[i] = p.Date
	}
	return dates
}
