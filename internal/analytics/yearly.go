package analytics

import (
	"github.com/iwvelando/moria-dashboard/pkg/mathutil"
)

// YearlyReturn is the total return of one calendar year.
type YearlyReturn struct {
	Year  int     `json:"year"`
	Ratio float64 `json:"ratio"`
}

// YearlyReturns is ordered by ascending year.
type YearlyReturns []YearlyReturn

// Map returns the ratios keyed by year.
func (y YearlyReturns) Map() map[int]float64 {
	m := make(map[int]float64, len(y))
	for _, r := range y {
		m[r.Year] = r.Ratio
	}
	return m
}

// Years returns the years in ascending order.
func (y YearlyReturns) Years() []int {
	years := make([]int, len(y))
	for i, r := range y {
		years[i] = r.Year
	}
	return years
}

// YearlyReturnRatios groups series by calendar year and computes
// last/first - 1 per year, rounded to decimals places. A year with a single
// observation yields 0.
func YearlyReturnRatios(series PriceSeries, decimals int) YearlyReturns {
	var out YearlyReturns
	n := series.Len()
	for i := 0; i < n; {
		year := series.points[i].Date.Year()
		j := i
		for j+1 < n && series.points[j+1].Date.Year() == year {
			j++
		}
		ratio := series.points[j].Value/series.points[i].Value - 1
		out = append(out, YearlyReturn{Year: year, Ratio: mathutil.RoundTo(ratio, decimals)})
		i = j + 1
	}
	return out
}
