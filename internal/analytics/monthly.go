package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"gonum.org/v1/gonum/stat"
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// Before orders year-months chronologically.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// MonthlyMean is the average level of a series within one calendar month.
type MonthlyMean struct {
	YearMonth
	Mean float64 `json:"mean"`
}

// MonthlyChange is the change of the monthly mean against the previous
// available month of the same series.
type MonthlyChange struct {
	YearMonth
	Change float64 `json:"change"`
}

// MonthlySpread is the relative performance of the fund against the benchmark
// in one month: (1+fund)/(1+benchmark) - 1.
type MonthlySpread struct {
	YearMonth
	Fund      float64 `json:"fund"`
	Benchmark float64 `json:"benchmark"`
	Spread    float64 `json:"spread"`
}

// MonthlyMeans resamples series to one mean per calendar month, in date order.
func MonthlyMeans(series PriceSeries) []MonthlyMean {
	var out []MonthlyMean
	n := series.Len()
	for i := 0; i < n; {
		first := series.points[i].Date
		j := i
		for j < n && series.points[j].Date.Year() == first.Year() && series.points[j].Date.Month() == first.Month() {
			j++
		}
		values := make([]float64, 0, j-i)
		for _, p := range series.points[i:j] {
			values = append(values, p.Value)
		}
		out = append(out, MonthlyMean{
			YearMonth: YearMonth{Year: first.Year(), Month: first.Month()},
			Mean:      stat.Mean(values, nil),
		})
		i = j
	}
	return out
}

// MonthlyChanges computes the percentage change of consecutive monthly means.
// The first month has no predecessor and is dropped. A month missing from the
// series is skipped, so the next change is taken against the last month
// present.
func MonthlyChanges(means []MonthlyMean) []MonthlyChange {
	if len(means) < 2 {
		return nil
	}
	out := make([]MonthlyChange, 0, len(means)-1)
	for i := 1; i < len(means); i++ {
		out = append(out, MonthlyChange{
			YearMonth: means[i].YearMonth,
			Change:    means[i].Mean/means[i-1].Mean - 1,
		})
	}
	return out
}

// MonthlySpreads joins the monthly changes of fund and benchmark on the months
// present in both and computes the relative spread.
func MonthlySpreads(fund, benchmark PriceSeries) []MonthlySpread {
	benchChanges := make(map[YearMonth]float64)
	for _, c := range MonthlyChanges(MonthlyMeans(benchmark)) {
		benchChanges[c.YearMonth] = c.Change
	}

	var out []MonthlySpread
	for _, c := range MonthlyChanges(MonthlyMeans(fund)) {
		b, ok := benchChanges[c.YearMonth]
		if !ok {
			continue
		}
		out = append(out, MonthlySpread{
			YearMonth: c.YearMonth,
			Fund:      c.Change,
			Benchmark: b,
			Spread:    (1+c.Change)/(1+b) - 1,
		})
	}
	return out
}

// SpreadPivot is a month-by-year table of monthly spreads. Rows are always
// the twelve calendar months in order; columns are the years present in the
// data. Cells with no underlying data hold 0 and a false Present flag: the
// zero is a display choice and is indistinguishable from a true zero spread
// unless Present is consulted.
type SpreadPivot struct {
	Months  []time.Month `json:"months"`
	Years   []int        `json:"years"`
	Cells   [][]float64  `json:"cells"`
	Present [][]bool     `json:"present"`
}

// MonthlySpreadPivot resamples both series to monthly means, computes their
// month-over-month changes and pivots the relative spread into a 12-row table.
func MonthlySpreadPivot(fund, benchmark PriceSeries) SpreadPivot {
	return PivotSpreads(MonthlySpreads(fund, benchmark))
}

// PivotSpreads arranges spreads into a SpreadPivot, filling gaps with 0.
func PivotSpreads(spreads []MonthlySpread) SpreadPivot {
	yearSet := make(map[int]struct{})
	for _, s := range spreads {
		yearSet[s.Year] = struct{}{}
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)
	column := make(map[int]int, len(years))
	for i, y := range years {
		column[y] = i
	}

	pivot := SpreadPivot{
		Months:  make([]time.Month, constants.MonthsPerYear),
		Years:   years,
		Cells:   make([][]float64, constants.MonthsPerYear),
		Present: make([][]bool, constants.MonthsPerYear),
	}
	for m := 0; m < constants.MonthsPerYear; m++ {
		pivot.Months[m] = time.Month(m + 1)
		pivot.Cells[m] = make([]float64, len(years))
		pivot.Present[m] = make([]bool, len(years))
	}
	for _, s := range spreads {
		row := int(s.Month) - 1
		col := column[s.Year]
		pivot.Cells[row][col] = s.Spread
		pivot.Present[row][col] = true
	}
	return pivot
}

// Cell returns the spread for month and year and whether it came from data.
// Years outside the pivot yield 0, false.
func (p SpreadPivot) Cell(month time.Month, year int) (float64, bool) {
	row := int(month) - 1
	if row < 0 || row >= len(p.Cells) {
		return 0, false
	}
	for col, y := range p.Years {
		if y == year {
			return p.Cells[row][col], p.Present[row][col]
		}
	}
	return 0, false
}

var monthLabels = map[string][]string{
	"en": {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	"pt": {"JAN", "FEV", "MAR", "ABR", "MAI", "JUN", "JUL", "AGO", "SET", "OUT", "NOV", "DEZ"},
}

// MonthLabels returns the twelve row labels for a language ("en" or "pt",
// region subtags ignored). Unknown languages get English labels.
func MonthLabels(lang string) []string {
	base := strings.ToLower(lang)
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}
	labels, ok := monthLabels[base]
	if !ok {
		labels = monthLabels["en"]
	}
	return append([]string(nil), labels...)
}
