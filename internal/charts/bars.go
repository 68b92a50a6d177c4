package charts

import (
	"io"
	"sort"
	"strconv"

	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/internal/dataset"
	"github.com/wcharczuk/go-chart/v2"
)

const (
	barWidth   = 28
	barSpacing = 8
)

// YearlyBar is one bar of the year-over-year chart.
type YearlyBar struct {
	Year   int
	Series int // index of the series, 0 for the fund
	Ratio  float64
}

// YearlyBars interleaves the yearly ratios of several series so the bars of
// one year sit next to each other. Years missing from a series are skipped.
func YearlyBars(returns ...analytics.YearlyReturns) []YearlyBar {
	yearSet := make(map[int]struct{})
	var years []int
	for _, r := range returns {
		for _, y := range r.Years() {
			if _, ok := yearSet[y]; !ok {
				yearSet[y] = struct{}{}
				years = append(years, y)
			}
		}
	}
	sort.Ints(years)

	maps := make([]map[int]float64, len(returns))
	for i, r := range returns {
		maps[i] = r.Map()
	}
	var bars []YearlyBar
	for _, y := range years {
		for i, m := range maps {
			if v, ok := m[y]; ok {
				bars = append(bars, YearlyBar{Year: y, Series: i, Ratio: v})
			}
		}
	}
	return bars
}

// RenderYearly draws the yearly return ratios of the fund and its benchmarks
// as grouped bars. The year label sits under the first bar of each group.
func RenderYearly(w io.Writer, returns []analytics.YearlyReturns, opts Options) error {
	bars := YearlyBars(returns...)
	if len(bars) == 0 {
		return ErrNoData
	}

	values := make([]chart.Value, len(bars))
	ratios := make([]float64, len(bars))
	lastYear := 0
	for i, b := range bars {
		label := ""
		if b.Year != lastYear {
			label = strconv.Itoa(b.Year)
			lastYear = b.Year
		}
		ratios[i] = b.Ratio
		values[i] = chart.Value{
			Label: label,
			Value: b.Ratio,
			Style: chart.Style{FillColor: Color(b.Series), StrokeColor: Color(b.Series)},
		}
	}
	yRange, err := paddedRange(true, ratios)
	if err != nil {
		return err
	}

	width, height := opts.size()
	if need := len(bars)*(barWidth+barSpacing) + 120; need > width {
		width = need
	}
	bc := chart.BarChart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		BarWidth:     barWidth,
		BarSpacing:   barSpacing,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis:        chart.YAxis{Range: yRange, ValueFormatter: percentFormatter(opts.Formatter, 0)},
		Bars:         values,
	}
	return bc.Render(chart.SVG, w)
}

// RenderWeights draws the yearly allocation as stacked bars, one per year,
// with the funds holding weight in that year as segments.
func RenderWeights(w io.Writer, wt *dataset.WeightsTable, opts Options) error {
	if wt == nil {
		return ErrNoData
	}
	var bars []chart.StackedBar
	for _, row := range wt.Rows {
		var segments []chart.Value
		for i, weight := range row.Weights {
			if weight <= 0 {
				continue
			}
			segments = append(segments, chart.Value{
				Label: wt.Funds[i],
				Value: weight,
				Style: chart.Style{FillColor: Color(i), StrokeColor: Color(i)},
			})
		}
		if len(segments) == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{Name: strconv.Itoa(row.Year), Values: segments})
	}
	if len(bars) == 0 {
		return ErrNoData
	}

	width, height := opts.size()
	sbc := chart.StackedBarChart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		BarSpacing: 24,
		Bars:       bars,
	}
	return sbc.Render(chart.SVG, w)
}
