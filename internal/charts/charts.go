// Package charts renders the dashboard figures as SVG with go-chart.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/pkg/format"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData reports a chart with too few points to draw.
var ErrNoData = errors.New("not enough data to draw chart")

const (
	defaultWidth  = 960
	defaultHeight = 420
)

// palette holds the line colours in series order; the fund comes first.
var palette = []drawing.Color{
	drawing.ColorFromHex("1f4e79"),
	drawing.ColorFromHex("9e9e9e"),
	drawing.ColorFromHex("c0504d"),
	drawing.ColorFromHex("9bbb59"),
	drawing.ColorFromHex("8064a2"),
	drawing.ColorFromHex("f79646"),
	drawing.ColorFromHex("4bacc6"),
}

// Color returns the palette colour of the i-th series.
func Color(i int) drawing.Color {
	return palette[i%len(palette)]
}

// Options controls chart size and labels.
type Options struct {
	Title     string
	Width     int
	Height    int
	Formatter format.Formatter
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
	}
}

func dashedStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor:     col,
		StrokeWidth:     1.5,
		StrokeDashArray: []float64{6, 4},
	}
}

func percentFormatter(f format.Formatter, decimals int) chart.ValueFormatter {
	return func(v interface{}) string {
		if x, ok := v.(float64); ok {
			return f.Percent(x, decimals)
		}
		return ""
	}
}

func ratioFormatter(f format.Formatter) chart.ValueFormatter {
	return func(v interface{}) string {
		if x, ok := v.(float64); ok {
			return f.Number(x, 2)
		}
		return ""
	}
}

// paddedRange returns a y range enclosing every finite value with 5% margin.
// A flat series gets a unit-width window so the chart never degenerates.
func paddedRange(includeZero bool, values ...[]float64) (*chart.ContinuousRange, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return nil, ErrNoData
	}
	if includeZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(hi), 1) * 0.1
	}
	return &chart.ContinuousRange{Min: lo - span*0.05, Max: hi + span*0.05}, nil
}

func constantLine(name string, dates []time.Time, value float64, style chart.Style) chart.TimeSeries {
	ys := make([]float64, len(dates))
	for i := range ys {
		ys[i] = value
	}
	return chart.TimeSeries{Name: name, XValues: dates, YValues: ys, Style: style}
}

func render(ch chart.Chart, w io.Writer) error {
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("failed to render %q: %w", ch.Title, err)
	}
	return nil
}

// RenderCumulative draws normalized series as lines starting at 1.0.
func RenderCumulative(w io.Writer, lines []analytics.NormalizedSeries, opts Options) error {
	var series []chart.Series
	var all [][]float64
	for i, l := range lines {
		if len(l.Points) < 2 {
			continue
		}
		values := l.Values()
		all = append(all, values)
		series = append(series, chart.TimeSeries{
			Name:    l.Name,
			XValues: l.Dates(),
			YValues: values,
			Style:   lineStyle(Color(i)),
		})
	}
	if len(series) == 0 {
		return ErrNoData
	}
	yRange, err := paddedRange(false, all...)
	if err != nil {
		return err
	}

	width, height := opts.size()
	return render(chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("01/2006")},
		YAxis:  chart.YAxis{Range: yRange, ValueFormatter: ratioFormatter(opts.Formatter)},
		Series: series,
	}, w)
}

// RenderVolatility draws the rolling volatility with its average and policy
// bands as dashed reference lines. Warm-up points without a value are left
// out of the line.
func RenderVolatility(w io.Writer, name string, rv analytics.RollingVolatility, opts Options) error {
	var dates []time.Time
	var values []float64
	for _, p := range rv.Points {
		if !p.Valid() {
			continue
		}
		dates = append(dates, p.Date)
		values = append(values, p.Value)
	}
	if len(dates) < 2 {
		return ErrNoData
	}

	b := rv.Bands
	yRange, err := paddedRange(true, values, []float64{b.Average, b.Low, b.Target, b.High})
	if err != nil {
		return err
	}

	width, height := opts.size()
	f := opts.Formatter
	return render(chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("01/2006")},
		YAxis: chart.YAxis{Range: yRange, ValueFormatter: percentFormatter(f, 0)},
		Series: []chart.Series{
			chart.TimeSeries{Name: name, XValues: dates, YValues: values, Style: lineStyle(Color(0))},
			constantLine("Média "+f.Percent(b.Average, 1), dates, b.Average, dashedStyle(Color(1))),
			constantLine("Mín "+f.Percent(b.Low, 0), dates, b.Low, dashedStyle(Color(3))),
			constantLine("Alvo "+f.Percent(b.Target, 0), dates, b.Target, dashedStyle(Color(5))),
			constantLine("Máx "+f.Percent(b.High, 0), dates, b.High, dashedStyle(Color(2))),
		},
	}, w)
}
