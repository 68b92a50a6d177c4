package charts

import (
	"math"

	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"github.com/iwvelando/moria-dashboard/pkg/format"
	"github.com/iwvelando/moria-dashboard/pkg/mathutil"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Diverging red-yellow-green scale.
var (
	heatRed    = drawing.ColorFromHex("d73027")
	heatYellow = drawing.ColorFromHex("ffffbf")
	heatGreen  = drawing.ColorFromHex("1a9850")
	heatEmpty  = drawing.ColorFromHex("f2f2f2")
)

// HeatmapColor maps a spread onto the red-yellow-green scale centred at 0 and
// saturating at the heatmap bounds.
func HeatmapColor(v float64) drawing.Color {
	if math.IsNaN(v) {
		return heatEmpty
	}
	v = mathutil.Clamp(v, constants.HeatmapMin, constants.HeatmapMax)
	if v < 0 {
		return blend(heatYellow, heatRed, v/constants.HeatmapMin)
	}
	return blend(heatYellow, heatGreen, v/constants.HeatmapMax)
}

func blend(from, to drawing.Color, t float64) drawing.Color {
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return drawing.Color{
		R: mix(from.R, to.R),
		G: mix(from.G, to.G),
		B: mix(from.B, to.B),
		A: 255,
	}
}

// HeatmapCell is one rendered cell of the spread table.
type HeatmapCell struct {
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
	Text    string  `json:"text"`
	Color   string  `json:"color"`
}

// HeatmapRow is one calendar month across the years of the table.
type HeatmapRow struct {
	Label string        `json:"label"`
	Cells []HeatmapCell `json:"cells"`
}

// Heatmap is the month-by-year spread table with its display colours.
type Heatmap struct {
	Years []int        `json:"years"`
	Rows  []HeatmapRow `json:"rows"`
}

// NewHeatmap colours a spread pivot. Cells without data keep the zero value
// of the pivot but are drawn in a neutral colour.
func NewHeatmap(p analytics.SpreadPivot, lang string, f format.Formatter) Heatmap {
	labels := analytics.MonthLabels(lang)
	hm := Heatmap{Years: append([]int(nil), p.Years...)}
	for m := range p.Cells {
		row := HeatmapRow{Label: labels[m]}
		for c, v := range p.Cells[m] {
			present := p.Present[m][c]
			cell := HeatmapCell{Value: v, Present: present}
			if present {
				cell.Text = f.Percent(v, 2)
				cell.Color = HeatmapColor(v).String()
			} else {
				cell.Text = "-"
				cell.Color = heatEmpty.String()
			}
			row.Cells = append(row.Cells, cell)
		}
		hm.Rows = append(hm.Rows, row)
	}
	return hm
}
