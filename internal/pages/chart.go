package pages

import (
	"fmt"
	"io"

	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/internal/charts"
	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/pkg/format"
)

// ErrNotSVG reports a chart kind that is not drawn as an image.
var ErrNotSVG = fmt.Errorf("%w: chart is rendered as a table", ErrWrongKind)

// ChartTitle returns the heading of a chart kind.
func ChartTitle(kind string, page config.PageConfig) string {
	switch kind {
	case config.ChartCumulative:
		return "Resultado Acumulado"
	case config.ChartYoY:
		return "Comparação Retorno YoY"
	case config.ChartHeatmap:
		return fmt.Sprintf("%s vs %s", page.Benchmark(), page.Fund)
	case config.ChartVolatility:
		return "Volatilidade Anualizada"
	case config.ChartWeights:
		return "Pesos por Ano"
	default:
		return kind
	}
}

// RenderChart writes the SVG of one chart of the view.
func RenderChart(w io.Writer, kind string, view *View, f format.Formatter) error {
	opts := charts.Options{Title: ChartTitle(kind, view.Page), Formatter: f}
	switch kind {
	case config.ChartCumulative:
		return charts.RenderCumulative(w, view.Cumulative, opts)
	case config.ChartYoY:
		returns := make([]analytics.YearlyReturns, len(view.Yearly))
		for i, y := range view.Yearly {
			returns[i] = y.Returns
		}
		return charts.RenderYearly(w, returns, opts)
	case config.ChartVolatility:
		return charts.RenderVolatility(w, view.Page.Fund, view.Volatility, opts)
	case config.ChartWeights:
		return charts.RenderWeights(w, view.Weights, opts)
	case config.ChartHeatmap:
		return ErrNotSVG
	default:
		return fmt.Errorf("%w: unknown chart %q", ErrWrongKind, kind)
	}
}
