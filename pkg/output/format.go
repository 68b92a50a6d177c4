// Package output provides utilities for formatting and displaying analytics
// results.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/internal/pages"
	"github.com/iwvelando/moria-dashboard/pkg/datetime"
	"github.com/iwvelando/moria-dashboard/pkg/format"
)

// table is a header plus rows of already formatted cells.
type table struct {
	title  string
	header []string
	rows   [][]string
}

func yearlyTable(view *pages.View, f format.Formatter) table {
	t := table{title: "Yearly returns", header: []string{"Year"}}
	yearSet := make(map[int]struct{})
	var years []int
	for _, s := range view.Yearly {
		t.header = append(t.header, s.Name)
		for _, y := range s.Returns.Years() {
			if _, ok := yearSet[y]; !ok {
				yearSet[y] = struct{}{}
				years = append(years, y)
			}
		}
	}
	sort.Ints(years)
	for _, y := range years {
		row := []string{fmt.Sprintf("%d", y)}
		for _, s := range view.Yearly {
			if v, ok := s.Returns.Map()[y]; ok {
				row = append(row, f.Percent(v, 2))
			} else {
				row = append(row, "-")
			}
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func pivotTable(view *pages.View, locale string, f format.Formatter) (table, bool) {
	if view.Pivot == nil {
		return table{}, false
	}
	p := view.Pivot
	t := table{title: "Monthly spread vs " + view.Page.Benchmark(), header: []string{"Month"}}
	for _, y := range p.Years {
		t.header = append(t.header, fmt.Sprintf("%d", y))
	}
	labels := analytics.MonthLabels(locale)
	for m := range p.Cells {
		row := []string{labels[m]}
		for c, v := range p.Cells[m] {
			if p.Present[m][c] {
				row = append(row, f.Percent(v, 2))
			} else {
				row = append(row, "-")
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, true
}

func volatilityTable(view *pages.View, f format.Formatter) table {
	b := view.Volatility.Bands
	prob := "-"
	if view.BandProbability.Valid {
		prob = f.Percent(view.BandProbability.Float64, 2)
	}
	return table{
		title:  fmt.Sprintf("Volatility (%d-observation window)", view.Volatility.Window),
		header: []string{"Cumulative return", "Average", "Low", "Target", "High", "Probability in band"},
		rows: [][]string{{
			f.Percent(view.CumulativeReturn, 2),
			f.Percent(b.Average, 2),
			f.Percent(b.Low, 2),
			f.Percent(b.Target, 2),
			f.Percent(b.High, 2),
			prob,
		}},
	}
}

func tables(view *pages.View, locale string) []table {
	f := format.NewFormatter(locale)
	out := []table{yearlyTable(view, f)}
	if pt, ok := pivotTable(view, locale, f); ok {
		out = append(out, pt)
	}
	return append(out, volatilityTable(view, f))
}

// PrettyFormat writes a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, view *pages.View, locale string) {
	f := format.NewFormatter(locale)
	_, _ = fmt.Fprintf(w, "--- Results for %s (%s to %s, %s observations) ---\n",
		view.Page.Fund, datetime.FormatDate(view.Start), datetime.FormatDate(view.End),
		f.Number(float64(view.Fund().Len()), 0))
	for _, t := range tables(view, locale) {
		_, _ = fmt.Fprintf(w, "\n%s\n", t.title)
		widths := columnWidths(t)
		writePrettyRow(w, t.header, widths)
		rule := make([]string, len(widths))
		for i, n := range widths {
			rule[i] = strings.Repeat("_", n)
		}
		writePrettyRow(w, rule, widths)
		for _, row := range t.rows {
			writePrettyRow(w, row, widths)
		}
	}
	for _, warning := range view.Warnings {
		_, _ = fmt.Fprintf(w, "\nwarning: %s\n", warning)
	}
}

// CsvFormat writes each table in comma-separated value format, preceded by a
// line naming it.
func CsvFormat(w io.Writer, view *pages.View, locale string) {
	for i, t := range tables(view, locale) {
		if i > 0 {
			_, _ = fmt.Fprintf(w, "\n")
		}
		writeCsvRow(w, []string{t.title})
		writeCsvRow(w, t.header)
		for _, row := range t.rows {
			writeCsvRow(w, row)
		}
	}
}

// MarkdownFormat writes the tables as markdown.
func MarkdownFormat(w io.Writer, view *pages.View, locale string) {
	_, _ = fmt.Fprintf(w, "# %s\n\n%s to %s\n",
		view.Page.Fund, datetime.FormatDate(view.Start), datetime.FormatDate(view.End))
	for _, t := range tables(view, locale) {
		_, _ = fmt.Fprintf(w, "\n## %s\n\n", t.title)
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(t.header, " | "))
		_, _ = fmt.Fprintf(w, "|%s\n", strings.Repeat("---|", len(t.header)))
		for _, row := range t.rows {
			_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(row, " | "))
		}
	}
	if len(view.Warnings) > 0 {
		_, _ = fmt.Fprintf(w, "\n")
		for _, warning := range view.Warnings {
			_, _ = fmt.Fprintf(w, "> %s\n", warning)
		}
	}
}

func columnWidths(t table) []int {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = len([]rune(h))
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := len([]rune(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	return widths
}

func writePrettyRow(w io.Writer, cells []string, widths []int) {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = c + strings.Repeat(" ", widths[i]-len([]rune(c)))
	}
	_, _ = fmt.Fprintf(w, "%s\n", strings.TrimRight(strings.Join(padded, " | "), " "))
}

func writeCsvRow(w io.Writer, cells []string) {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
	}
	_, _ = fmt.Fprintf(w, "%s\n", strings.Join(quoted, ","))
}
