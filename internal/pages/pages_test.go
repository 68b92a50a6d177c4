package pages

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/internal/dataset"
	"github.com/iwvelando/moria-dashboard/pkg/testutil"
	"go.uber.org/zap"
)

func sampleTable(t *testing.T, rows int) *dataset.PriceTable {
	t.Helper()
	table, err := dataset.ReadPriceTable(strings.NewReader(testutil.SamplePriceCSV(rows)), dataset.TableOptions{IndexColumn: "DATA"})
	if err != nil {
		t.Fatalf("ReadPriceTable() error = %v", err)
	}
	return table
}

func newRegistry(t *testing.T, contentDir string) *Registry {
	t.Helper()
	conf := config.Default()
	cat := dataset.NewCatalog()
	cat.PutPrices("comparacao", sampleTable(t, 300))
	return NewRegistry(zap.NewNop(), conf, cat, contentDir)
}

func TestBuild(t *testing.T) {
	page := config.PageConfig{Name: "BT", Slug: "bt", Kind: config.PageAnalytics, Fund: "Fundo", Benchmarks: []string{"CDI", "IBOV"}}
	params := ParamsFrom(config.Default())

	view, err := Build(page, sampleTable(t, 300), nil, params, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(view.Cumulative) != 2 {
		t.Fatalf("expected fund and CDI lines, got %d", len(view.Cumulative))
	}
	for _, line := range view.Cumulative {
		if line.Points[0].Value != 1 {
			t.Errorf("%s does not start at 1: %v", line.Name, line.Points[0].Value)
		}
	}
	if len(view.Warnings) != 1 || !strings.Contains(view.Warnings[0], "IBOV") {
		t.Errorf("expected a warning for the missing IBOV column, got %v", view.Warnings)
	}

	if len(view.Yearly) != 2 {
		t.Fatalf("expected yearly returns for 2 series, got %d", len(view.Yearly))
	}
	if years := view.Yearly[0].Returns.Years(); len(years) != 2 || years[0] != 2023 || years[1] != 2024 {
		t.Errorf("expected years 2023 and 2024, got %v", years)
	}

	if view.Pivot == nil || len(view.Pivot.Cells) != 12 {
		t.Fatalf("expected a 12-row pivot, got %+v", view.Pivot)
	}
	if view.Heatmap == nil || view.Heatmap.Rows[0].Label != "JAN" {
		t.Errorf("expected Portuguese heatmap labels, got %+v", view.Heatmap)
	}

	if len(view.Volatility.Points) != view.Fund().Len() {
		t.Errorf("expected one volatility point per observation, got %d vs %d", len(view.Volatility.Points), view.Fund().Len())
	}
	if !view.BandProbability.Valid {
		t.Error("expected a band probability")
	}
	if p := view.BandProbability.Float64; p < 0 || p > 1 {
		t.Errorf("band probability %v outside [0, 1]", p)
	}
	if want := analytics.CumulativeReturn(view.Fund()); math.Abs(view.CumulativeReturn-want) > 1e-12 {
		t.Errorf("cumulative return %v, expected %v", view.CumulativeReturn, want)
	}

	series := view.VolatilitySeries()
	if series[0].Value.Valid {
		t.Error("warm-up points should be null under the missing policy")
	}
	if !series[len(series)-1].Value.Valid {
		t.Error("last point should carry a value")
	}
}

func TestBuildRangeSnapsToObservations(t *testing.T) {
	page := config.PageConfig{Name: "BT", Kind: config.PageAnalytics, Fund: "Fundo", Benchmarks: []string{"CDI"}}
	params := ParamsFrom(config.Default())

	// 2023-01-07 is a Saturday, 2023-03-05 a Sunday.
	start := time.Date(2023, time.January, 7, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, time.March, 5, 0, 0, 0, 0, time.UTC)
	view, err := Build(page, sampleTable(t, 300), nil, params, start, end)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := view.Start.Format("2006-01-02"); got != "2023-01-09" {
		t.Errorf("start = %s, expected the following Monday", got)
	}
	if got := view.End.Format("2006-01-02"); got != "2023-03-03" {
		t.Errorf("end = %s, expected the preceding Friday", got)
	}
	if got := view.First.Format("2006-01-02"); got != "2023-01-02" {
		t.Errorf("first selectable date = %s", got)
	}
	if years := view.Yearly[0].Returns.Years(); len(years) != 1 || years[0] != 2023 {
		t.Errorf("expected analyses limited to the range, got years %v", years)
	}

	if _, err := Build(page, sampleTable(t, 300), nil, params, end, start); !errors.Is(err, analytics.ErrRange) {
		t.Errorf("expected ErrRange for a reversed range, got %v", err)
	}
}

func TestBuildRejectsBoundsOutsideHistory(t *testing.T) {
	page := config.PageConfig{Name: "BT", Kind: config.PageAnalytics, Fund: "Fundo", Benchmarks: []string{"CDI"}}
	params := ParamsFrom(config.Default())
	table := sampleTable(t, 300)

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"start before first observation", time.Date(2022, time.December, 30, 0, 0, 0, 0, time.UTC), time.Time{}},
		{"end after last observation", time.Time{}, time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"both outside", time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(page, table, nil, params, tt.start, tt.end); !errors.Is(err, analytics.ErrRange) {
				t.Errorf("expected ErrRange, got %v", err)
			}
		})
	}

	// The first observation itself is a valid bound.
	if _, err := Build(page, table, nil, params, time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC), time.Time{}); err != nil {
		t.Errorf("Build() from the first observation error = %v", err)
	}
}

func gappyTable(t *testing.T, csv string) *dataset.PriceTable {
	t.Helper()
	table, err := dataset.ReadPriceTable(strings.NewReader(csv), dataset.TableOptions{IndexColumn: "DATA"})
	if err != nil {
		t.Fatalf("ReadPriceTable() error = %v", err)
	}
	return table
}

func TestBuildBenchmarkSharesFundBaseDate(t *testing.T) {
	page := config.PageConfig{Name: "BT", Kind: config.PageAnalytics, Fund: "Fundo", Benchmarks: []string{"CDI"}}
	params := ParamsFrom(config.Default())

	// CDI has no price on the first day of the selected range.
	table := gappyTable(t, "DATA,Fundo,CDI\n"+
		"2023-01-02,100,50\n"+
		"2023-01-03,101,\n"+
		"2023-01-04,102,51\n"+
		"2023-01-05,103,52\n")
	start := time.Date(2023, time.January, 3, 0, 0, 0, 0, time.UTC)
	view, err := Build(page, table, nil, params, start, time.Time{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(view.Cumulative) != 2 {
		t.Fatalf("expected fund and CDI lines, got %d", len(view.Cumulative))
	}
	cdi := view.Cumulative[1]
	if !cdi.Points[0].Date.Equal(start) || cdi.Points[0].Value != 1 {
		t.Errorf("CDI line should start at 1 on %s, got %+v", start.Format("2006-01-02"), cdi.Points[0])
	}
	if got := cdi.Points[len(cdi.Points)-1].Value; math.Abs(got-52.0/50.0) > 1e-12 {
		t.Errorf("CDI line should be rebased on the carried price 50, last value = %v", got)
	}
	for _, w := range view.Warnings {
		if strings.Contains(w, "CDI") {
			t.Errorf("unexpected CDI warning %q", w)
		}
	}

	// CDI starts after the fund, with no earlier price to carry.
	late := gappyTable(t, "DATA,Fundo,CDI\n"+
		"2023-01-02,100,\n"+
		"2023-01-03,101,50\n"+
		"2023-01-04,102,51\n")
	view, err = Build(page, late, nil, params, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	found := false
	for _, w := range view.Warnings {
		if strings.Contains(w, "CDI starts on 2023-01-03") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a late-start warning for CDI, got %v", view.Warnings)
	}
}

func TestBuildShortRange(t *testing.T) {
	page := config.PageConfig{Name: "BT", Kind: config.PageAnalytics, Fund: "Fundo"}
	view, err := Build(page, sampleTable(t, 10), nil, ParamsFrom(config.Default()), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if view.BandProbability.Valid {
		t.Error("expected no band probability for a range shorter than the window")
	}
	if len(view.Warnings) != 1 {
		t.Errorf("expected a short-range warning, got %v", view.Warnings)
	}
	if view.Pivot != nil {
		t.Error("expected no pivot without a benchmark")
	}
}

func TestBuildMissingFund(t *testing.T) {
	page := config.PageConfig{Name: "BT", Kind: config.PageAnalytics, Fund: "Outro"}
	if _, err := Build(page, sampleTable(t, 10), nil, ParamsFrom(config.Default()), time.Time{}, time.Time{}); !errors.Is(err, dataset.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestRegistryMenu(t *testing.T) {
	r := newRegistry(t, "")
	menu := r.Menu()
	if len(menu) != 4 || menu[0].Slug != "home" || menu[1].Kind != config.PageAnalytics {
		t.Errorf("unexpected menu %+v", menu)
	}
	if up, ok := r.UploadPage(); !ok || up.Slug != "refazer" {
		t.Errorf("expected refazer upload page, got %+v", up)
	}
}

func TestRegistryMarkdown(t *testing.T) {
	r := newRegistry(t, "")
	html, err := r.Markdown("home")
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(string(html), "<h1>Fundo Moria</h1>") {
		t.Errorf("expected embedded home page, got %s", html)
	}
	equipe, err := r.Markdown("equipe")
	if err != nil || !strings.Contains(string(equipe), "<table>") {
		t.Errorf("expected GFM table in team page, got %s, err %v", equipe, err)
	}

	if _, err := r.Markdown("backtest"); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
	if _, err := r.Markdown("missing"); !errors.Is(err, ErrUnknownPage) {
		t.Errorf("expected ErrUnknownPage, got %v", err)
	}
}

func TestRegistryMarkdownOverride(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "home.md", "# Custom home\n\n<script>alert(1)</script>\n")

	html, err := newRegistry(t, dir).Markdown("home")
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(string(html), "<h1>Custom home</h1>") {
		t.Errorf("expected override content, got %s", html)
	}
	if strings.Contains(string(html), "<script>") {
		t.Errorf("raw HTML must not pass through, got %s", html)
	}
}

func TestRegistryView(t *testing.T) {
	r := newRegistry(t, "")
	view, err := r.View("backtest", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if view.Page.Slug != "backtest" || len(view.Cumulative) != 2 {
		t.Errorf("unexpected view %+v", view.Page)
	}

	in := view.ReportInput()
	if len(in.Funds) != 1 || in.Funds[0] != "Fundo" {
		t.Errorf("expected the page fund as the fund list, got %v", in.Funds)
	}

	if _, err := r.View("home", time.Time{}, time.Time{}); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}

	conf := config.Default()
	conf.Pages[1].Source = "elsewhere"
	empty := NewRegistry(nil, conf, nil, "")
	_, err = empty.View("backtest", time.Time{}, time.Time{})
	if !errors.Is(err, ErrSourceUnavailable) || !errors.Is(err, dataset.ErrUnknownSource) {
		t.Errorf("expected ErrSourceUnavailable wrapping ErrUnknownSource, got %v", err)
	}
}

func TestRegistryViewWeights(t *testing.T) {
	conf := config.Default()
	conf.Sources = append(conf.Sources, config.SourceConfig{Name: "pesos", Kind: config.SourceWeights})
	conf.Pages[1].Weights = "pesos"

	cat := dataset.NewCatalog()
	cat.PutPrices("comparacao", sampleTable(t, 60))
	r := NewRegistry(zap.NewNop(), conf, cat, "")

	view, err := r.View("backtest", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if view.Weights != nil {
		t.Error("expected no weights table")
	}
	found := false
	for _, w := range view.Warnings {
		if strings.Contains(w, "weights unavailable") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a weights warning, got %v", view.Warnings)
	}
}

func TestRegistryUpload(t *testing.T) {
	r := newRegistry(t, "")
	view, err := r.Upload("refazer", strings.NewReader(testutil.SamplePriceCSV(40)), dataset.TableOptions{})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if view.Fund().Len() != 40 {
		t.Errorf("expected 40 observations, got %d", view.Fund().Len())
	}

	if _, err := r.Upload("refazer", strings.NewReader("DATA,Outro\n2023-01-02,1\n"), dataset.TableOptions{}); !errors.Is(err, dataset.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
	if _, err := r.Upload("home", strings.NewReader(""), dataset.TableOptions{}); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
}

func TestRenderChart(t *testing.T) {
	r := newRegistry(t, "")
	view, err := r.View("backtest", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	for _, kind := range []string{config.ChartCumulative, config.ChartYoY, config.ChartVolatility} {
		t.Run(kind, func(t *testing.T) {
			var buf strings.Builder
			if err := RenderChart(&buf, kind, view, r.Formatter()); err != nil {
				t.Fatalf("RenderChart(%s) error = %v", kind, err)
			}
			if !strings.Contains(buf.String(), "<svg") {
				t.Errorf("expected SVG output for %s", kind)
			}
		})
	}

	var buf strings.Builder
	if err := RenderChart(&buf, config.ChartHeatmap, view, r.Formatter()); !errors.Is(err, ErrNotSVG) {
		t.Errorf("expected ErrNotSVG for the heatmap, got %v", err)
	}
	if err := RenderChart(&buf, "pie", view, r.Formatter()); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind for an unknown chart, got %v", err)
	}
}
