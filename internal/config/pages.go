package config

import (
	"os"
	"strings"
)

// Page kinds.
const (
	PageMarkdown  = "markdown"
	PageAnalytics = "analytics"
	PageUpload    = "upload"
)

// Source kinds.
const (
	SourcePrices  = "prices"
	SourceWeights = "weights"
)

// Chart kinds rendered on analytics pages.
const (
	ChartCumulative = "cumulative"
	ChartYoY        = "yoy"
	ChartHeatmap    = "heatmap"
	ChartVolatility = "volatility"
	ChartWeights    = "weights"
)

// AllCharts lists every chart kind in display order.
var AllCharts = []string{ChartCumulative, ChartYoY, ChartHeatmap, ChartVolatility, ChartWeights}

// PageConfig binds a menu entry to a data source and the charts drawn from it.
type PageConfig struct {
	Name       string   `yaml:"name"`
	Slug       string   `yaml:"slug,omitempty"`
	Kind       string   `yaml:"kind"`
	Source     string   `yaml:"source,omitempty"`
	Weights    string   `yaml:"weights,omitempty"`
	Fund       string   `yaml:"fund,omitempty"`
	Benchmarks []string `yaml:"benchmarks,omitempty"`
	Charts     []string `yaml:"charts,omitempty"`
	Content    string   `yaml:"content,omitempty"` // markdown file, or embedded page name
}

// HasChart reports whether the page draws the chart kind.
func (p PageConfig) HasChart(kind string) bool {
	for _, c := range p.Charts {
		if c == kind {
			return true
		}
	}
	return false
}

// Benchmark returns the primary benchmark column, the first configured one.
func (p PageConfig) Benchmark() string {
	if len(p.Benchmarks) == 0 {
		return ""
	}
	return p.Benchmarks[0]
}

// Page returns the page with the given slug.
func (conf *Configuration) Page(slug string) (PageConfig, bool) {
	for _, p := range conf.Pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return PageConfig{}, false
}

// Source returns the source with the given name.
func (conf *Configuration) Source(name string) (SourceConfig, bool) {
	for _, s := range conf.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// ApplyDefaults fills unset fields. Without pages, the dashboard gets the
// four menu entries of the fund site: home, backtest results, backtest
// upload and team.
func (conf *Configuration) ApplyDefaults() {
	if conf.Title == "" {
		conf.Title = "Fundo Moria"
	}
	if conf.Locale == "" {
		conf.Locale = "pt-BR"
	}
	conf.Analytics.applyDefaults()
	if conf.Report.SummaryPath == "" {
		conf.Report.SummaryPath = "summary.json"
	}

	if len(conf.Sources) == 0 {
		conf.Sources = []SourceConfig{
			{Name: "comparacao", Kind: SourcePrices, Path: "comparacao.csv", IndexColumn: "DATA"},
		}
	}
	for i := range conf.Sources {
		s := &conf.Sources[i]
		if s.Kind == "" {
			s.Kind = SourcePrices
		}
		if s.Delimiter == "" {
			s.Delimiter = ","
		}
	}

	if len(conf.Pages) == 0 {
		conf.Pages = []PageConfig{
			{Name: "Home", Slug: "home", Kind: PageMarkdown, Content: "home"},
			{
				Name: "Resultados Backtest", Slug: "backtest", Kind: PageAnalytics,
				Source: conf.Sources[0].Name, Fund: "Fundo", Benchmarks: []string{"CDI"},
				Charts: []string{ChartCumulative, ChartYoY, ChartHeatmap, ChartVolatility},
			},
			{Name: "Refazer BT", Slug: "refazer", Kind: PageUpload, Fund: "Fundo", Benchmarks: []string{"CDI"}},
			{Name: "Equipe", Slug: "equipe", Kind: PageMarkdown, Content: "equipe"},
		}
	}
	for i := range conf.Pages {
		p := &conf.Pages[i]
		if p.Slug == "" {
			p.Slug = Slugify(p.Name)
		}
		if p.Kind == "" {
			p.Kind = PageAnalytics
		}
		if (p.Kind == PageAnalytics || p.Kind == PageUpload) && len(p.Charts) == 0 {
			p.Charts = []string{ChartCumulative, ChartYoY, ChartHeatmap, ChartVolatility}
			if p.Weights != "" {
				p.Charts = append(p.Charts, ChartWeights)
			}
		}
	}

	if conf.Report.Page == "" {
		for _, p := range conf.Pages {
			if p.Kind == PageAnalytics {
				conf.Report.Page = p.Slug
				break
			}
		}
	}
}

// Slugify lowercases name and joins its words with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
