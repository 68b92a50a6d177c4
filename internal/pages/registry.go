// Package pages binds the configured menu entries to their content: rendered
// markdown for static pages and analytics views for backtest pages.
package pages

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/internal/dataset"
	"github.com/iwvelando/moria-dashboard/pkg/format"
	"go.uber.org/zap"
)

var (
	// ErrUnknownPage reports a slug with no configured page.
	ErrUnknownPage = errors.New("unknown page")

	// ErrWrongKind reports an operation the page kind does not support.
	ErrWrongKind = errors.New("unsupported page kind")

	// ErrSourceUnavailable reports a page whose data source failed to load.
	ErrSourceUnavailable = errors.New("data source unavailable")
)

// Entry is one item of the navigation menu.
type Entry struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Kind string `json:"kind"`
}

// Registry resolves pages by slug.
type Registry struct {
	logger    *zap.Logger
	conf      *config.Configuration
	catalog   *dataset.Catalog
	markdown  *MarkdownRenderer
	params    Params
	formatter format.Formatter
}

// NewRegistry builds a registry over the configured pages. contentDir holds
// markdown overrides and may be empty.
func NewRegistry(logger *zap.Logger, conf *config.Configuration, catalog *dataset.Catalog, contentDir string) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = dataset.NewCatalog()
	}
	return &Registry{
		logger:    logger,
		conf:      conf,
		catalog:   catalog,
		markdown:  NewMarkdownRenderer(contentDir),
		params:    ParamsFrom(conf),
		formatter: format.NewFormatter(conf.Locale),
	}
}

// Title returns the dashboard title.
func (r *Registry) Title() string {
	return r.conf.Title
}

// Locale returns the display locale.
func (r *Registry) Locale() string {
	return r.conf.Locale
}

// Formatter returns the formatter for the display locale.
func (r *Registry) Formatter() format.Formatter {
	return r.formatter
}

// Params returns the analysis parameters views are built with.
func (r *Registry) Params() Params {
	return r.params
}

// Menu lists the pages in configuration order.
func (r *Registry) Menu() []Entry {
	entries := make([]Entry, len(r.conf.Pages))
	for i, p := range r.conf.Pages {
		entries[i] = Entry{Name: p.Name, Slug: p.Slug, Kind: p.Kind}
	}
	return entries
}

// Page returns the configuration of the page with the given slug.
func (r *Registry) Page(slug string) (config.PageConfig, error) {
	p, ok := r.conf.Page(slug)
	if !ok {
		return config.PageConfig{}, fmt.Errorf("%w: %q", ErrUnknownPage, slug)
	}
	return p, nil
}

// Markdown renders a markdown page.
func (r *Registry) Markdown(slug string) (template.HTML, error) {
	p, err := r.Page(slug)
	if err != nil {
		return "", err
	}
	if p.Kind != config.PageMarkdown {
		return "", fmt.Errorf("%w: %q is a %s page", ErrWrongKind, slug, p.Kind)
	}
	content := p.Content
	if content == "" {
		content = p.Slug
	}
	return r.markdown.RenderPage(content)
}

// View computes the analytics view of a page over [start, end]. Zero bounds
// select the whole history.
func (r *Registry) View(slug string, start, end time.Time) (*View, error) {
	p, err := r.Page(slug)
	if err != nil {
		return nil, err
	}
	if p.Kind != config.PageAnalytics {
		return nil, fmt.Errorf("%w: %q is a %s page", ErrWrongKind, slug, p.Kind)
	}

	table, err := r.catalog.Prices(p.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	var weights *dataset.WeightsTable
	var weightsErr error
	if p.Weights != "" {
		weights, weightsErr = r.catalog.Weights(p.Weights)
	}

	view, err := Build(p, table, weights, r.params, start, end)
	if err != nil {
		return nil, err
	}
	if weightsErr != nil {
		view.Warnings = append(view.Warnings, fmt.Sprintf("weights unavailable: %v", weightsErr))
	}

	r.logger.Debug("view computed",
		zap.String("op", "pages.View"),
		zap.String("page", slug),
		zap.Time("start", view.Start),
		zap.Time("end", view.End),
		zap.Int("warnings", len(view.Warnings)),
	)
	return view, nil
}

// Upload computes the analytics view of an uploaded price table using the
// fund and benchmark columns of the given page.
func (r *Registry) Upload(slug string, rd io.Reader, opts dataset.TableOptions) (*View, error) {
	p, err := r.Page(slug)
	if err != nil {
		return nil, err
	}
	if p.Kind != config.PageUpload && p.Kind != config.PageAnalytics {
		return nil, fmt.Errorf("%w: %q is a %s page", ErrWrongKind, slug, p.Kind)
	}

	table, err := dataset.ReadPriceTable(rd, opts)
	if err != nil {
		return nil, err
	}
	view, err := Build(p, table, nil, r.params, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	r.logger.Info("uploaded backtest analysed",
		zap.String("op", "pages.Upload"),
		zap.String("page", slug),
		zap.Int("rows", table.Len()),
		zap.Time("start", view.Start),
		zap.Time("end", view.End),
	)
	return view, nil
}

// UploadPage returns the first page accepting uploads.
func (r *Registry) UploadPage() (config.PageConfig, bool) {
	for _, p := range r.conf.Pages {
		if p.Kind == config.PageUpload {
			return p, true
		}
	}
	return config.PageConfig{}, false
}
