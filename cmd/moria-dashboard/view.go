package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iwvelando/moria-dashboard/internal/charts"
	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/internal/dataset"
	"github.com/iwvelando/moria-dashboard/internal/pages"
	"github.com/iwvelando/moria-dashboard/pkg/datetime"
	"go.uber.org/zap"
)

// selection names the page, range and optional uploaded table a command
// works on.
type selection struct {
	page         string
	start        string
	end          string
	file         string
	delimiter    string
	decimalComma bool
}

func (s selection) bounds() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if s.start != "" {
		if start, err = datetime.ParseDate(s.start); err != nil {
			return start, end, fmt.Errorf("invalid start: %w", err)
		}
	}
	if s.end != "" {
		if end, err = datetime.ParseDate(s.end); err != nil {
			return start, end, fmt.Errorf("invalid end: %w", err)
		}
	}
	return start, end, nil
}

func (s selection) tableOptions() (dataset.TableOptions, error) {
	opts := dataset.TableOptions{DecimalComma: s.decimalComma}
	if s.delimiter != "" {
		runes := []rune(s.delimiter)
		if s.delimiter == `\t` {
			runes = []rune{'\t'}
		}
		if len(runes) != 1 {
			return opts, fmt.Errorf("delimiter %q must be a single character", s.delimiter)
		}
		opts.Delimiter = runes[0]
	}
	return opts, nil
}

// loadView computes the view of the selected page. With a file, the table is
// analysed the way the upload page does; otherwise the page's configured
// sources are loaded.
func loadView(ctx context.Context, logger *zap.Logger, conf *config.Configuration, sel selection) (*pages.View, *pages.Registry, error) {
	if sel.file != "" {
		registry := pages.NewRegistry(logger, conf, nil, "")
		slug := sel.page
		if slug == "" {
			if up, ok := registry.UploadPage(); ok {
				slug = up.Slug
			} else {
				slug = conf.Report.Page
			}
		}
		opts, err := sel.tableOptions()
		if err != nil {
			return nil, nil, err
		}
		f, err := os.Open(sel.file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", sel.file, err)
		}
		defer func() { _ = f.Close() }()
		view, err := registry.Upload(slug, f, opts)
		return view, registry, err
	}

	start, end, err := sel.bounds()
	if err != nil {
		return nil, nil, err
	}
	slug := sel.page
	if slug == "" {
		slug = conf.Report.Page
	}
	page, ok := conf.Page(slug)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", pages.ErrUnknownPage, slug)
	}

	catalog, err := dataset.LoadCatalog(ctx, logger, pageSources(conf, page))
	if err != nil {
		return nil, nil, err
	}
	registry := pages.NewRegistry(logger, conf, catalog, "")
	view, err := registry.View(slug, start, end)
	return view, registry, err
}

// pageSources returns the sources a page reads, so commands load only those.
func pageSources(conf *config.Configuration, page config.PageConfig) []config.SourceConfig {
	var out []config.SourceConfig
	for _, name := range []string{page.Source, page.Weights} {
		if src, ok := conf.Source(name); ok {
			out = append(out, src)
		}
	}
	return out
}

// exportCharts writes the SVG charts of a view to dir as <page>-<chart>.svg
// and returns the written paths. Charts without data are skipped.
func exportCharts(logger *zap.Logger, dir string, view *pages.View, registry *pages.Registry) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	var written []string
	for _, kind := range view.Page.Charts {
		if kind == config.ChartHeatmap {
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("%s-%s.svg", view.Page.Slug, kind))
		f, err := os.Create(name)
		if err != nil {
			return written, fmt.Errorf("failed to create %s: %w", name, err)
		}
		err = pages.RenderChart(f, kind, view, registry.Formatter())
		closeErr := f.Close()
		if errors.Is(err, charts.ErrNoData) {
			logger.Warn("chart skipped",
				zap.String("op", "main.exportCharts"),
				zap.String("chart", kind),
				zap.Error(err),
			)
			_ = os.Remove(name)
			continue
		}
		if err != nil {
			return written, err
		}
		if closeErr != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, closeErr)
		}
		written = append(written, name)
	}
	return written, nil
}
