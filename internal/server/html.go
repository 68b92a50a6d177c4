package server

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/iwvelando/moria-dashboard/internal/charts"
	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/internal/pages"
	"github.com/iwvelando/moria-dashboard/pkg/datetime"
	"go.uber.org/zap"
)

// chartPanel is one chart of an analytics page, already rendered.
type chartPanel struct {
	Title   string
	SVG     template.HTML
	Heatmap *charts.Heatmap
	Error   string
}

// pageData is what the layout template renders.
type pageData struct {
	Title    string
	Menu     []pages.Entry
	Active   string
	Page     config.PageConfig
	Markdown template.HTML
	View     *pages.View
	Panels   []chartPanel
	Start    string
	End      string
	First    string
	Last     string
	Upload   bool
	Error    string
	Version  string
}

func parseTemplates(registry *pages.Registry) *template.Template {
	f := registry.Formatter()
	// Heatmap colours come from charts.HeatmapColor, never from input.
	funcs := template.FuncMap{
		"percent":    func(v float64) string { return f.Percent(v, 2) },
		"background": func(color string) template.CSS { return template.CSS("background-color: " + color) },
	}
	return template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFiles, "templates/*.html"))
}

func (h *handler) basePage(slug string) pageData {
	return pageData{
		Title:   h.registry.Title(),
		Menu:    h.registry.Menu(),
		Active:  slug,
		Version: h.version,
	}
}

func (h *handler) handlePage(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePage"
	slug := chi.URLParam(r, "slug")
	data := h.basePage(slug)

	page, err := h.registry.Page(slug)
	if err != nil {
		h.renderError(w, data, err, op)
		return
	}
	data.Page = page

	switch page.Kind {
	case config.PageMarkdown:
		html, err := h.registry.Markdown(slug)
		if err != nil {
			h.renderError(w, data, err, op)
			return
		}
		data.Markdown = html
	case config.PageUpload:
		data.Upload = true
	default:
		start, end, err := rangeFromQuery(r)
		if err == nil {
			var view *pages.View
			view, err = h.registry.View(slug, start, end)
			if err == nil {
				h.fillView(&data, view)
			}
		}
		if err != nil {
			h.renderError(w, data, err, op)
			return
		}
	}
	h.render(w, http.StatusOK, data)
}

func (h *handler) handlePageUpload(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePageUpload"
	slug := chi.URLParam(r, "slug")
	data := h.basePage(slug)

	page, err := h.registry.Page(slug)
	if err != nil {
		h.renderError(w, data, err, op)
		return
	}
	data.Page = page
	data.Upload = true

	view, status, err := h.analyzeUpload(w, r, slug)
	if err != nil {
		h.logger.Error("dashboard request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.Error(err),
		)
		data.Error = err.Error()
		h.render(w, status, data)
		return
	}
	h.fillView(&data, view)
	h.render(w, http.StatusOK, data)
}

// fillView renders the charts a page asks for. A chart that cannot be drawn
// is reported in its panel instead of failing the page.
func (h *handler) fillView(data *pageData, view *pages.View) {
	data.View = view
	data.Start = datetime.FormatDate(view.Start)
	data.End = datetime.FormatDate(view.End)
	data.First = datetime.FormatDate(view.First)
	data.Last = datetime.FormatDate(view.Last)

	for _, kind := range view.Page.Charts {
		panel := chartPanel{Title: pages.ChartTitle(kind, view.Page)}
		if kind == config.ChartHeatmap {
			if view.Heatmap == nil {
				panel.Error = "sem benchmark para comparar"
			}
			panel.Heatmap = view.Heatmap
			data.Panels = append(data.Panels, panel)
			continue
		}

		var buf bytes.Buffer
		if err := pages.RenderChart(&buf, kind, view, h.registry.Formatter()); err != nil {
			h.logger.Warn("chart not rendered",
				zap.String("op", "server.fillView"),
				zap.String("chart", kind),
				zap.Error(err),
			)
			panel.Error = err.Error()
		} else {
			// go-chart output is generated markup, not user input.
			panel.SVG = template.HTML(buf.String())
		}
		data.Panels = append(data.Panels, panel)
	}
}

func (h *handler) renderError(w http.ResponseWriter, data pageData, err error, op string) {
	status := statusFor(err)
	h.logger.Error("dashboard request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.Error(err),
	)
	data.Error = userMessage(err)
	h.render(w, status, data)
}

// userMessage phrases errors for the page body.
func userMessage(err error) string {
	switch {
	case errors.Is(err, pages.ErrUnknownPage):
		return "Página não encontrada."
	case errors.Is(err, pages.ErrSourceUnavailable):
		return "Dados indisponíveis: " + err.Error()
	default:
		return err.Error()
	}
}

func (h *handler) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.logger.Error("failed to render page",
			zap.String("op", "server.render"),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write page",
			zap.String("op", "server.render"),
			zap.Error(err),
		)
	}
}
