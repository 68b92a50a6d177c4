package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/internal/charts"
	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/internal/dataset"
	"github.com/iwvelando/moria-dashboard/internal/pages"
	"github.com/iwvelando/moria-dashboard/internal/report"
	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"github.com/iwvelando/moria-dashboard/pkg/datetime"
	"go.uber.org/zap"
)

//go:embed static/*
var staticFiles embed.FS

//go:embed templates/*.html
var templateFiles embed.FS

// errInvalidQuery reports a malformed query or form parameter.
var errInvalidQuery = errors.New("invalid request parameter")

// Options are the collaborators of the dashboard handler.
type Options struct {
	Registry      *pages.Registry
	Sink          report.Sink
	Report        config.ReportParameters
	MaxUploadSize int64
	Version       string
	// Now stamps generated summaries; defaults to time.Now.
	Now func() time.Time
}

type handler struct {
	logger        *zap.Logger
	registry      *pages.Registry
	sink          report.Sink
	reportSeed    config.ReportParameters
	maxUploadSize int64
	version       string
	now           func() time.Time
	tmpl          *template.Template
}

// NewHandler constructs the HTTP handler that serves the dashboard pages and
// the analytics API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Registry == nil {
		panic("server: NewHandler requires a page registry")
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	sink := opts.Sink
	if sink == nil {
		sink = &report.MemorySink{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	h := &handler{
		logger:        logger,
		registry:      opts.Registry,
		sink:          sink,
		reportSeed:    opts.Report,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		now:           now,
		tmpl:          parseTemplates(opts.Registry),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleIndex)
	r.Get("/pages/{slug}", h.handlePage)
	r.Post("/pages/{slug}", h.handlePageUpload)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)
		r.Get("/pages", h.handleMenu)
		r.Get("/pages/{slug}/analytics", h.handleAnalytics)
		r.Get("/pages/{slug}/charts/{chart}.svg", h.handleChart)
		r.Post("/pages/{slug}/report", h.handleReport)
		r.Post("/analyze", h.handleAnalyze)
	})

	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request served",
				zap.String("op", "server.requestLogger"),
				zap.String("requestId", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	menu := h.registry.Menu()
	if len(menu) == 0 {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/pages/"+menu[0].Slug, http.StatusFound)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

type menuResponse struct {
	Title string        `json:"title"`
	Pages []pages.Entry `json:"pages"`
}

func (h *handler) handleMenu(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, menuResponse{Title: h.registry.Title(), Pages: h.registry.Menu()})
}

type analyticsResponse struct {
	*pages.View
	Volatility      []pages.VolatilityJSON `json:"volatility"`
	VolatilityBands analytics.Bands        `json:"volatilityBands"`
	Window          int                    `json:"window"`
	Duration        string                 `json:"duration"`
}

func newAnalyticsResponse(view *pages.View, elapsed time.Duration) analyticsResponse {
	return analyticsResponse{
		View:            view,
		Volatility:      view.VolatilitySeries(),
		VolatilityBands: view.Volatility.Bands,
		Window:          view.Volatility.Window,
		Duration:        elapsed.String(),
	}
}

func (h *handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAnalytics"
	start := time.Now()

	view, err := h.viewFromQuery(r)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	elapsed := time.Since(start)
	h.logger.Info("analytics computed",
		zap.String("op", op),
		zap.String("page", view.Page.Slug),
		zap.Int("observations", view.Fund().Len()),
		zap.Duration("duration", elapsed),
	)
	h.writeJSON(w, http.StatusOK, newAnalyticsResponse(view, elapsed))
}

func (h *handler) handleChart(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleChart"

	view, err := h.viewFromQuery(r)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	kind := chi.URLParam(r, "chart")
	var buf bytes.Buffer
	if err := pages.RenderChart(&buf, kind, view, h.registry.Formatter()); err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write chart",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleReport"

	view, err := h.viewFromQuery(r)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	summary, err := report.Generate(h.logger, h.sink, view.ReportInput(), h.reportSeed, h.now())
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAnalyze"
	start := time.Now()

	slug := ""
	if up, ok := h.registry.UploadPage(); ok {
		slug = up.Slug
	}
	view, status, err := h.analyzeUpload(w, r, slug)
	if err != nil {
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, newAnalyticsResponse(view, time.Since(start)))
}

// analyzeUpload reads the multipart "file" field and computes its view using
// the page named by the "page" field, or fallback when that is empty.
func (h *handler) analyzeUpload(w http.ResponseWriter, r *http.Request, fallback string) (*pages.View, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds limit of %d bytes", h.maxUploadSize)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to parse upload: %w", err)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("missing price table file")
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", "server.analyzeUpload"),
				zap.Error(closeErr),
			)
		}
	}()

	slug := strings.TrimSpace(r.FormValue("page"))
	if slug == "" {
		slug = fallback
	}
	if slug == "" {
		return nil, http.StatusBadRequest, errors.New("no page accepts uploads")
	}

	opts, err := tableOptionsFromForm(r)
	if err != nil {
		return nil, statusFor(err), err
	}

	view, err := h.registry.Upload(slug, file, opts)
	if err != nil {
		return nil, statusFor(err), err
	}
	return view, http.StatusOK, nil
}

func tableOptionsFromForm(r *http.Request) (dataset.TableOptions, error) {
	opts := dataset.TableOptions{IndexColumn: strings.TrimSpace(r.FormValue("index"))}

	if d := r.FormValue("delimiter"); d != "" {
		if d == `\t` || d == "tab" {
			d = "\t"
		}
		runes := []rune(d)
		if len(runes) != 1 {
			return opts, fmt.Errorf("%w: delimiter must be a single character", errInvalidQuery)
		}
		opts.Delimiter = runes[0]
	}

	if v := strings.TrimSpace(r.FormValue("decimalComma")); v != "" {
		decimalComma, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w: decimalComma: %v", errInvalidQuery, err)
		}
		opts.DecimalComma = decimalComma
	}
	return opts, nil
}

func (h *handler) viewFromQuery(r *http.Request) (*pages.View, error) {
	start, end, err := rangeFromQuery(r)
	if err != nil {
		return nil, err
	}
	return h.registry.View(chi.URLParam(r, "slug"), start, end)
}

// rangeFromQuery parses the optional start and end query parameters. Missing
// bounds are left zero, which selects the whole history.
func rangeFromQuery(r *http.Request) (time.Time, time.Time, error) {
	var bounds [2]time.Time
	for i, key := range []string{"start", "end"} {
		value := strings.TrimSpace(r.URL.Query().Get(key))
		if value == "" {
			continue
		}
		t, err := datetime.ParseDate(value)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %s: %v", errInvalidQuery, key, err)
		}
		bounds[i] = t
	}
	return bounds[0], bounds[1], nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pages.ErrUnknownPage):
		return http.StatusNotFound
	case errors.Is(err, pages.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, charts.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errInvalidQuery),
		errors.Is(err, pages.ErrWrongKind),
		errors.Is(err, analytics.ErrRange),
		errors.Is(err, analytics.ErrDegenerateRange),
		errors.Is(err, analytics.ErrInsufficientData),
		errors.Is(err, analytics.ErrInvalidSeries),
		errors.Is(err, dataset.ErrMissingColumn),
		errors.Is(err, dataset.ErrMalformed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("dashboard request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
