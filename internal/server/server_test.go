package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/internal/dataset"
	"github.com/iwvelando/moria-dashboard/internal/pages"
	"github.com/iwvelando/moria-dashboard/internal/report"
	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"github.com/iwvelando/moria-dashboard/pkg/testutil"
	"go.uber.org/zap"
)

var generatedAt = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) *pages.Registry {
	t.Helper()
	table, err := dataset.ReadPriceTable(strings.NewReader(testutil.SamplePriceCSV(300)), dataset.TableOptions{IndexColumn: "DATA"})
	if err != nil {
		t.Fatalf("ReadPriceTable() error = %v", err)
	}
	cat := dataset.NewCatalog()
	cat.PutPrices("comparacao", table)
	return pages.NewRegistry(zap.NewNop(), config.Default(), cat, "")
}

func newTestHandler(t *testing.T, sink report.Sink, maxUpload int64) http.Handler {
	t.Helper()
	return NewHandler(zap.NewNop(), Options{
		Registry:      newTestRegistry(t),
		Sink:          sink,
		Report:        config.ReportParameters{DayCountThresholds: []int{30, 60}, SeedVolatility: 0.1},
		MaxUploadSize: maxUpload,
		Version:       "1.2.3",
		Now:           func() time.Time { return generatedAt },
	})
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func multipartBody(t *testing.T, csv string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if csv != "" {
		part, err := writer.CreateFormFile("file", "comparacao.csv")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte(csv)); err != nil {
			t.Fatalf("failed to write form data: %v", err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestIndexRedirectsToFirstPage(t *testing.T) {
	rr := serve(newTestHandler(t, nil, 0), http.MethodGet, "/")
	if rr.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/pages/home" {
		t.Fatalf("expected redirect to /pages/home, got %q", loc)
	}
}

func TestMarkdownPage(t *testing.T) {
	rr := serve(newTestHandler(t, nil, 0), http.MethodGet, "/pages/home")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"<h1>Fundo Moria</h1>", `href="/pages/backtest"`, `href="/pages/equipe"`, `class="active"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in page", want)
		}
	}
}

func TestAnalyticsPage(t *testing.T) {
	rr := serve(newTestHandler(t, nil, 0), http.MethodGet, "/pages/backtest")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Resultado Acumulado",
		"Comparação Retorno YoY",
		"Volatilidade Anualizada",
		"CDI vs Fundo",
		`class="heatmap"`,
		"<svg",
		"background-color: rgba(",
		`name="start" value="2023-01-02"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in analytics page", want)
		}
	}
	if strings.Contains(body, "ZgotmplZ") {
		t.Error("template escaped an unsafe value")
	}
}

func TestAnalyticsPageRangeSnaps(t *testing.T) {
	rr := serve(newTestHandler(t, nil, 0), http.MethodGet, "/pages/backtest?start=2023-01-07&end=2023-03-05")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, `name="start" value="2023-01-09"`) || !strings.Contains(body, `name="end" value="2023-03-03"`) {
		t.Errorf("expected the range snapped to observations")
	}
}

func TestPageErrors(t *testing.T) {
	h := newTestHandler(t, nil, 0)
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown page", "/pages/missing", http.StatusNotFound},
		{"bad start date", "/pages/backtest?start=yesterday", http.StatusBadRequest},
		{"reversed range", "/pages/backtest?start=2023-06-01&end=2023-01-01", http.StatusBadRequest},
		{"range outside history", "/pages/backtest?start=2030-01-01", http.StatusBadRequest},
		{"start before history", "/pages/backtest?start=1900-01-01", http.StatusBadRequest},
		{"end after history", "/pages/backtest?start=2023-06-01&end=2030-01-01", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, http.MethodGet, tt.target)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), `class="error"`) {
				t.Error("expected the error shown on the page")
			}
		})
	}
}

func TestPageSourceUnavailable(t *testing.T) {
	h := NewHandler(zap.NewNop(), Options{Registry: pages.NewRegistry(zap.NewNop(), config.Default(), nil, "")})

	rr := serve(h, http.MethodGet, "/pages/backtest")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Dados indisponíveis") {
		t.Error("expected an unavailable-data message")
	}

	// Other pages keep working.
	if rr := serve(h, http.MethodGet, "/pages/home"); rr.Code != http.StatusOK {
		t.Errorf("expected home to render, got %d", rr.Code)
	}

	rr = serve(h, http.MethodGet, "/api/pages/backtest/analytics")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected API status 503, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
		t.Errorf("expected a JSON error, got %s", rr.Body.String())
	}
}

func TestVersionAndMenu(t *testing.T) {
	h := newTestHandler(t, nil, 0)

	rr := serve(h, http.MethodGet, "/api/version")
	var version map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &version); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if version["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", version["version"])
	}

	rr = serve(h, http.MethodGet, "/api/pages")
	var menu menuResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &menu); err != nil {
		t.Fatalf("failed to decode menu: %v", err)
	}
	if menu.Title != "Fundo Moria" || len(menu.Pages) != 4 || menu.Pages[2].Slug != "refazer" {
		t.Errorf("unexpected menu %+v", menu)
	}
}

func TestAPIAnalytics(t *testing.T) {
	rr := serve(newTestHandler(t, nil, 0), http.MethodGet, "/api/pages/backtest/analytics")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var resp struct {
		Start           time.Time                `json:"start"`
		Cumulative      []json.RawMessage        `json:"cumulative"`
		Volatility      []map[string]interface{} `json:"volatility"`
		VolatilityBands map[string]float64       `json:"volatilityBands"`
		Window          int                      `json:"window"`
		BandProbability *float64                 `json:"bandProbability"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Cumulative) != 2 {
		t.Errorf("expected fund and benchmark lines, got %d", len(resp.Cumulative))
	}
	if len(resp.Volatility) != 300 {
		t.Fatalf("expected one volatility point per observation, got %d", len(resp.Volatility))
	}
	if resp.Volatility[0]["value"] != nil {
		t.Errorf("expected null warm-up value, got %v", resp.Volatility[0]["value"])
	}
	if resp.Volatility[299]["value"] == nil {
		t.Error("expected a value at the end of the series")
	}
	if resp.Window != constants.DefaultVolatilityWindow {
		t.Errorf("expected window %d, got %d", constants.DefaultVolatilityWindow, resp.Window)
	}
	if resp.VolatilityBands["high"] != constants.DefaultVolatilityHigh {
		t.Errorf("unexpected bands %v", resp.VolatilityBands)
	}
	if resp.BandProbability == nil || *resp.BandProbability < 0 || *resp.BandProbability > 1 {
		t.Errorf("expected a probability in [0, 1], got %v", resp.BandProbability)
	}
}

func TestAPIAnalyticsBoundsOutsideHistory(t *testing.T) {
	h := newTestHandler(t, nil, 0)
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"start before history", "/api/pages/backtest/analytics?start=1900-01-01", http.StatusBadRequest},
		{"end after history", "/api/pages/backtest/analytics?end=2099-12-31", http.StatusBadRequest},
		{"bounds inside history", "/api/pages/backtest/analytics?start=2023-01-02&end=2023-06-30", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, http.MethodGet, tt.target)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.status == http.StatusBadRequest && !strings.Contains(rr.Body.String(), "observation") {
				t.Errorf("expected the history bound in the error, got %s", rr.Body.String())
			}
		})
	}
}

func TestAPIChart(t *testing.T) {
	h := newTestHandler(t, nil, 0)
	tests := []struct {
		target string
		status int
	}{
		{"/api/pages/backtest/charts/cumulative.svg", http.StatusOK},
		{"/api/pages/backtest/charts/yoy.svg?start=2023-03-01", http.StatusOK},
		{"/api/pages/backtest/charts/volatility.svg", http.StatusOK},
		{"/api/pages/backtest/charts/heatmap.svg", http.StatusBadRequest},
		{"/api/pages/backtest/charts/weights.svg", http.StatusUnprocessableEntity},
		{"/api/pages/home/charts/cumulative.svg", http.StatusBadRequest},
		{"/api/pages/missing/charts/cumulative.svg", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := serve(h, http.MethodGet, tt.target)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.status == http.StatusOK {
				if ct := rr.Header().Get("Content-Type"); ct != "image/svg+xml" {
					t.Errorf("unexpected content type %q", ct)
				}
				if !strings.Contains(rr.Body.String(), "<svg") {
					t.Error("expected SVG body")
				}
			}
		})
	}
}

func TestAPIReport(t *testing.T) {
	sink := report.NewFileSink(filepath.Join(t.TempDir(), "summary.json"))
	h := newTestHandler(t, sink, 0)

	rr := serve(h, http.MethodPost, "/api/pages/backtest/report?start=2023-02-01")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var summary report.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.Start != "2023-02-01" {
		t.Errorf("expected start 2023-02-01, got %s", summary.Start)
	}
	if len(summary.Funds) != 1 || summary.Funds[0] != "Fundo" {
		t.Errorf("unexpected funds %v", summary.Funds)
	}
	if len(summary.Parameters.DayCountThresholds) != 2 {
		t.Errorf("expected the seeded parameters, got %+v", summary.Parameters)
	}
	if !summary.GeneratedAt.Equal(generatedAt) {
		t.Errorf("expected generation time %s, got %s", generatedAt, summary.GeneratedAt)
	}

	stored, err := sink.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if stored.CumulativeReturn != summary.CumulativeReturn {
		t.Errorf("stored summary differs: %+v", stored)
	}

	if rr := serve(h, http.MethodGet, "/api/pages/backtest/report"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rr.Code)
	}
	if rr := serve(h, http.MethodPost, "/api/pages/backtest/report?start=2023-06-01&end=2023-06-01"); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a single-day range, got %d", rr.Code)
	}
}

func TestAPIAnalyze(t *testing.T) {
	h := newTestHandler(t, nil, 0)

	body, ct := multipartBody(t, testutil.SamplePriceCSV(60), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Volatility []json.RawMessage `json:"volatility"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Volatility) != 60 {
		t.Errorf("expected 60 volatility points, got %d", len(resp.Volatility))
	}
}

func TestAPIAnalyzeErrors(t *testing.T) {
	semicolon := "DATA;Fundo;CDI\n2023-01-02;100,5;10\n2023-01-03;101,5;10,1\n"
	tests := []struct {
		name      string
		csv       string
		fields    map[string]string
		maxUpload int64
		status    int
	}{
		{"missing file", "", nil, 0, http.StatusBadRequest},
		{"missing fund column", "DATA,Outro\n2023-01-02,1\n", nil, 0, http.StatusBadRequest},
		{"unknown page", testutil.SamplePriceCSV(30), map[string]string{"page": "nope"}, 0, http.StatusNotFound},
		{"markdown page", testutil.SamplePriceCSV(30), map[string]string{"page": "home"}, 0, http.StatusBadRequest},
		{"bad delimiter", testutil.SamplePriceCSV(30), map[string]string{"delimiter": ";;"}, 0, http.StatusBadRequest},
		{"too large", testutil.SamplePriceCSV(300), nil, 512, http.StatusRequestEntityTooLarge},
		{"decimal comma", semicolon, map[string]string{"delimiter": ";", "decimalComma": "true"}, 0, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, nil, tt.maxUpload)
			body, ct := multipartBody(t, tt.csv, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
			req.Header.Set("Content-Type", ct)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestUploadPage(t *testing.T) {
	h := newTestHandler(t, nil, 0)

	rr := serve(h, http.MethodGet, "/pages/refazer")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `enctype="multipart/form-data"`) {
		t.Fatalf("expected the upload form, got %d", rr.Code)
	}

	body, ct := multipartBody(t, testutil.SamplePriceCSV(60), nil)
	req := httptest.NewRequest(http.MethodPost, "/pages/refazer", body)
	req.Header.Set("Content-Type", ct)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "<svg") {
		t.Error("expected charts of the uploaded table")
	}

	body, ct = multipartBody(t, "", nil)
	req = httptest.NewRequest(http.MethodPost, "/pages/refazer", body)
	req.Header.Set("Content-Type", ct)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "missing price table file") {
		t.Errorf("expected an inline upload error, got %d", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	rr := serve(newTestHandler(t, nil, 0), http.MethodGet, "/static/styles.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), ".sidebar") {
		t.Error("expected the stylesheet")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{pages.ErrUnknownPage, http.StatusNotFound},
		{pages.ErrSourceUnavailable, http.StatusServiceUnavailable},
		{pages.ErrNotSVG, http.StatusBadRequest},
		{dataset.ErrMalformed, http.StatusBadRequest},
		{errInvalidQuery, http.StatusBadRequest},
		{dataset.ErrUnknownSource, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, expected %d", tt.err, got, tt.status)
		}
	}
}
