// Package dataset loads the tabular inputs of the dashboard: date-indexed
// price tables and year-indexed allocation weights.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/pkg/datetime"
)

var (
	// ErrMissingColumn reports a column absent from a table header.
	ErrMissingColumn = errors.New("missing column")

	// ErrMalformed reports a table that cannot be parsed.
	ErrMalformed = errors.New("malformed table")
)

// TableOptions controls how a CSV table is read.
type TableOptions struct {
	// IndexColumn names the date (or year) column; empty means the first column.
	IndexColumn string
	// Delimiter separates fields; zero means ','.
	Delimiter rune
	// DecimalComma reads "1.234,56" style numbers.
	DecimalComma bool
}

// PriceTable is a date-indexed table of price levels, one column per
// instrument. Empty cells are held as NaN and skipped when a series is taken.
type PriceTable struct {
	dates   []time.Time
	columns []string
	values  map[string][]float64
}

// Dates returns the table index in ascending order.
func (pt *PriceTable) Dates() []time.Time {
	return append([]time.Time(nil), pt.dates...)
}

// Columns returns the instrument names in header order.
func (pt *PriceTable) Columns() []string {
	return append([]string(nil), pt.columns...)
}

// Len returns the number of rows.
func (pt *PriceTable) Len() int {
	return len(pt.dates)
}

// HasColumn reports whether name is an instrument column.
func (pt *PriceTable) HasColumn(name string) bool {
	_, ok := pt.values[name]
	return ok
}

// Series returns the non-empty cells of column name as a PriceSeries.
func (pt *PriceTable) Series(name string) (analytics.PriceSeries, error) {
	col, ok := pt.values[name]
	if !ok {
		return analytics.PriceSeries{}, fmt.Errorf("%w: %q (available: %s)",
			ErrMissingColumn, name, strings.Join(pt.columns, ", "))
	}
	points := make([]analytics.Point, 0, len(col))
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		points = append(points, analytics.Point{Date: pt.dates[i], Value: v})
	}
	return analytics.NewPriceSeries(name, points)
}

// ReadPriceTable parses a CSV price table. Rows are sorted by date; duplicate
// dates, unparsable numbers and non-positive prices are errors.
func ReadPriceTable(r io.Reader, opts TableOptions) (*PriceTable, error) {
	header, records, err := readAll(r, opts)
	if err != nil {
		return nil, err
	}
	indexIdx, err := indexColumn(header, opts.IndexColumn)
	if err != nil {
		return nil, err
	}

	type row struct {
		date   time.Time
		values []float64
	}
	var columns []string
	for i, name := range header {
		if i != indexIdx {
			columns = append(columns, name)
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no instrument columns besides %q", ErrMalformed, header[indexIdx])
	}

	rows := make([]row, 0, len(records))
	for line, record := range records {
		date, err := datetime.ParseDate(record[indexIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, line+2, err)
		}
		values := make([]float64, 0, len(columns))
		for i, cell := range record {
			if i == indexIdx {
				continue
			}
			v, err := parseNumber(cell, opts.DecimalComma)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", ErrMalformed, line+2, header[i], err)
			}
			if !math.IsNaN(v) && v <= 0 {
				return nil, fmt.Errorf("%w: row %d column %q: price %v must be positive", ErrMalformed, line+2, header[i], v)
			}
			values = append(values, v)
		}
		rows = append(rows, row{date: date, values: values})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	pt := &PriceTable{
		dates:   make([]time.Time, len(rows)),
		columns: columns,
		values:  make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		pt.values[c] = make([]float64, len(rows))
	}
	for i, r := range rows {
		if i > 0 && r.date.Equal(pt.dates[i-1]) {
			return nil, fmt.Errorf("%w: duplicate date %s", ErrMalformed, datetime.FormatDate(r.date))
		}
		pt.dates[i] = r.date
		for j, c := range columns {
			pt.values[c][i] = r.values[j]
		}
	}
	return pt, nil
}

func readAll(r io.Reader, opts TableOptions) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: empty table", ErrMalformed)
		}
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	seen := make(map[string]struct{}, len(header))
	for _, name := range header {
		if _, dup := seen[name]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate column %q", ErrMalformed, name)
		}
		seen[name] = struct{}{}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: no data rows", ErrMalformed)
	}
	return header, records, nil
}

func indexColumn(header []string, name string) (int, error) {
	if name == "" {
		return 0, nil
	}
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: index column %q", ErrMissingColumn, name)
}

// parseNumber reads a numeric cell. Empty cells and NaN markers yield NaN.
func parseNumber(cell string, decimalComma bool) (float64, error) {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "-":
		return math.NaN(), nil
	}
	if decimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", cell)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", cell)
	}
	return v, nil
}
