package dataset

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// WeightsRow holds the allocation of one year.
type WeightsRow struct {
	Year    int       `json:"year"`
	Weights []float64 `json:"weights"`
}

// WeightsTable is a year-indexed table of portfolio allocation weights.
type WeightsTable struct {
	Funds []string     `json:"funds"`
	Rows  []WeightsRow `json:"rows"`
}

// Years returns the table index.
func (wt *WeightsTable) Years() []int {
	years := make([]int, len(wt.Rows))
	for i, r := range wt.Rows {
		years[i] = r.Year
	}
	return years
}

// Year returns the weights of one year keyed by fund.
func (wt *WeightsTable) Year(year int) (map[string]float64, bool) {
	for _, r := range wt.Rows {
		if r.Year != year {
			continue
		}
		out := make(map[string]float64, len(wt.Funds))
		for i, f := range wt.Funds {
			out[f] = r.Weights[i]
		}
		return out, true
	}
	return nil, false
}

// ActiveFunds returns the funds with a positive weight in any year, in
// header order.
func (wt *WeightsTable) ActiveFunds() []string {
	var funds []string
	for i, f := range wt.Funds {
		for _, r := range wt.Rows {
			if r.Weights[i] > 0 {
				funds = append(funds, f)
				break
			}
		}
	}
	return funds
}

// ReadWeightsTable parses a CSV of yearly weights. Empty cells are 0 weight.
func ReadWeightsTable(r io.Reader, opts TableOptions) (*WeightsTable, error) {
	header, records, err := readAll(r, opts)
	if err != nil {
		return nil, err
	}
	indexIdx, err := indexColumn(header, opts.IndexColumn)
	if err != nil {
		return nil, err
	}

	wt := &WeightsTable{}
	for i, name := range header {
		if i != indexIdx {
			wt.Funds = append(wt.Funds, name)
		}
	}
	if len(wt.Funds) == 0 {
		return nil, fmt.Errorf("%w: no fund columns besides %q", ErrMalformed, header[indexIdx])
	}

	seen := make(map[int]struct{}, len(records))
	for line, record := range records {
		year, err := strconv.Atoi(strings.TrimSpace(record[indexIdx]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid year %q", ErrMalformed, line+2, record[indexIdx])
		}
		if _, dup := seen[year]; dup {
			return nil, fmt.Errorf("%w: duplicate year %d", ErrMalformed, year)
		}
		seen[year] = struct{}{}

		row := WeightsRow{Year: year, Weights: make([]float64, 0, len(wt.Funds))}
		for i, cell := range record {
			if i == indexIdx {
				continue
			}
			v, err := parseNumber(cell, opts.DecimalComma)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", ErrMalformed, line+2, header[i], err)
			}
			if math.IsNaN(v) {
				v = 0
			}
			if v < 0 {
				return nil, fmt.Errorf("%w: row %d column %q: negative weight %v", ErrMalformed, line+2, header[i], v)
			}
			row.Weights = append(row.Weights, v)
		}
		wt.Rows = append(wt.Rows, row)
	}

	sort.Slice(wt.Rows, func(i, j int) bool { return wt.Rows[i].Year < wt.Rows[j].Year })
	return wt, nil
}
