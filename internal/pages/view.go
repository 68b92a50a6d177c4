package pages

import (
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v5"
	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/internal/charts"
	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/internal/dataset"
	"github.com/iwvelando/moria-dashboard/internal/report"
	"github.com/iwvelando/moria-dashboard/pkg/datetime"
	"github.com/iwvelando/moria-dashboard/pkg/format"
)

// Params are the analysis settings a view is computed with.
type Params struct {
	Volatility    analytics.VolatilityOptions
	RatioDecimals int
	Locale        string
}

// ParamsFrom extracts view parameters from the configuration.
func ParamsFrom(conf *config.Configuration) Params {
	return Params{
		Volatility:    conf.Analytics.VolatilityOptions(),
		RatioDecimals: conf.Analytics.RatioDecimals,
		Locale:        conf.Locale,
	}
}

// SeriesReturns pairs a series name with its yearly return ratios.
type SeriesReturns struct {
	Name    string                  `json:"name"`
	Returns analytics.YearlyReturns `json:"returns"`
}

// View is everything an analytics page shows for one date range.
type View struct {
	Page  config.PageConfig `json:"page"`
	Start time.Time         `json:"start"`
	End   time.Time         `json:"end"`
	// First and Last bound the dates the range selector offers.
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`

	CumulativeReturn float64                      `json:"cumulativeReturn"`
	Cumulative       []analytics.NormalizedSeries `json:"cumulative"`
	Yearly           []SeriesReturns              `json:"yearly"`
	Pivot            *analytics.SpreadPivot       `json:"pivot,omitempty"`
	Heatmap          *charts.Heatmap              `json:"heatmap,omitempty"`
	Volatility       analytics.RollingVolatility  `json:"-"`
	BandProbability  null.Float                   `json:"bandProbability"`
	Weights          *dataset.WeightsTable        `json:"weights,omitempty"`
	Warnings         []string                     `json:"warnings,omitempty"`

	fund       analytics.PriceSeries
	benchmarks []analytics.PriceSeries
}

// Fund returns the fund prices over the selected range.
func (v *View) Fund() analytics.PriceSeries {
	return v.fund
}

// ReportInput returns what the summary record is computed from. The fund
// list comes from the weights table when the page has one.
func (v *View) ReportInput() report.Input {
	funds := []string{v.Page.Fund}
	if v.Weights != nil {
		funds = v.Weights.ActiveFunds()
	}
	return report.Input{Fund: v.fund, Volatility: v.Volatility, Funds: funds}
}

// Build computes the analytics view of a page over [start, end]. Zero bounds
// select the whole history. Bounds outside the fund's history are ErrRange;
// bounds that fall between observations snap to the nearest observation
// inside the range.
func Build(page config.PageConfig, table *dataset.PriceTable, weights *dataset.WeightsTable, params Params, start, end time.Time) (*View, error) {
	fullFund, err := table.Series(page.Fund)
	if err != nil {
		return nil, err
	}
	if fullFund.Empty() {
		return nil, fmt.Errorf("%w: fund %q has no prices", analytics.ErrRange, page.Fund)
	}
	if err := checkBounds(fullFund, start, end); err != nil {
		return nil, err
	}
	fund, err := fullFund.Within(start, end)
	if err != nil {
		return nil, err
	}

	first, last := fund.At(0).Date, fund.At(fund.Len()-1).Date
	v := &View{
		Page:    page,
		Start:   first,
		End:     last,
		First:   fullFund.At(0).Date,
		Last:    fullFund.At(fullFund.Len() - 1).Date,
		Weights: weights,
		fund:    fund,
	}

	norm, err := analytics.Normalize(fund, first, last)
	if err != nil {
		return nil, err
	}
	v.Cumulative = append(v.Cumulative, norm)
	v.CumulativeReturn = analytics.CumulativeReturn(fund)
	v.Yearly = append(v.Yearly, SeriesReturns{Name: page.Fund, Returns: analytics.YearlyReturnRatios(fund, params.RatioDecimals)})

	for _, name := range page.Benchmarks {
		full, err := table.Series(name)
		var bench analytics.PriceSeries
		if err == nil {
			bench, err = full.Within(first, last)
		}
		if err != nil {
			v.Warnings = append(v.Warnings, fmt.Sprintf("benchmark %s skipped: %v", name, err))
			continue
		}
		line, err := alignStart(full, bench, first)
		if err != nil {
			v.Warnings = append(v.Warnings, fmt.Sprintf("benchmark %s skipped: %v", name, err))
			continue
		}
		if began := line.At(0).Date; !began.Equal(first) {
			v.Warnings = append(v.Warnings, fmt.Sprintf("benchmark %s starts on %s, after the fund's first date %s",
				name, datetime.FormatDate(began), datetime.FormatDate(first)))
		}
		bnorm, err := analytics.Normalize(line, line.At(0).Date, line.At(line.Len()-1).Date)
		if err != nil {
			v.Warnings = append(v.Warnings, fmt.Sprintf("benchmark %s skipped: %v", name, err))
			continue
		}
		v.benchmarks = append(v.benchmarks, bench)
		v.Cumulative = append(v.Cumulative, bnorm)
		v.Yearly = append(v.Yearly, SeriesReturns{Name: name, Returns: analytics.YearlyReturnRatios(bench, params.RatioDecimals)})
	}

	if len(v.benchmarks) > 0 {
		pivot := analytics.MonthlySpreadPivot(fund, v.benchmarks[0])
		heatmap := charts.NewHeatmap(pivot, params.Locale, format.NewFormatter(params.Locale))
		v.Pivot = &pivot
		v.Heatmap = &heatmap
	}

	vol, err := analytics.RollingAnnualizedVolatility(fund, params.Volatility)
	if err != nil {
		return nil, err
	}
	v.Volatility = vol
	if prob, err := analytics.VolatilityBandProbability(vol.DefinedValues(), vol.Bands.Low, vol.Bands.High); err == nil {
		v.BandProbability = null.FloatFrom(prob)
	} else if errors.Is(err, analytics.ErrInsufficientData) {
		v.Warnings = append(v.Warnings, fmt.Sprintf("range too short for a %d-day volatility window", vol.Window))
	} else {
		return nil, err
	}
	return v, nil
}

// checkBounds rejects non-zero bounds outside the observed history of s.
func checkBounds(s analytics.PriceSeries, start, end time.Time) error {
	first, last := s.At(0).Date, s.At(s.Len()-1).Date
	if !start.IsZero() && datetime.Day(start).Before(first) {
		return fmt.Errorf("%w: start %s is before the first observation %s",
			analytics.ErrRange, datetime.FormatDate(start), datetime.FormatDate(first))
	}
	if !end.IsZero() && datetime.Day(end).After(last) {
		return fmt.Errorf("%w: end %s is after the last observation %s",
			analytics.ErrRange, datetime.FormatDate(end), datetime.FormatDate(last))
	}
	return nil
}

// alignStart makes a benchmark line start on the fund's first date so every
// cumulative line shares one base date. A benchmark with no price on that
// date carries its latest earlier price forward; one with no earlier price is
// returned unchanged.
func alignStart(history, bench analytics.PriceSeries, first time.Time) (analytics.PriceSeries, error) {
	if bench.At(0).Date.Equal(first) {
		return bench, nil
	}
	i, _ := history.IndexOf(first)
	if i == 0 {
		return bench, nil
	}
	points := append([]analytics.Point{{Date: first, Value: history.At(i - 1).Value}}, bench.Points()...)
	return analytics.NewPriceSeries(bench.Name(), points)
}

// VolatilityJSON is the wire form of a volatility point. Warm-up points left
// undefined by the fill policy are null.
type VolatilityJSON struct {
	Date   string     `json:"date"`
	Value  null.Float `json:"value"`
	Filled bool       `json:"filled,omitempty"`
}

// VolatilitySeries converts the rolling volatility to its wire form.
func (v *View) VolatilitySeries() []VolatilityJSON {
	out := make([]VolatilityJSON, len(v.Volatility.Points))
	for i, p := range v.Volatility.Points {
		out[i] = VolatilityJSON{Date: datetime.FormatDate(p.Date), Filled: p.Filled}
		if p.Valid() {
			out[i].Value = null.FloatFrom(p.Value)
		}
	}
	return out
}
