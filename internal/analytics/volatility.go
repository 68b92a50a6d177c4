package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"github.com/iwvelando/moria-dashboard/pkg/mathutil"
	"gonum.org/v1/gonum/stat"
)

// FillPolicy decides what the warm-up points of a rolling volatility hold
// before the first full window.
type FillPolicy string

const (
	// FillMissing leaves warm-up points undefined.
	FillMissing FillPolicy = "missing"
	// FillBackfill copies the first defined value onto the warm-up points.
	FillBackfill FillPolicy = "backfill"
	// FillZero sets warm-up points to 0.
	FillZero FillPolicy = "zero"
)

// ParseFillPolicy parses a policy name; an empty name is FillMissing.
func ParseFillPolicy(name string) (FillPolicy, error) {
	switch FillPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", FillMissing:
		return FillMissing, nil
	case FillBackfill:
		return FillBackfill, nil
	case FillZero:
		return FillZero, nil
	default:
		return "", fmt.Errorf("unknown fill policy %q (expected %s, %s or %s)",
			name, FillMissing, FillBackfill, FillZero)
	}
}

// VolatilityOptions parameterizes RollingAnnualizedVolatility.
type VolatilityOptions struct {
	Window         int
	PeriodsPerYear int
	Policy         FillPolicy
	Low            float64
	Target         float64
	High           float64
}

// DefaultVolatilityOptions returns a 21-observation window annualized over
// 252 trading days with the 5% / 10% / 12% policy bands.
func DefaultVolatilityOptions() VolatilityOptions {
	return VolatilityOptions{
		Window:         constants.DefaultVolatilityWindow,
		PeriodsPerYear: constants.TradingDaysPerYear,
		Policy:         FillMissing,
		Low:            constants.DefaultVolatilityLow,
		Target:         constants.DefaultVolatilityTarget,
		High:           constants.DefaultVolatilityHigh,
	}
}

// VolatilityPoint is the annualized volatility on one date. Defined is false
// for warm-up points; Filled marks warm-up points given a value by the policy.
type VolatilityPoint struct {
	Date    time.Time `json:"date"`
	Value   float64   `json:"value"`
	Defined bool      `json:"defined"`
	Filled  bool      `json:"filled,omitempty"`
}

// Valid reports whether the point carries a value, computed or filled.
func (p VolatilityPoint) Valid() bool {
	return p.Defined || p.Filled
}

// Bands are the constant reference lines drawn with the volatility. Average
// is the mean of the defined points; the rest are fixed policy thresholds.
type Bands struct {
	Average float64 `json:"average"`
	Low     float64 `json:"low"`
	Target  float64 `json:"target"`
	High    float64 `json:"high"`
}

// RollingVolatility is a rolling annualized volatility series.
type RollingVolatility struct {
	Window int               `json:"window"`
	Policy FillPolicy        `json:"policy"`
	Points []VolatilityPoint `json:"points"`
	Bands  Bands             `json:"bands"`
}

// DefinedValues returns the computed values, excluding warm-up points
// whatever the fill policy.
func (rv RollingVolatility) DefinedValues() []float64 {
	var values []float64
	for _, p := range rv.Points {
		if p.Defined {
			values = append(values, p.Value)
		}
	}
	return values
}

// RollingAnnualizedVolatility computes the day-over-day percentage change of
// series, the sample standard deviation of each trailing window of
// opts.Window changes, and scales it by sqrt(opts.PeriodsPerYear).
//
// The result has one point per observation. The first observation has no
// change, so the first opts.Window points are warm-up points handled by
// opts.Policy.
func RollingAnnualizedVolatility(series PriceSeries, opts VolatilityOptions) (RollingVolatility, error) {
	if opts.Window < 2 {
		return RollingVolatility{}, fmt.Errorf("%w: window %d must be at least 2", ErrWindow, opts.Window)
	}
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = constants.TradingDaysPerYear
	}
	if opts.Policy == "" {
		opts.Policy = FillMissing
	}

	changes := series.PercentChanges()
	out := RollingVolatility{
		Window: opts.Window,
		Policy: opts.Policy,
		Points: make([]VolatilityPoint, series.Len()),
		Bands:  Bands{Low: opts.Low, Target: opts.Target, High: opts.High},
	}

	firstDefined := -1
	for i := range out.Points {
		out.Points[i].Date = series.points[i].Date
		// changes[i-1] is the change into observation i.
		if i < opts.Window {
			continue
		}
		window := changes[i-opts.Window : i]
		out.Points[i].Value = mathutil.Annualize(stat.StdDev(window, nil), opts.PeriodsPerYear)
		out.Points[i].Defined = true
		if firstDefined < 0 {
			firstDefined = i
		}
	}

	if firstDefined > 0 {
		switch opts.Policy {
		case FillBackfill:
			for i := 0; i < firstDefined; i++ {
				out.Points[i].Value = out.Points[firstDefined].Value
				out.Points[i].Filled = true
			}
		case FillZero:
			for i := 0; i < firstDefined; i++ {
				out.Points[i].Filled = true
			}
		}
	}

	if defined := out.DefinedValues(); len(defined) > 0 {
		out.Bands.Average = stat.Mean(defined, nil)
	}
	return out, nil
}
