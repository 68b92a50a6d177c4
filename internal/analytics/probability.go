package analytics

import (
	"fmt"

	"github.com/iwvelando/moria-dashboard/pkg/mathutil"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// VolatilityBandProbability estimates the share of time the volatility spends
// within [low, high] by fitting a normal distribution to values (mean and
// sample standard deviation) and returning Phi(z_high) - Phi(z_low).
//
// Volatility is rarely normally distributed; callers treat the result as a
// rough indicator. With zero dispersion the fitted distribution collapses to
// its mean, giving 1 when the mean lies in the band and 0 otherwise.
func VolatilityBandProbability(values []float64, low, high float64) (float64, error) {
	if low > high {
		return 0, fmt.Errorf("%w: low %v above high %v", ErrBand, low, high)
	}
	var finite []float64
	for _, v := range values {
		if mathutil.IsFinite(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, fmt.Errorf("%w: no volatility values", ErrInsufficientData)
	}

	mean := stat.Mean(finite, nil)
	var sd float64
	if len(finite) > 1 {
		sd = stat.StdDev(finite, nil)
	}
	if mathutil.IsZero(sd) {
		if mean >= low && mean <= high {
			return 1, nil
		}
		return 0, nil
	}

	zHigh := (high - mean) / sd
	zLow := (low - mean) / sd
	return distuv.UnitNormal.CDF(zHigh) - distuv.UnitNormal.CDF(zLow), nil
}
