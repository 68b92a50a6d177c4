// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"github.com/shopspring/decimal"
)

// RoundTo rounds a value half away from zero to the given number of decimal
// places. Binary float artefacts such as 110/100-1 = 0.10000000000000009 are
// resolved on the decimal representation rather than on the float.
func RoundTo(val float64, places int) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	return decimal.NewFromFloat(val).Round(int32(places)).InexactFloat64()
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.FloatTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Clamp bounds val to [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// ToPercent converts a ratio to a percentage, e.g. 0.1 -> 10.
func ToPercent(ratio float64) float64 {
	return ratio * constants.PercentageMultiplier
}

// Annualize scales a per-period standard deviation by the square root of the
// number of periods per year.
func Annualize(stdDev float64, periodsPerYear int) float64 {
	return stdDev * math.Sqrt(float64(periodsPerYear))
}
