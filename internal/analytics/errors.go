package analytics

import "errors"

var (
	// ErrRange reports an empty date range or dates outside the series index.
	ErrRange = errors.New("invalid date range")

	// ErrDegenerateRange reports a range whose first value is zero or not a
	// number, which would put infinities into a normalized series.
	ErrDegenerateRange = errors.New("degenerate date range")

	// ErrInvalidSeries reports unsorted, duplicated or non-positive observations.
	ErrInvalidSeries = errors.New("invalid price series")

	// ErrWindow reports a rolling window too small to hold a deviation.
	ErrWindow = errors.New("invalid rolling window")

	// ErrInsufficientData reports a computation with no defined inputs.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrBand reports a probability band with low above high.
	ErrBand = errors.New("invalid volatility band")
)
