// Package report computes the backtest summary record and persists it
// through a Sink.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/pkg/datetime"
	"github.com/iwvelando/moria-dashboard/pkg/mathutil"
	"go.uber.org/zap"
)

// percentDecimals is the precision of the percentage fields.
const percentDecimals = 2

// Summary is the persisted report record. Percentages are stored as
// percentage points, e.g. 12.5 for 12.5%.
type Summary struct {
	CumulativeReturn   float64                 `json:"cumulativeReturn"`
	BandProbability    float64                 `json:"bandProbability"`
	MeanVolatility     float64                 `json:"meanVolatility"`
	Funds              []string                `json:"funds"`
	Start              string                  `json:"start"`
	End                string                  `json:"end"`
	Parameters         config.ReportParameters `json:"parameters"`
	GeneratedAt        time.Time               `json:"generatedAt"`
	BandProbabilityErr string                  `json:"bandProbabilityError,omitempty"`
}

// Input is what a summary is computed from: the fund prices over the
// selected range and the rolling volatility of that range.
type Input struct {
	Fund       analytics.PriceSeries
	Volatility analytics.RollingVolatility
	Funds      []string
}

// Generate computes a summary from in, keeping the parameter set of the
// record already held by sink and seeding it from seed when there is none.
// The result is written back to the sink in full.
func Generate(logger *zap.Logger, sink Sink, in Input, seed config.ReportParameters, now time.Time) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if in.Fund.Len() < 2 {
		return Summary{}, fmt.Errorf("%w: report needs at least 2 observations, got %d",
			analytics.ErrInsufficientData, in.Fund.Len())
	}

	params := seed
	previous, err := sink.Load()
	switch {
	case err == nil:
		params = previous.Parameters
	case errors.Is(err, ErrNoSummary):
		logger.Debug("no previous summary, seeding parameters",
			zap.String("op", "report.Generate"),
		)
	default:
		return Summary{}, fmt.Errorf("failed to load previous summary: %w", err)
	}

	first, last := in.Fund.At(0), in.Fund.At(in.Fund.Len()-1)
	summary := Summary{
		CumulativeReturn: mathutil.RoundTo(mathutil.ToPercent(analytics.CumulativeReturn(in.Fund)), percentDecimals),
		Funds:            append([]string{}, in.Funds...),
		Start:            datetime.FormatDate(first.Date),
		End:              datetime.FormatDate(last.Date),
		Parameters:       params,
		GeneratedAt:      now.UTC(),
	}

	defined := in.Volatility.DefinedValues()
	summary.MeanVolatility = mathutil.RoundTo(mathutil.ToPercent(in.Volatility.Bands.Average), percentDecimals)
	prob, err := analytics.VolatilityBandProbability(defined, in.Volatility.Bands.Low, in.Volatility.Bands.High)
	if err != nil {
		// Short ranges still get a summary; the probability is reported as 0.
		summary.BandProbabilityErr = err.Error()
		logger.Warn("band probability unavailable",
			zap.String("op", "report.Generate"),
			zap.Int("definedPoints", len(defined)),
			zap.Error(err),
		)
	} else {
		summary.BandProbability = mathutil.RoundTo(mathutil.ToPercent(prob), percentDecimals)
	}

	if err := sink.Save(summary); err != nil {
		return Summary{}, fmt.Errorf("failed to store summary: %w", err)
	}
	logger.Info("summary generated",
		zap.String("op", "report.Generate"),
		zap.String("start", summary.Start),
		zap.String("end", summary.End),
		zap.Float64("cumulativeReturn", summary.CumulativeReturn),
		zap.Float64("bandProbability", summary.BandProbability),
	)
	return summary, nil
}
