package config

import (
	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/pkg/constants"
)

func (a *AnalyticsConfig) applyDefaults() {
	if a.VolatilityWindow == 0 {
		a.VolatilityWindow = constants.DefaultVolatilityWindow
	}
	if a.PeriodsPerYear == 0 {
		a.PeriodsPerYear = constants.TradingDaysPerYear
	}
	if a.FillPolicy == "" {
		a.FillPolicy = string(analytics.FillMissing)
	}
	if a.VolatilityLow == 0 && a.VolatilityTarget == 0 && a.VolatilityHigh == 0 {
		a.VolatilityLow = constants.DefaultVolatilityLow
		a.VolatilityTarget = constants.DefaultVolatilityTarget
		a.VolatilityHigh = constants.DefaultVolatilityHigh
	}
}

// VolatilityOptions converts the configuration into analytics options. The
// fill policy must already have been validated.
func (a AnalyticsConfig) VolatilityOptions() analytics.VolatilityOptions {
	policy, err := analytics.ParseFillPolicy(a.FillPolicy)
	if err != nil {
		policy = analytics.FillMissing
	}
	return analytics.VolatilityOptions{
		Window:         a.VolatilityWindow,
		PeriodsPerYear: a.PeriodsPerYear,
		Policy:         policy,
		Low:            a.VolatilityLow,
		Target:         a.VolatilityTarget,
		High:           a.VolatilityHigh,
	}
}
