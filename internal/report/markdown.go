package report

import (
	"fmt"
	"strings"

	"github.com/iwvelando/moria-dashboard/pkg/format"
)

// Markdown renders the summary as a markdown document.
func Markdown(title string, s Summary, f format.Formatter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Period: **%s** to **%s**\n\n", s.Start, s.End)

	b.WriteString("| Metric | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Cumulative return | %s%% |\n", f.Number(s.CumulativeReturn, 2))
	if s.BandProbabilityErr != "" {
		b.WriteString("| Probability volatility in band | - |\n")
	} else {
		fmt.Fprintf(&b, "| Probability volatility in band | %s%% |\n", f.Number(s.BandProbability, 2))
	}
	fmt.Fprintf(&b, "| Mean volatility | %s%% |\n", f.Number(s.MeanVolatility, 2))

	if len(s.Funds) > 0 {
		b.WriteString("\n## Funds\n\n")
		for _, fund := range s.Funds {
			fmt.Fprintf(&b, "- %s\n", fund)
		}
	}

	p := s.Parameters
	b.WriteString("\n## Parameters\n\n")
	fmt.Fprintf(&b, "- Day-count thresholds: %s\n", joinInts(p.DayCountThresholds))
	fmt.Fprintf(&b, "- Volatility triggers: %s\n", joinPercents(p.VolatilityTriggers, f))
	fmt.Fprintf(&b, "- Concentration triggers: %s\n", joinPercents(p.ConcentrationTriggers, f))
	fmt.Fprintf(&b, "- Seed volatility: %s\n", f.Percent(p.SeedVolatility, 2))
	fmt.Fprintf(&b, "- Seed concentration: %s\n", f.Percent(p.SeedConcentration, 2))
	return b.String()
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

func joinPercents(values []float64, f format.Formatter) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = f.Percent(v, 2)
	}
	return strings.Join(parts, ", ")
}
