// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"strings"
)

// PageInfo is the subset of a page definition checked for warnings.
type PageInfo struct {
	Name       string
	Kind       string
	Fund       string
	Benchmarks []string
	Charts     []string
	HasWeights bool
}

// PageValidator checks page definitions for settings that load but are
// probably mistakes.
type PageValidator struct {
	KnownCharts []string
	Pages       []PageInfo
}

// ValidateCharts warns about unknown or repeated chart kinds on one page.
func ValidateCharts(pageName string, charts, known []string) []string {
	var warnings []string
	seen := make(map[string]struct{}, len(charts))
	for _, c := range charts {
		if _, dup := seen[c]; dup {
			warnings = append(warnings, fmt.Sprintf("Page '%s' lists chart '%s' more than once", pageName, c))
			continue
		}
		seen[c] = struct{}{}
		if !contains(known, c) {
			warnings = append(warnings, fmt.Sprintf("Page '%s' lists unknown chart '%s' (known: %s)",
				pageName, c, strings.Join(known, ", ")))
		}
	}
	return warnings
}

// ValidateAll validates every page and returns warnings
func (pv *PageValidator) ValidateAll() []string {
	var warnings []string
	for _, p := range pv.Pages {
		if p.Kind != "analytics" {
			continue
		}
		warnings = append(warnings, ValidateCharts(p.Name, p.Charts, pv.KnownCharts)...)

		if len(p.Benchmarks) == 0 {
			warnings = append(warnings, fmt.Sprintf("Page '%s' has no benchmark - spread heatmap and benchmark series are skipped", p.Name))
		}
		if contains(p.Benchmarks, p.Fund) {
			warnings = append(warnings, fmt.Sprintf("Page '%s' uses fund column '%s' as its own benchmark", p.Name, p.Fund))
		}
		if contains(p.Charts, "weights") && !p.HasWeights {
			warnings = append(warnings, fmt.Sprintf("Page '%s' draws weights without a weights source", p.Name))
		}
	}
	return warnings
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
