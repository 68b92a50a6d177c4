package config

import (
	"fmt"

	"github.com/iwvelando/moria-dashboard/internal/analytics"
	"github.com/iwvelando/moria-dashboard/pkg/validation"
)

// Validate rejects configurations the dashboard cannot run with.
func (conf *Configuration) Validate() error {
	a := conf.Analytics
	if a.VolatilityWindow < 2 {
		return fmt.Errorf("analytics.volatilityWindow must be at least 2, got %d", a.VolatilityWindow)
	}
	if a.PeriodsPerYear <= 0 {
		return fmt.Errorf("analytics.periodsPerYear must be positive, got %d", a.PeriodsPerYear)
	}
	if _, err := analytics.ParseFillPolicy(a.FillPolicy); err != nil {
		return fmt.Errorf("analytics.fillPolicy: %w", err)
	}
	if a.VolatilityLow > a.VolatilityHigh {
		return fmt.Errorf("analytics.volatilityLow %v is above analytics.volatilityHigh %v", a.VolatilityLow, a.VolatilityHigh)
	}
	if a.RatioDecimals < 0 || a.RatioDecimals > 8 {
		return fmt.Errorf("analytics.ratioDecimals must be between 0 and 8, got %d", a.RatioDecimals)
	}

	sourceNames := make(map[string]string, len(conf.Sources))
	for _, s := range conf.Sources {
		if s.Name == "" {
			return fmt.Errorf("source name cannot be empty")
		}
		if _, dup := sourceNames[s.Name]; dup {
			return fmt.Errorf("duplicate source %q", s.Name)
		}
		if s.Kind != SourcePrices && s.Kind != SourceWeights {
			return fmt.Errorf("source %q has unknown kind %q", s.Name, s.Kind)
		}
		if s.Path == "" {
			return fmt.Errorf("source %q has no path", s.Name)
		}
		if len([]rune(s.Delimiter)) != 1 {
			return fmt.Errorf("source %q delimiter must be a single character, got %q", s.Name, s.Delimiter)
		}
		sourceNames[s.Name] = s.Kind
	}

	slugs := make(map[string]struct{}, len(conf.Pages))
	for _, p := range conf.Pages {
		if p.Name == "" {
			return fmt.Errorf("page name cannot be empty")
		}
		if p.Slug == "" {
			return fmt.Errorf("page %q has an empty slug", p.Name)
		}
		if _, dup := slugs[p.Slug]; dup {
			return fmt.Errorf("duplicate page slug %q", p.Slug)
		}
		slugs[p.Slug] = struct{}{}

		switch p.Kind {
		case PageMarkdown:
		case PageUpload:
			if p.Fund == "" {
				return fmt.Errorf("page %q needs a fund column", p.Name)
			}
		case PageAnalytics:
			if kind, ok := sourceNames[p.Source]; !ok || kind != SourcePrices {
				return fmt.Errorf("page %q references unknown prices source %q", p.Name, p.Source)
			}
			if p.Weights != "" {
				if kind, ok := sourceNames[p.Weights]; !ok || kind != SourceWeights {
					return fmt.Errorf("page %q references unknown weights source %q", p.Name, p.Weights)
				}
			}
			if p.Fund == "" {
				return fmt.Errorf("page %q needs a fund column", p.Name)
			}
		default:
			return fmt.Errorf("page %q has unknown kind %q", p.Name, p.Kind)
		}
	}

	if conf.Output.Format != "" {
		if err := validation.ValidateOutputFormat(conf.Output.Format); err != nil {
			return err
		}
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings for settings that work but are probably unintended.
func (conf *Configuration) ValidateConfiguration() []string {
	validator := validation.PageValidator{KnownCharts: AllCharts}
	for _, p := range conf.Pages {
		validator.Pages = append(validator.Pages, validation.PageInfo{
			Name:       p.Name,
			Kind:       p.Kind,
			Fund:       p.Fund,
			Benchmarks: p.Benchmarks,
			Charts:     p.Charts,
			HasWeights: p.Weights != "",
		})
	}
	warnings := validator.ValidateAll()

	a := conf.Analytics
	if a.VolatilityTarget < a.VolatilityLow || a.VolatilityTarget > a.VolatilityHigh {
		warnings = append(warnings, fmt.Sprintf("volatility target %v lies outside the band [%v, %v]",
			a.VolatilityTarget, a.VolatilityLow, a.VolatilityHigh))
	}
	if conf.Report.Page != "" {
		if p, ok := conf.Page(conf.Report.Page); !ok || p.Kind != PageAnalytics {
			warnings = append(warnings, fmt.Sprintf("report page %q is not an analytics page", conf.Report.Page))
		}
	}
	return warnings
}
