// Package format renders analytic values for display.
package format

import (
	"fmt"
	"math"

	"github.com/iwvelando/moria-dashboard/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter formats percentages and index levels for a display locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a Formatter for the BCP 47 locale tag. Unknown or empty
// tags fall back to English.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.English
	}
	return Formatter{printer: message.NewPrinter(tag)}
}

// Percent renders a ratio as a percentage with the given decimals, e.g.
// 0.1234 -> "12.34%" (or "12,34%" for pt-BR). Non-finite values render as "-".
func (f Formatter) Percent(ratio float64, decimals int) string {
	if !mathutil.IsFinite(ratio) {
		return "-"
	}
	value := mathutil.RoundTo(mathutil.ToPercent(ratio), decimals)
	if value == 0 {
		value = math.Abs(value)
	}
	return f.p().Sprintf(fmt.Sprintf("%%.%df%%%%", decimals), value)
}

// Number renders a plain number with grouping separators.
func (f Formatter) Number(value float64, decimals int) string {
	if !mathutil.IsFinite(value) {
		return "-"
	}
	return f.p().Sprintf(fmt.Sprintf("%%.%df", decimals), mathutil.RoundTo(value, decimals))
}

// p returns the printer; the zero Formatter prints English.
func (f Formatter) p() *message.Printer {
	if f.printer == nil {
		return message.NewPrinter(language.English)
	}
	return f.printer
}
