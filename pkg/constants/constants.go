// Package constants provides shared constants for the moria-dashboard application.
package constants

// DateLayout is the canonical date format used in price tables, query
// parameters and report records.
const DateLayout = "2006-01-02"

// Market constants
const (
	// TradingDaysPerYear is the annualization factor for daily observations
	TradingDaysPerYear = 252

	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DefaultVolatilityWindow is the trailing window, in observations, of the
	// rolling volatility
	DefaultVolatilityWindow = 21

	// DefaultRatioDecimals is the rounding applied to yearly return ratios
	DefaultRatioDecimals = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Volatility reference bands. These are policy thresholds, not statistics.
const (
	DefaultVolatilityLow    = 0.05
	DefaultVolatilityTarget = 0.10
	DefaultVolatilityHigh   = 0.12
)

// Heatmap colour scale bounds; spreads outside are clamped.
const (
	HeatmapMin = -0.02
	HeatmapMax = 0.02
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatMarkdown renders the report as terminal markdown
	OutputFormatMarkdown = "markdown"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes environment overrides of the dashboard configuration
	EnvPrefix = "MORIA"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the web UI
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for price tables (4 MB)
	DefaultMaxUploadSizeBytes int64 = 4 * 1024 * 1024

	// DefaultShutdownTimeoutSeconds bounds graceful shutdown
	DefaultShutdownTimeoutSeconds = 10
)

// Comparison tolerance for floating point results
const FloatTolerance = 1e-9
