// Package config defines the data structures related to configuration and
// includes functions for loading and validating the dashboard config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DateLayout is the format expected for dates in config files and queries.
const DateLayout = constants.DateLayout

// Configuration holds all configuration for the dashboard.
type Configuration struct {
	Title     string          `yaml:"title,omitempty"`
	Locale    string          `yaml:"locale,omitempty"`
	Sources   []SourceConfig  `yaml:"sources,omitempty"`
	Pages     []PageConfig    `yaml:"pages,omitempty"`
	Analytics AnalyticsConfig `yaml:"analytics,omitempty"`
	Report    ReportConfig    `yaml:"report,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Output    OutputConfig    `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, markdown
}

// SourceConfig describes one tabular input file.
type SourceConfig struct {
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind"` // prices, weights
	Path         string `yaml:"path"`
	IndexColumn  string `yaml:"indexColumn,omitempty"` // date column for prices, year column for weights
	Delimiter    string `yaml:"delimiter,omitempty"`
	DecimalComma bool   `yaml:"decimalComma,omitempty"`
}

// AnalyticsConfig parameterizes the return and volatility computations.
type AnalyticsConfig struct {
	VolatilityWindow int     `yaml:"volatilityWindow,omitempty"`
	PeriodsPerYear   int     `yaml:"periodsPerYear,omitempty"`
	FillPolicy       string  `yaml:"fillPolicy,omitempty"` // missing, backfill, zero
	VolatilityLow    float64 `yaml:"volatilityLow,omitempty"`
	VolatilityTarget float64 `yaml:"volatilityTarget,omitempty"`
	VolatilityHigh   float64 `yaml:"volatilityHigh,omitempty"`
	RatioDecimals    int     `yaml:"ratioDecimals,omitempty"`
}

// ReportConfig locates the summary record and seeds its parameter set the
// first time it is written.
type ReportConfig struct {
	SummaryPath string           `yaml:"summaryPath,omitempty"`
	Page        string           `yaml:"page,omitempty"`
	Parameters  ReportParameters `yaml:"parameters,omitempty"`
}

// ReportParameters is the fixed parameter set carried by the summary record.
type ReportParameters struct {
	DayCountThresholds    []int     `yaml:"dayCountThresholds,omitempty" json:"dayCountThresholds"`
	VolatilityTriggers    []float64 `yaml:"volatilityTriggers,omitempty" json:"volatilityTriggers"`
	ConcentrationTriggers []float64 `yaml:"concentrationTriggers,omitempty" json:"concentrationTriggers"`
	SeedVolatility        float64   `yaml:"seedVolatility,omitempty" json:"seedVolatility"`
	SeedConcentration     float64   `yaml:"seedConcentration,omitempty" json:"seedConcentration"`
}

// LoadEnv loads variables from a .env file when present. A missing file is
// not an error.
func LoadEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if fileExists(p) {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Keys can be overridden by MORIA_-prefixed environment
// variables, e.g. MORIA_ANALYTICS_VOLATILITYWINDOW=42.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

// Default returns the configuration used when only defaults apply.
func Default() *Configuration {
	conf := &Configuration{
		Analytics: AnalyticsConfig{RatioDecimals: constants.DefaultRatioDecimals},
	}
	conf.ApplyDefaults()
	return conf
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("title", "Fundo Moria")
	v.SetDefault("locale", "pt-BR")
	v.SetDefault("analytics.volatilityWindow", constants.DefaultVolatilityWindow)
	v.SetDefault("analytics.periodsPerYear", constants.TradingDaysPerYear)
	v.SetDefault("analytics.fillPolicy", "missing")
	v.SetDefault("analytics.volatilityLow", constants.DefaultVolatilityLow)
	v.SetDefault("analytics.volatilityTarget", constants.DefaultVolatilityTarget)
	v.SetDefault("analytics.volatilityHigh", constants.DefaultVolatilityHigh)
	v.SetDefault("analytics.ratioDecimals", constants.DefaultRatioDecimals)
	v.SetDefault("report.summaryPath", "summary.json")
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.ApplyDefaults()
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}
