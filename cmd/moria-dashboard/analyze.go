package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"github.com/iwvelando/moria-dashboard/pkg/output"
	"github.com/iwvelando/moria-dashboard/pkg/validation"
	"go.uber.org/zap"
)

type analyzeCmd struct {
	sel          selection
	outputFormat string
	svgDir       string
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "print yearly returns, monthly spreads and volatility of a page" }
func (*analyzeCmd) Usage() string {
	return `moria-dashboard [-config <file>] analyze [-page <slug>] [-start <date>] [-end <date>] [-file <csv>]

  Computes the analytics of a backtest page over a date range and prints them.
  With -file, the given price table is analysed instead of the configured source.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	setSelectionFlags(f, &c.sel)
	f.StringVar(&c.sel.file, "file", "", "price table to analyse instead of the configured source")
	f.StringVar(&c.sel.delimiter, "delimiter", "", "field delimiter of -file")
	f.BoolVar(&c.sel.decimalComma, "decimal-comma", false, "-file uses a decimal comma")
	f.StringVar(&c.outputFormat, "output-format", "", "type of output override: pretty, csv, markdown")
	f.StringVar(&c.svgDir, "svg-dir", "", "also write the page charts as SVG files to this directory")
}

func setSelectionFlags(f *flag.FlagSet, sel *selection) {
	f.StringVar(&sel.page, "page", "", "page slug; defaults to the report page")
	f.StringVar(&sel.start, "start", "", "first date of the range (YYYY-MM-DD)")
	f.StringVar(&sel.end, "end", "", "last date of the range (YYYY-MM-DD)")
}

func (c *analyzeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, logger, ok := setup(*configLocation, nil)
	if !ok {
		return subcommands.ExitFailure
	}
	defer func() {
		_ = logger.Sync()
	}()

	outputFormat := conf.Output.Format
	if c.outputFormat != "" {
		outputFormat = c.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Error(err.Error(), zap.String("op", "main.analyze"))
		return subcommands.ExitUsageError
	}

	view, registry, err := loadView(ctx, logger, conf, c.sel)
	if err != nil {
		logger.Error("failed to compute analytics",
			zap.String("op", "main.analyze"),
			zap.Error(err),
		)
		return subcommands.ExitFailure
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(os.Stdout, view, conf.Locale)
	case constants.OutputFormatCSV:
		output.CsvFormat(os.Stdout, view, conf.Locale)
	case constants.OutputFormatMarkdown:
		var buf bytes.Buffer
		output.MarkdownFormat(&buf, view, conf.Locale)
		if err := printMarkdown(os.Stdout, buf.String()); err != nil {
			logger.Error("failed to render markdown",
				zap.String("op", "main.analyze"),
				zap.Error(err),
			)
			return subcommands.ExitFailure
		}
	}

	if c.svgDir != "" {
		written, err := exportCharts(logger, c.svgDir, view, registry)
		if err != nil {
			logger.Error("failed to export charts",
				zap.String("op", "main.analyze"),
				zap.Error(err),
			)
			return subcommands.ExitFailure
		}
		for _, name := range written {
			fmt.Fprintf(os.Stderr, "wrote %s\n", name)
		}
	}
	return subcommands.ExitSuccess
}
