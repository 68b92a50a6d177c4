package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/iwvelando/moria-dashboard/internal/report"
	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"github.com/iwvelando/moria-dashboard/pkg/format"
	"github.com/iwvelando/moria-dashboard/pkg/output"
	"github.com/iwvelando/moria-dashboard/pkg/validation"
	"go.uber.org/zap"
)

type reportCmd struct {
	sel          selection
	summaryPath  string
	outputFormat string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "compute and store the summary record of a page" }
func (*reportCmd) Usage() string {
	return `moria-dashboard [-config <file>] report [-page <slug>] [-start <date>] [-end <date>]

  Computes cumulative return, mean volatility and the probability of staying in
  the volatility band, stores them in the summary file and prints them. The
  parameter set already stored in the summary file is kept.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	setSelectionFlags(f, &c.sel)
	f.StringVar(&c.summaryPath, "summary", "", "summary file override")
	f.StringVar(&c.outputFormat, "output-format", constants.OutputFormatMarkdown, "type of output: markdown, pretty, csv")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, logger, ok := setup(*configLocation, nil)
	if !ok {
		return subcommands.ExitFailure
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := validation.ValidateOutputFormat(c.outputFormat); err != nil {
		logger.Error(err.Error(), zap.String("op", "main.report"))
		return subcommands.ExitUsageError
	}

	view, _, err := loadView(ctx, logger, conf, c.sel)
	if err != nil {
		logger.Error("failed to compute analytics",
			zap.String("op", "main.report"),
			zap.Error(err),
		)
		return subcommands.ExitFailure
	}

	path := conf.Report.SummaryPath
	if c.summaryPath != "" {
		path = c.summaryPath
	}
	summary, err := report.Generate(logger, report.NewFileSink(path), view.ReportInput(), conf.Report.Parameters, time.Now())
	if err != nil {
		logger.Error("failed to generate summary",
			zap.String("op", "main.report"),
			zap.String("path", path),
			zap.Error(err),
		)
		return subcommands.ExitFailure
	}

	switch c.outputFormat {
	case constants.OutputFormatMarkdown:
		md := report.Markdown(conf.Title, summary, format.NewFormatter(conf.Locale))
		if err := printMarkdown(os.Stdout, md); err != nil {
			logger.Error("failed to render markdown",
				zap.String("op", "main.report"),
				zap.Error(err),
			)
			return subcommands.ExitFailure
		}
	case constants.OutputFormatPretty:
		output.SummaryPrettyFormat(os.Stdout, summary)
	case constants.OutputFormatCSV:
		output.SummaryCsvFormat(os.Stdout, summary)
	}
	return subcommands.ExitSuccess
}
