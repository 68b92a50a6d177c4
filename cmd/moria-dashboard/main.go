// Command moria-dashboard serves the fund dashboard and runs its analyses
// from the terminal.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/iwvelando/moria-dashboard/internal/config"
	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configLocation = flag.String("config", constants.DefaultConfigFile, "path to dashboard configuration file")
	envFile        = flag.String("env-file", ".env", "optional file of environment overrides")
	logLevel       = flag.String("log-level", "", "log level override (debug, info, warn, error)")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&serveCmd{}, "dashboard")
	commander.Register(&analyzeCmd{}, "analytics")
	commander.Register(&reportCmd{}, "analytics")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}

// setup loads the environment file, the dashboard configuration at
// configPath and the logger it describes.
func setup(configPath string, override *config.LoggingConfig) (*config.Configuration, *zap.Logger, bool) {
	if err := config.LoadEnv(*envFile); err != nil {
		fatalf("failed to load environment file", err)
		return nil, nil, false
	}

	conf, err := config.LoadConfiguration(configPath)
	if err != nil {
		fatalf("failed to load configuration at "+configPath, err)
		return nil, nil, false
	}

	loggingConfig := conf.Logging
	if override != nil && *override != (config.LoggingConfig{}) {
		loggingConfig = *override
	}
	logger, err := initializeLogger(loggingConfig, *logLevel)
	if err != nil {
		fatalf("failed to initialize logger", err)
		return nil, nil, false
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.setup"),
		)
	}
	return conf, logger, true
}

// printMarkdown renders markdown for the terminal.
func printMarkdown(w io.Writer, md string) error {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	out, err := renderer.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// flagSet reports whether the named global flag was given on the command line.
func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
