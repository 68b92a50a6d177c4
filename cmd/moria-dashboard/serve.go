package main

import (
	"context"
	"errors"
	"flag"
	"net/http"

	"github.com/google/subcommands"
	"github.com/iwvelando/moria-dashboard/internal/dataset"
	"github.com/iwvelando/moria-dashboard/internal/pages"
	"github.com/iwvelando/moria-dashboard/internal/report"
	"github.com/iwvelando/moria-dashboard/internal/server"
	"github.com/iwvelando/moria-dashboard/pkg/constants"
	"go.uber.org/zap"
)

type serveCmd struct {
	serverConfig string
	address      string
	contentDir   string
	maxUpload    string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dashboard over HTTP" }
func (*serveCmd) Usage() string {
	return `moria-dashboard [-config <file>] serve [-server-config <file>] [-addr <address>]

  Loads the data sources of the dashboard configuration and serves its pages
  until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.serverConfig, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	f.StringVar(&c.address, "addr", "", "listen address override")
	f.StringVar(&c.contentDir, "content-dir", "", "directory of markdown page overrides")
	f.StringVar(&c.maxUpload, "max-upload", "", "upload size limit override, e.g. 8M")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	srvCfg, err := server.LoadConfig(c.serverConfig)
	if err != nil {
		fatalf("failed to load server configuration at "+c.serverConfig, err)
		return subcommands.ExitFailure
	}
	if c.address != "" {
		srvCfg.Address = c.address
	}
	if c.contentDir != "" {
		srvCfg.ContentDir = c.contentDir
	}
	if c.maxUpload != "" {
		size, err := server.ParseSize(c.maxUpload)
		if err != nil {
			fatalf("invalid upload size", err)
			return subcommands.ExitUsageError
		}
		srvCfg.SetUploadSizeBytes(size)
	}

	configPath := srvCfg.ConfigPath
	if flagSet("config") {
		configPath = *configLocation
	}
	conf, logger, ok := setup(configPath, &srvCfg.Logging)
	if !ok {
		return subcommands.ExitFailure
	}
	defer func() {
		_ = logger.Sync()
	}()

	catalog, err := dataset.LoadCatalog(ctx, logger, conf.Sources)
	if err != nil {
		logger.Error("failed to load data sources",
			zap.String("op", "main.serve"),
			zap.Error(err),
		)
		return subcommands.ExitFailure
	}

	handler := server.NewHandler(logger, server.Options{
		Registry:      pages.NewRegistry(logger, conf, catalog, srvCfg.ContentDir),
		Sink:          report.NewFileSink(conf.Report.SummaryPath),
		Report:        conf.Report.Parameters,
		MaxUploadSize: srvCfg.UploadSizeBytes(),
		Version:       version,
	})

	srv := &http.Server{
		Addr:              srvCfg.Address,
		Handler:           handler,
		ReadTimeout:       srvCfg.ReadTimeout,
		ReadHeaderTimeout: srvCfg.ReadTimeout,
		WriteTimeout:      srvCfg.WriteTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening",
			zap.String("op", "main.serve"),
			zap.String("address", srv.Addr),
			zap.Int("sources", len(conf.Sources)),
			zap.Int("failedSources", len(catalog.Errors())),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped",
				zap.String("op", "main.serve"),
				zap.Error(err),
			)
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		logger.Info("shutting down",
			zap.String("op", "main.serve"),
			zap.Duration("timeout", srvCfg.ShutdownTimeout),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed",
				zap.String("op", "main.serve"),
				zap.Error(err),
			)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
