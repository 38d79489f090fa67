package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"exmcp/internal/app/server"
	"exmcp/internal/buildinfo"
	"exmcp/internal/infra/anypoint"
	"exmcp/internal/infra/auth"
	"exmcp/internal/infra/config"
	"exmcp/internal/infra/search"
	"exmcp/internal/infra/specpipe"
	"exmcp/internal/infra/telemetry"
)

type options struct {
	logLevel    string
	metricsAddr string
	logger      *zap.Logger
}

func main() {
	opts := options{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:     "exmcp",
		Short:   "MCP server for the Anypoint Exchange catalog (stdio transport)",
		Version: buildinfo.Version,
		Args:    cobra.NoArgs,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = opts.metricsAddr
			}

			logger, err := telemetry.NewLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			opts.logger = logger

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()
			return run(ctx, cfg, logger)
		},
	}
	bindFlags(root.Flags(), &opts)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "listen address for /metrics and /healthz (empty disables)")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	tokens := auth.NewManager(auth.Config{
		BaseURL:      cfg.AnypointURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		OrgID:        cfg.OrgID,
		Timeout:      cfg.HTTPTimeout,
	}, logger, metrics)

	catalog := anypoint.NewClient(anypoint.Config{
		BaseURL:          cfg.AnypointURL,
		OrgID:            cfg.OrgID,
		Timeout:          cfg.HTTPTimeout,
		MaxResponseBytes: cfg.MaxResponseBytes,
	}, tokens, logger, metrics)

	engine := search.NewEngine(catalog, logger, cfg.SearchLimit, cfg.SearchFetch)

	pipeline := specpipe.NewPipeline(catalog, catalog, specpipe.Limits{
		MaxArchiveBytes: cfg.MaxArchiveBytes,
		MaxEntryBytes:   cfg.MaxEntryBytes,
		MaxEntries:      cfg.MaxArchiveEntries,
	}, logger, metrics)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
				Addr:     cfg.MetricsAddr,
				Registry: registry,
			}, logger); err != nil {
				logger.Warn("telemetry server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("starting",
		zap.String("version", buildinfo.Version),
		zap.String("anypoint_url", cfg.AnypointURL),
		zap.String("org_id", cfg.OrgID),
	)
	return server.New(engine, catalog, pipeline, logger, metrics).Run(ctx)
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx, cancel
}
