package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/server"
)

const (
	startupTimeout  = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// serveOptions are the flags of the serve command.
type serveOptions struct {
	httpAddr       string
	metricsEnabled bool
	metricsAddr    string
	noScheduler    bool
	yolo           bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API and the background auto-labeler",
		Long: `Start the REST API together with the background scheduler that refreshes
the local mail snapshot and runs an auto-label cycle on a fixed interval.

A dedicated metrics server exposes Prometheus metrics on /metrics unless
--metrics-enabled=false is given or the metrics exporter is not prometheus.

Endpoints:
  /api/automation/...   status, logs, rules, enable toggle, manual run
  /api/emails/...       snapshot listing, refresh, summaries, send, reply,
                        read state, archive, delete
  /api/calendar/events  list, create, get, update and delete events
  /healthz, /readyz     health checks

Requests that send, delete or change mail, and that change or delete
existing events, are rejected with 403 unless --yolo is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = opts.httpAddr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = opts.metricsAddr
			}
			return runServe(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultAddr, "REST API address. Can also use BACKEND_PORT env var.")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
	cmd.Flags().BoolVar(&opts.noScheduler, "no-scheduler", false, "Serve the API without the background auto-labeler")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations on mail and existing calendar events")

	return cmd
}

func runServe(parent context.Context, cfg config.Config, opts serveOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := setupLogging(os.Stderr, cfg)
	if err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	a, err := newApp(cfg, provider.Metrics(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("error during shutdown", logging.Err(err))
		}
	}()

	if !a.credentials.CredentialsAvailable() {
		logger.Warn("Google credentials missing, automation runs are skipped until they exist",
			"account", a.credentials.Account(),
			"hint", a.credentials.MissingMessage())
	}

	health := server.NewHealthChecker()
	health.AddCheck("snapshot", a.snapshotCheck)

	router := server.NewRouter(server.Deps{
		Automation: a.service,
		Snapshot:   a.cache,
		Mail:       a.google,
		Actions:    a.google,
		Refresher:  a.refresher,
		Summarizer: a.llm,
		Calendar:   a.google,
		Health:     health,
		Metrics:    provider.Metrics(),
		Logger:     logger,
		Tracing:    provider.Enabled() && instrConfig.TracingExporter != instrumentation.ExporterNone,
		ReadOnly:   !opts.yolo,
	})
	httpServer := server.NewHTTPServer(cfg.HTTPAddr, router, health, logger)

	var metricsServer *server.MetricsServer
	if opts.metricsEnabled && provider.PrometheusEnabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return startAndWait(gctx, "REST API", httpServer.StartWithReadySignal, httpServer.Shutdown, logger)
	})
	if metricsServer != nil {
		g.Go(func() error {
			return startAndWait(gctx, "metrics server", metricsServer.StartWithReadySignal, metricsServer.Shutdown, logger)
		})
	}
	if !opts.noScheduler {
		scheduler := a.newScheduler()
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	return g.Wait()
}

// startAndWait runs a server until ctx is done, then shuts it down. A
// server that fails to bind within startupTimeout is an error.
func startAndWait(
	ctx context.Context,
	name string,
	start func(ready chan<- struct{}) error,
	shutdown func(ctx context.Context) error,
	logger logging.Logger,
) error {
	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		err := start(ready)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case <-ready:
		logger.Info(name + " started")
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return fmt.Errorf("%s failed to start: %w", name, err)
	case <-time.After(startupTimeout):
		return fmt.Errorf("%s startup timed out", name)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s stopped with error: %w", name, err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}
	return <-errCh
}
