package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"runsettings/internal/logging"
	"runsettings/internal/observability"
	"runsettings/internal/session"
	"runsettings/internal/toolpolicy"
	"runsettings/internal/webui"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(c *cli) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run-settings HTTP and websocket API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				c.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	logging.Configure(c.cfg.LoggingConfig())
	logger := logging.NewComponentLogger("server")
	if c.cfg.ConfigFile != "" {
		logger.Info("loaded config from %s", c.cfg.ConfigFile)
	}

	tracer, err := observability.NewTracerProvider(c.cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	sessionCfg := c.sessionConfig()
	sessionCfg.Logger = logging.NewComponentLogger("session")

	var (
		metrics     *observability.Metrics
		gatherer    prometheus.Gatherer
		metricsPath string
	)
	if c.cfg.Metrics.Enabled {
		metrics = observability.DefaultMetrics()
		gatherer = prometheus.DefaultGatherer
		metricsPath = c.cfg.Metrics.Path
		sessionCfg.DispatchObserver = metrics
		sessionCfg.ReconcileObserver = metrics
	}

	registry := session.NewRegistry(c.cfg.Sessions.Max, c.cfg.Sessions.IdleTTL, sessionCfg)
	server, err := webui.NewServer(webui.Deps{
		Registry:   registry,
		Cookie:     webui.ModelCookie{Name: c.cfg.Cookie.Name, MaxAge: c.cfg.Cookie.MaxAge()},
		Policy:     toolpolicy.New(c.cfg.ToolPolicy, toolpolicy.NewTiktokenCounter()),
		Metrics:    metrics,
		Gatherer:   gatherer,
		Tracer:     tracer,
		Logger:     logger,
		SessionTTL: c.cfg.Sessions.IdleTTL,
	}, webui.ServerConfig{
		Host:         c.cfg.Server.Host,
		Port:         c.cfg.Server.Port,
		EnableCORS:   c.cfg.Server.EnableCORS,
		Debug:        c.cfg.Server.Debug,
		ReadTimeout:  c.cfg.Server.ReadTimeout,
		WriteTimeout: c.cfg.Server.WriteTimeout,
		MetricsPath:  metricsPath,
		Version:      version,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr(), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(server.Shutdown(shutdownCtx), tracer.Shutdown(shutdownCtx))
	})
	return g.Wait()
}
