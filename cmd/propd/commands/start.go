package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kvprop/propd/internal/config"
	"github.com/kvprop/propd/internal/logger"
	"github.com/kvprop/propd/internal/telemetry"
	"github.com/kvprop/propd/pkg/property/metrics"
	"github.com/kvprop/propd/pkg/property/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the propd daemon",
	Long: `Start propd: bind its listening socket(s), open the configured
storage backends, load startup properties, and run the reactor until
interrupted.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	telemetry.Init(telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "propd",
		ServiceVersion: Version,
	})

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logger.KeyError, err)
			}
		}()
		logger.Info("metrics enabled", "listen", cfg.Metrics.Listen)
	}
	m := metrics.New(reg)

	srvCfg := server.Config{
		SocketPath:       cfg.Sockets.Path,
		RemoteSocketPath: cfg.Sockets.RemotePath,
		VolatileEnabled:  cfg.Namespace.VolatileEnabled,
		PersistBackend: server.BackendSpec{
			Kind: cfg.Namespace.Persist.Kind,
			Path: cfg.Namespace.Persist.Path,
		},
		VolatileBackend: server.BackendSpec{
			Kind: cfg.Namespace.Volatile.Kind,
			Path: cfg.Namespace.Volatile.Path,
		},
		BootstrapSources: cfg.Bootstrap.Sources,
		CommitInterval:   cfg.CommitInterval,
		SocketTimeout:    cfg.SocketTimeout,
	}

	srv, err := server.New(srvCfg, m)
	if err != nil {
		return fmt.Errorf("construct server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	logger.Info("propd starting", "socket", cfg.Sockets.Path)
	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("propd stopped")
	return nil
}
