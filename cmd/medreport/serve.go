package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/a3tai/mcp-medreport/internal/config"
	"github.com/a3tai/mcp-medreport/internal/mcp"
	"github.com/a3tai/mcp-medreport/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server.

In stdio mode (default) the server talks MCP over standard input and output;
in server mode it listens on --host and --port. Logs go to standard error.

Examples:
  medreport serve                                   # stdio mode
  medreport serve --dir=/data/reports --output=/data/training
  medreport serve --mode=server --port=8081 --metrics-addr=:9090
  medreport serve --tagger-command=wapiti --tagger-model=model.wapiti`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return a.serve(cmd.Context())
	},
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.IsDebug() {
		a.logger.Debug("starting with configuration", zap.Stringer("config", a.cfg))
	}

	cached := pipeline.NewCachedEngine(a.engine, a.cfg.CacheTTL, a.logger.Named("cache"))
	defer cached.Close()

	server, err := mcp.NewServer(a.cfg, cached, a.lexicon, a.logger.Named("mcp"))
	if err != nil {
		return err
	}

	if a.manager.ConfigFile() != "" {
		a.manager.OnChange(func(cfg *config.Config) {
			if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
				a.level.SetLevel(lvl)
			}
			a.logger.Info("configuration reloaded", zap.String("log_level", cfg.LogLevel))
		})
		a.manager.WatchConfig(func(err error) {
			a.logger.Warn("ignoring invalid configuration change", zap.Error(err))
		})
	}

	if a.cfg.MetricsAddr != "" {
		metricsServer := a.startMetrics()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := server.Run(ctx); err != nil {
		a.logger.Error("server stopped", zap.Error(err))
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// startMetrics serves the Prometheus registry on the metrics address.
func (a *app) startMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("address", a.cfg.MetricsAddr))
	return srv
}
