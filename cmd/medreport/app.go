package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/a3tai/mcp-medreport/internal/config"
	"github.com/a3tai/mcp-medreport/internal/layout/pdfsource"
	"github.com/a3tai/mcp-medreport/internal/lexicon"
	"github.com/a3tai/mcp-medreport/internal/pagerange"
	"github.com/a3tai/mcp-medreport/internal/pipeline"
	"github.com/a3tai/mcp-medreport/internal/tagger"
	"github.com/a3tai/mcp-medreport/internal/tei"
)

// app holds the components shared by the commands.
type app struct {
	manager  *config.Manager
	cfg      *config.Config
	level    zap.AtomicLevel
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *pipeline.Metrics
	lexicon  *lexicon.Lexicon
	engine   *pipeline.Engine
}

// newApp loads the configuration from the command flags and builds the
// processing engine.
func newApp(cmd *cobra.Command) (*app, error) {
	manager, err := config.NewManager(cmd.Flags(), cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := manager.Get()
	if version != "dev" {
		cfg.Version = version
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, err
	}

	lex, err := lexicon.Load(cfg.LexiconPath)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := pipeline.NewMetrics(registry)

	a := &app{
		manager:  manager,
		cfg:      cfg,
		level:    level,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		lexicon:  lex,
	}
	if a.engine, err = a.newEngine(); err != nil {
		return nil, err
	}
	return a, nil
}

// newLogger logs JSON to stderr, leaving stdout to MCP and command output.
func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	conf := zap.NewProductionConfig()
	conf.Level = level
	conf.OutputPaths = []string{"stderr"}
	conf.ErrorOutputPaths = []string{"stderr"}
	conf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := conf.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger.Named("medreport"), nil
}

func (a *app) newEngine() (*pipeline.Engine, error) {
	ranges, err := pagerange.ParseSelection(a.cfg.Pages)
	if err != nil {
		return nil, err
	}
	source := pdfsource.New(pdfsource.Options{MaxFileSize: a.cfg.MaxFileSize, Pages: ranges}, a.logger.Named("pdf"))

	var t tagger.Tagger
	if a.cfg.HasTagger() {
		exec, err := tagger.NewExec(a.cfg.Tagger, a.logger.Named("tagger"))
		if err != nil {
			return nil, err
		}
		t = exec
	} else {
		a.logger.Info("no tagger configured, producing features only")
	}

	opts := []pipeline.Option{
		pipeline.WithMetrics(a.metrics),
		pipeline.WithSource(source),
	}
	if a.cfg.WithIDs {
		opts = append(opts, pipeline.WithEmitterOptions(tei.WithIDs(nil)))
	}
	return pipeline.NewEngine(t, a.logger.Named("pipeline"), opts...), nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// failOn prints err and exits for errors raised outside cobra.
func failOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
