package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessionlearn/internal/config"
	"github.com/fyrsmithlabs/sessionlearn/internal/dedup"
	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
	"github.com/fyrsmithlabs/sessionlearn/internal/memorystore"
	"github.com/fyrsmithlabs/sessionlearn/internal/reflection"
	"github.com/fyrsmithlabs/sessionlearn/internal/signals"
)

// app carries the components built from configuration and flags.
type app struct {
	cfg      *config.Config
	opts     *rootOptions
	logger   *logging.Logger
	store    *memorystore.FileStore
	registry *prometheus.Registry
	metrics  *reflection.Metrics
}

// newApp loads configuration, applies flag overrides and builds the logger
// and store.
func newApp(opts *rootOptions) (*app, error) {
	if !reflection.ValidFormat(opts.format) {
		return nil, fmt.Errorf("invalid format: %s (valid: text, markdown, json)", opts.format)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.storePath != "" {
		cfg.Store.Path = opts.storePath
	}
	if opts.metricsTextfile != "" {
		cfg.Metrics.Textfile = opts.metricsTextfile
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logCfg, err := cfg.LoggerConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := memorystore.NewFileStore(cfg.Store.Path, memorystore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	registry := prometheus.NewRegistry()
	return &app{
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		store:    store,
		registry: registry,
		metrics:  reflection.NewMetrics(registry),
	}, nil
}

// newSession wires the extraction pipeline from configuration.
func (a *app) newSession(ctx context.Context) (*reflection.Session, error) {
	projectRules, err := signals.LoadRulesFile(a.cfg.Extraction.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load project rules: %w", err)
	}
	userPath, err := config.ExpandPath(a.cfg.Extraction.UserRulesFile)
	if err != nil {
		return nil, err
	}
	userRules, err := signals.LoadRulesFile(userPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load user rules: %w", err)
	}

	classifier := signals.NewRuleClassifier(
		signals.WithScopedRules(signals.RuleScopeProject, projectRules),
		signals.WithScopedRules(signals.RuleScopeUser, userRules),
	)
	extractor := signals.NewExtractor(
		signals.WithClassifier(classifier),
		signals.WithMaxTitleLength(a.cfg.Extraction.MaxTitleLength),
		signals.WithLogger(a.logger),
	)
	deduplicator := dedup.NewDeduplicator(
		dedup.WithThreshold(a.cfg.Dedup.Threshold),
		dedup.WithLogger(a.logger),
	)

	opts := []reflection.Option{
		reflection.WithScanner(extractor),
		reflection.WithFilter(deduplicator),
		reflection.WithMetrics(a.metrics),
		reflection.WithLogger(a.logger),
	}

	if a.cfg.Secrets.Enabled {
		allowlist, err := config.ExpandPath(a.cfg.Secrets.AllowlistPath)
		if err != nil {
			return nil, err
		}
		scrubber, err := reflection.NewSecretScrubber(allowlist)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize secret scrubbing: %w", err)
		}
		opts = append(opts, reflection.WithScrubber(scrubber))
	}

	if len(projectRules)+len(userRules) > 0 {
		a.logger.Debug(ctx, "custom classifier rules loaded",
			zap.Int("project", len(projectRules)),
			zap.Int("user", len(userRules)),
		)
	}
	return reflection.NewSession(a.store, opts...), nil
}

// writeMetrics exports the registry when a textfile is configured.
func (a *app) writeMetrics() error {
	if a.cfg.Metrics.Textfile == "" {
		return nil
	}
	path, err := config.ExpandPath(a.cfg.Metrics.Textfile)
	if err != nil {
		return err
	}
	if err := reflection.WriteTextfile(path, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
