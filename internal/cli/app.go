package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"file-monitor-dashboard/internal/analytics"
	"file-monitor-dashboard/internal/backend"
	"file-monitor-dashboard/internal/collector"
	"file-monitor-dashboard/internal/commands"
	"file-monitor-dashboard/internal/config"
	"file-monitor-dashboard/internal/metrics"
	"file-monitor-dashboard/internal/repository"
	"file-monitor-dashboard/internal/store"
)

var errDemoServeOnly = errors.New("demo mode only applies to serve; set MONITOR_BACKEND_URL to reach a backend")

// app holds every component of one dashboard process.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *gorm.DB
	client    *backend.Client
	store     *store.Store
	metrics   *metrics.Metrics
	collector *collector.Collector
	commands  *commands.Commands
	audit     *repository.CommandRepository
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	db, err := repository.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	engine, err := analytics.NewEngine(cfg.AnalyticsCacheSize, cfg.DisplayZone)
	if err != nil {
		return nil, fmt.Errorf("create analytics engine: %w", err)
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	st := store.New(cfg.InitialTab, cfg.Theme)
	m := metrics.New()
	coll := collector.New(client, st, engine, m, collector.Intervals{
		Events:   cfg.EventsInterval,
		Status:   cfg.StatusInterval,
		Honeypot: cfg.HoneypotInterval,
		Health:   cfg.HealthInterval,
	}, logger)
	audit := repository.NewCommandRepository(db)

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		client:    client,
		store:     st,
		metrics:   m,
		collector: coll,
		commands:  commands.New(client, coll, st, m, audit, cfg.ToastDuration, logger),
		audit:     audit,
	}, nil
}

// oneShotApp builds an app for a command that talks to a real backend once.
func oneShotApp(opts *rootOptions) (*app, error) {
	if opts.cfg.DemoMode {
		return nil, errDemoServeOnly
	}
	return newApp(opts.cfg, opts.logger)
}

func (a *app) Close() error {
	a.collector.Stop()
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
