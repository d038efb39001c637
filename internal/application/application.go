// Package application assembles the tracker and its collaborators from
// configuration, choosing the storage backend and building the advisor.
package application

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/carbonlog/carbonlog/internal/advisor"
	"github.com/carbonlog/carbonlog/internal/config"
	"github.com/carbonlog/carbonlog/internal/database"
	"github.com/carbonlog/carbonlog/internal/filesystem"
	"github.com/carbonlog/carbonlog/internal/metrics"
	"github.com/carbonlog/carbonlog/internal/store"
	"github.com/carbonlog/carbonlog/internal/usecase"
)

// App holds everything a command needs. Close releases the storage backend.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Tracker  *usecase.Tracker

	closers []func() error
}

// Open wires the configured backend, metrics and advisor into a Tracker.
func Open(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  m,
	}

	directory, log, err := app.openBackend()
	if err != nil {
		return nil, err
	}

	app.Tracker = usecase.NewTracker(directory, store.NewLocked(log), NewAdvisor(cfg.Advisor, logger, m), logger)
	return app, nil
}

func (a *App) openBackend() (store.Directory, store.Log, error) {
	switch a.Config.Backend {
	case config.BackendSQLite:
		dbCtx, err := database.CreateDatabase(a.Config.DBPath())
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		a.closers = append(a.closers, func() error { return database.CloseDatabase(dbCtx) })
		a.Logger.Debug("using sqlite backend", "path", a.Config.DBPath())
		return database.NewIdentityRepository(dbCtx),
			database.NewRecordRepository(dbCtx, a.Logger, a.Metrics),
			nil
	case config.BackendCSV, "":
		a.Logger.Debug("using csv backend", "dir", a.Config.DataDir)
		return filesystem.NewUserDirectory(a.Config.UsersPath(), a.Logger),
			filesystem.NewRecordLog(a.Config.RecordsDir(), a.Logger, a.Metrics),
			nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", a.Config.Backend)
	}
}

// NewAdvisor builds the advisor for cfg. A missing API key is not an error
// here; every request then falls back immediately.
func NewAdvisor(cfg config.AdvisorConfig, logger *slog.Logger, m *metrics.Metrics) *advisor.Advisor {
	transport := advisor.NewGeminiTransport(advisor.GeminiConfig{
		BaseURL:    cfg.URL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	})
	policy := advisor.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
	}
	return advisor.New(transport, policy, advisor.WithLogger(logger), advisor.WithMetrics(m))
}

// Close releases backend resources.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
