package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/fixora/agentpulse/internal/adapter/helpdesk"
	"github.com/fixora/agentpulse/internal/adapter/lock"
	"github.com/fixora/agentpulse/internal/adapter/persistence"
	"github.com/fixora/agentpulse/internal/config"
	"github.com/fixora/agentpulse/internal/logger"
	"github.com/fixora/agentpulse/internal/telemetry"
	"github.com/fixora/agentpulse/internal/usecase"
)

// app holds the dependencies shared by every command
type app struct {
	cfg    *config.Config
	logger logger.Logger
	db     *sql.DB

	syncMetrics *telemetry.SyncMetrics
	httpMetrics *telemetry.HTTPMetrics
}

// bootstrap loads configuration and opens the database. Commands that talk to
// the helpdesk pass requireHelpdesk to validate its settings up front.
func bootstrap(ctx context.Context, requireHelpdesk bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if requireHelpdesk {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	log := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "agentpulse",
	})

	db, err := initDatabase(ctx, cfg)
	if err != nil {
		log.Error(ctx, "Failed to initialize database", err, nil)
		return nil, err
	}
	log.Info(ctx, "Database connection established", map[string]interface{}{
		"host":   cfg.Database.Host,
		"dbname": cfg.Database.DBName,
	})

	a := &app{cfg: cfg, logger: log, db: db}
	if cfg.Metrics.Enabled {
		a.syncMetrics, a.httpMetrics = telemetry.Default(cfg.Metrics.Namespace)
	}
	return a, nil
}

func initDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxConnections / 2)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func (a *app) Close() {
	a.db.Close()
}

func (a *app) metricsUseCase() *usecase.MetricsUseCase {
	return usecase.NewMetricsUseCase(
		persistence.NewPostgresMetricRepository(a.db),
		persistence.NewPostgresAgentRepository(a.db),
		a.logger,
	)
}

func (a *app) syncUseCase() (*usecase.SyncUseCase, error) {
	cfg := a.cfg

	client := helpdesk.NewClient(helpdesk.Config{
		BaseURL:        cfg.Helpdesk.BaseURL,
		Email:          cfg.Helpdesk.Email,
		APIToken:       cfg.Helpdesk.APIToken,
		Timeout:        cfg.Helpdesk.Timeout,
		MaxPages:       cfg.Helpdesk.MaxPages,
		MaxConcurrency: cfg.Helpdesk.MaxConcurrency,
	}, a.logger)

	locker, err := lock.NewSyncLocker(lock.Config{
		Enabled:  cfg.Redis.Enabled,
		RedisURL: cfg.Redis.URL,
		Timeout:  cfg.Redis.Timeout,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sync lock: %w", err)
	}

	uc := usecase.NewSyncUseCase(
		client,
		persistence.NewPostgresAgentRepository(a.db),
		persistence.NewPostgresTicketRepository(a.db, cfg.Sync.BatchSize),
		persistence.NewPostgresMetricRepository(a.db),
		persistence.NewPostgresSyncRunRepository(a.db),
		locker,
		a.syncMetrics,
		a.logger,
		usecase.SyncConfig{
			AgentIDs:          cfg.Helpdesk.AgentIDs,
			BatchSize:         cfg.Sync.BatchSize,
			IncrementalWindow: cfg.IncrementalWindow(),
			LockTTL:           cfg.Sync.LockTTL,
			RunTimeout:        cfg.Sync.RunTimeout,
		},
	)
	return uc, nil
}
