package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/fixora/agentpulse/internal/adapter/http"
	"github.com/fixora/agentpulse/internal/scheduler"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and run scheduled syncs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info(ctx, "Starting AgentPulse", map[string]interface{}{
		"version":     Version,
		"environment": a.cfg.Server.Environment,
	})

	syncUC, err := a.syncUseCase()
	if err != nil {
		return err
	}

	var sched *scheduler.Scheduler
	if a.cfg.Sync.ScheduleEnabled {
		sched, err = scheduler.New(syncUC, a.cfg.Sync.Schedule, a.logger)
		if err != nil {
			return err
		}
		sched.Start()
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}

	server := httpadapter.NewServer(
		httpadapter.ServerConfig{
			Host:         a.cfg.Server.Host,
			Port:         a.cfg.Server.Port,
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
			MetricsPath:  metricsPath,
		},
		httpadapter.NewSyncHandler(syncUC, a.logger),
		httpadapter.NewMetricsHandler(a.metricsUseCase()),
		a.httpMetrics,
		a.logger,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err = <-serverErr:
	case <-ctx.Done():
		a.logger.Info(context.Background(), "Shutdown signal received", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if stopErr := sched.Stop(shutdownCtx); stopErr != nil {
			a.logger.Warn(shutdownCtx, "Scheduler did not stop cleanly", map[string]interface{}{"error": stopErr.Error()})
		}
	}
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Error(shutdownCtx, "Server forced to shutdown", shutdownErr, nil)
	}

	a.logger.Info(shutdownCtx, "Server exited", nil)
	return err
}
