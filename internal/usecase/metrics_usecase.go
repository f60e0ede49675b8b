package usecase

import (
	"context"
	"fmt"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/logger"
	"github.com/fixora/agentpulse/internal/ports"
)

// LatestMetrics is the dashboard view: one snapshot per agent plus the team mean
type LatestMetrics struct {
	PerAgent    []*domain.PeriodMetric `json:"per_agent"`
	TeamAverage *domain.TeamAverage    `json:"team_average"`
}

// MetricsUseCase serves the read side of the dashboard
type MetricsUseCase struct {
	metricRepo ports.MetricRepository
	agentRepo  ports.AgentRepository
	logger     logger.Logger
}

// NewMetricsUseCase creates a new metrics use case
func NewMetricsUseCase(metricRepo ports.MetricRepository, agentRepo ports.AgentRepository, log logger.Logger) *MetricsUseCase {
	return &MetricsUseCase{
		metricRepo: metricRepo,
		agentRepo:  agentRepo,
		logger:     log,
	}
}

// GetLatestMetrics returns each agent's most recent snapshot calculated inside
// the window, or across all time when window is nil. Store failures are
// logged and yield an empty result.
func (uc *MetricsUseCase) GetLatestMetrics(ctx context.Context, window *domain.Window) LatestMetrics {
	empty := LatestMetrics{PerAgent: []*domain.PeriodMetric{}}

	if window != nil {
		if err := window.Validate(); err != nil {
			uc.logger.Warn(ctx, "Ignoring latest metrics request with invalid window", map[string]interface{}{
				"start": window.Start,
				"end":   window.End,
			})
			return empty
		}
	}

	metrics, err := uc.metricRepo.LatestPerAgent(ctx, window)
	if err != nil {
		uc.logger.Error(ctx, "Failed to load latest metrics", err, nil)
		return empty
	}
	if len(metrics) == 0 {
		return empty
	}

	return LatestMetrics{
		PerAgent:    metrics,
		TeamAverage: domain.CalculateTeamAverage(metrics),
	}
}

// ListAgents returns every agent the store knows about
func (uc *MetricsUseCase) ListAgents(ctx context.Context) ([]*domain.Agent, error) {
	agents, err := uc.agentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	if agents == nil {
		agents = []*domain.Agent{}
	}
	return agents, nil
}
