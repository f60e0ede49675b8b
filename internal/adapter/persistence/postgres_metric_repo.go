package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/ports"
)

// PostgresMetricRepository implements MetricRepository using PostgreSQL
type PostgresMetricRepository struct {
	db *sql.DB
}

// NewPostgresMetricRepository creates a new PostgreSQL metric repository
func NewPostgresMetricRepository(db *sql.DB) ports.MetricRepository {
	return &PostgresMetricRepository{db: db}
}

// UpsertMetric writes the snapshot, replacing any previous one for the same agent and period
func (r *PostgresMetricRepository) UpsertMetric(ctx context.Context, metric *domain.PeriodMetric) error {
	query := `
		INSERT INTO period_metrics (
			agent_id, period_start, period_end, calculated_at,
			ces_percent, average_response_time_hours, closed, open, open_greater_than_14,
			closed_less_than_7_percent, closed_equal_1_percent, participation_rate,
			communication_score, response_quality, technical_accuracy,
			enterprise_percent, technical_percent, survey_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (agent_id, period_start, period_end) DO UPDATE
		SET calculated_at = EXCLUDED.calculated_at,
			ces_percent = EXCLUDED.ces_percent,
			average_response_time_hours = EXCLUDED.average_response_time_hours,
			closed = EXCLUDED.closed,
			open = EXCLUDED.open,
			open_greater_than_14 = EXCLUDED.open_greater_than_14,
			closed_less_than_7_percent = EXCLUDED.closed_less_than_7_percent,
			closed_equal_1_percent = EXCLUDED.closed_equal_1_percent,
			participation_rate = EXCLUDED.participation_rate,
			communication_score = EXCLUDED.communication_score,
			response_quality = EXCLUDED.response_quality,
			technical_accuracy = EXCLUDED.technical_accuracy,
			enterprise_percent = EXCLUDED.enterprise_percent,
			technical_percent = EXCLUDED.technical_percent,
			survey_count = EXCLUDED.survey_count
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		metric.AgentID,
		metric.PeriodStart,
		metric.PeriodEnd,
		metric.CalculatedAt,
		metric.CESPercent,
		metric.AverageResponseTimeHours,
		metric.Closed,
		metric.Open,
		metric.OpenGreaterThan14,
		metric.ClosedLessThan7Percent,
		metric.ClosedEqual1Percent,
		metric.ParticipationRate,
		metric.CommunicationScore,
		metric.ResponseQuality,
		metric.TechnicalAccuracy,
		metric.EnterprisePercent,
		metric.TechnicalPercent,
		metric.SurveyCount,
	).Scan(&metric.ID)
	if err != nil {
		return newWriteError("period metrics", fmt.Errorf("agent %d: %w", metric.AgentExternalID, err))
	}

	return nil
}

// LatestPerAgent keeps, per agent, only the most recently calculated snapshot.
// The window bounds calculated_at as [start, end).
func (r *PostgresMetricRepository) LatestPerAgent(ctx context.Context, window *domain.Window) ([]*domain.PeriodMetric, error) {
	query := `
		SELECT DISTINCT ON (m.agent_id)
			m.id, m.agent_id, a.external_id, a.name, m.period_start, m.period_end, m.calculated_at,
			m.ces_percent, m.average_response_time_hours, m.closed, m.open, m.open_greater_than_14,
			m.closed_less_than_7_percent, m.closed_equal_1_percent, m.participation_rate,
			m.communication_score, m.response_quality, m.technical_accuracy,
			m.enterprise_percent, m.technical_percent, m.survey_count
		FROM period_metrics m
		JOIN agents a ON a.id = m.agent_id
	`

	var args []interface{}
	if window != nil {
		query += " WHERE m.calculated_at >= $1 AND m.calculated_at < $2"
		args = append(args, window.Start, window.End)
	}
	query += " ORDER BY m.agent_id, m.calculated_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*domain.PeriodMetric
	for rows.Next() {
		var m domain.PeriodMetric
		if err := rows.Scan(
			&m.ID,
			&m.AgentID,
			&m.AgentExternalID,
			&m.AgentName,
			&m.PeriodStart,
			&m.PeriodEnd,
			&m.CalculatedAt,
			&m.CESPercent,
			&m.AverageResponseTimeHours,
			&m.Closed,
			&m.Open,
			&m.OpenGreaterThan14,
			&m.ClosedLessThan7Percent,
			&m.ClosedEqual1Percent,
			&m.ParticipationRate,
			&m.CommunicationScore,
			&m.ResponseQuality,
			&m.TechnicalAccuracy,
			&m.EnterprisePercent,
			&m.TechnicalPercent,
			&m.SurveyCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metrics: %w", err)
	}

	return metrics, nil
}
