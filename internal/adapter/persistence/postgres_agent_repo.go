package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/ports"
)

// PostgresAgentRepository implements AgentRepository using PostgreSQL
type PostgresAgentRepository struct {
	db *sql.DB
}

// NewPostgresAgentRepository creates a new PostgreSQL agent repository
func NewPostgresAgentRepository(db *sql.DB) ports.AgentRepository {
	return &PostgresAgentRepository{db: db}
}

// UpsertAgents inserts or refreshes each agent and returns external ID -> internal ID
func (r *PostgresAgentRepository) UpsertAgents(ctx context.Context, agents []*domain.Agent) (map[int64]int64, error) {
	query := `
		INSERT INTO agents (external_id, name, email, role, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (external_id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role,
			active = EXCLUDED.active, updated_at = NOW()
		RETURNING id, updated_at
	`

	ids := make(map[int64]int64, len(agents))
	for _, agent := range agents {
		err := r.db.QueryRowContext(ctx, query,
			agent.ExternalID,
			agent.Name,
			agent.Email,
			agent.Role,
			agent.Active,
		).Scan(&agent.ID, &agent.UpdatedAt)
		if err != nil {
			return ids, newWriteError("agents", fmt.Errorf("agent %d: %w", agent.ExternalID, err))
		}
		ids[agent.ExternalID] = agent.ID
	}

	return ids, nil
}

// List retrieves all agents ordered by name
func (r *PostgresAgentRepository) List(ctx context.Context) ([]*domain.Agent, error) {
	query := `
		SELECT id, external_id, name, email, role, active, updated_at
		FROM agents
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(
			&agent.ID,
			&agent.ExternalID,
			&agent.Name,
			&agent.Email,
			&agent.Role,
			&agent.Active,
			&agent.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, &agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}

	return agents, nil
}
