package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/ports"
)

// PostgresSyncRunRepository implements SyncRunRepository using PostgreSQL
type PostgresSyncRunRepository struct {
	db *sql.DB
}

// NewPostgresSyncRunRepository creates a new PostgreSQL sync run repository
func NewPostgresSyncRunRepository(db *sql.DB) ports.SyncRunRepository {
	return &PostgresSyncRunRepository{db: db}
}

// Create saves a new run
func (r *PostgresSyncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, mode, window_start, window_end, status, phase, errors, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		string(run.Mode),
		run.WindowStart,
		run.WindowEnd,
		string(run.Status),
		string(run.Phase),
		pq.Array(nonNilStrings(run.Errors)),
		run.StartedAt,
	)
	if err != nil {
		return newWriteError("sync runs", err)
	}

	return nil
}

// Checkpoint stores the run's progress
func (r *PostgresSyncRunRepository) Checkpoint(ctx context.Context, run *domain.SyncRun) error {
	query := `
		UPDATE sync_runs
		SET status = $2, phase = $3, agents_processed = $4, tickets_processed = $5,
			metrics_calculated = $6, errors = $7, finished_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		run.ID,
		string(run.Status),
		string(run.Phase),
		run.AgentsProcessed,
		run.TicketsProcessed,
		run.MetricsCalculated,
		pq.Array(nonNilStrings(run.Errors)),
		run.FinishedAt,
	)
	if err != nil {
		return newWriteError("sync runs", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrSyncRunNotFound
	}

	return nil
}

// FindByID retrieves a run by its ID
func (r *PostgresSyncRunRepository) FindByID(ctx context.Context, id string) (*domain.SyncRun, error) {
	query := `
		SELECT id, mode, window_start, window_end, status, phase, agents_processed,
			tickets_processed, metrics_calculated, errors, started_at, finished_at
		FROM sync_runs
		WHERE id = $1
	`

	var run domain.SyncRun
	var finishedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Mode,
		&run.WindowStart,
		&run.WindowEnd,
		&run.Status,
		&run.Phase,
		&run.AgentsProcessed,
		&run.TicketsProcessed,
		&run.MetricsCalculated,
		pq.Array(&run.Errors),
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSyncRunNotFound
		}
		return nil, fmt.Errorf("failed to find sync run: %w", err)
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return &run, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
