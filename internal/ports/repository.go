package ports

import (
	"context"

	"github.com/fixora/agentpulse/internal/domain"
)

// AgentRepository defines the interface for agent persistence
type AgentRepository interface {
	// UpsertAgents writes each agent keyed on its external ID and returns
	// the internal key assigned to every external ID written
	UpsertAgents(ctx context.Context, agents []*domain.Agent) (map[int64]int64, error)

	// List retrieves all tracked agents ordered by name
	List(ctx context.Context) ([]*domain.Agent, error)
}

// TicketRepository defines the interface for ticket persistence
type TicketRepository interface {
	// UpsertTickets writes tickets in fixed-size batches keyed on external ID.
	// It returns how many tickets were written before the first failure.
	UpsertTickets(ctx context.Context, tickets []*domain.Ticket) (int, error)
}

// MetricRepository defines the interface for period metric persistence
type MetricRepository interface {
	// UpsertMetric writes one snapshot keyed on (agent, period start, period end)
	UpsertMetric(ctx context.Context, metric *domain.PeriodMetric) error

	// LatestPerAgent returns, per agent, the snapshot with the latest
	// calculation time. A nil window considers every snapshot.
	LatestPerAgent(ctx context.Context, window *domain.Window) ([]*domain.PeriodMetric, error)
}

// SyncRunRepository defines the interface for sync checkpoint persistence
type SyncRunRepository interface {
	// Create records a new run
	Create(ctx context.Context, run *domain.SyncRun) error

	// Checkpoint stores the run's current phase, counters and errors
	Checkpoint(ctx context.Context, run *domain.SyncRun) error

	// FindByID retrieves a run by its ID
	FindByID(ctx context.Context, id string) (*domain.SyncRun, error)
}
