package domain

import "time"

// SyncMode distinguishes explicit-range syncs from trailing-window syncs
type SyncMode string

const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
)

// SyncStatus is the terminal or in-flight state of a sync run
type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncPhase names the checkpoints a sync run passes through, in order
type SyncPhase string

const (
	SyncPhaseStarted SyncPhase = "started"
	SyncPhaseFetched SyncPhase = "fetched"
	SyncPhaseAgents  SyncPhase = "agents_written"
	SyncPhaseTickets SyncPhase = "tickets_written"
	SyncPhaseMetrics SyncPhase = "metrics_written"
)

// SyncRun is the persisted checkpoint record of one sync invocation.
// Every write it drives is an idempotent upsert, so a failed run is
// resumed by starting a new run over the same window.
type SyncRun struct {
	ID                string     `json:"id"`
	Mode              SyncMode   `json:"mode"`
	WindowStart       time.Time  `json:"window_start"`
	WindowEnd         time.Time  `json:"window_end"`
	Status            SyncStatus `json:"status"`
	Phase             SyncPhase  `json:"phase"`
	AgentsProcessed   int        `json:"agents_processed"`
	TicketsProcessed  int        `json:"tickets_processed"`
	MetricsCalculated int        `json:"metrics_calculated"`
	Errors            []string   `json:"errors"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

// ErrSyncRunNotFound is returned when no run matches an ID
var ErrSyncRunNotFound = NewDomainError("sync run not found")
