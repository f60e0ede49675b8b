package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/logger"
	"github.com/fixora/agentpulse/internal/ports"
)

const (
	// SyncLockKey is the lock shared by every process that runs syncs
	SyncLockKey = "agentpulse:sync"

	maxTrackedRuns = 32
)

var (
	// ErrSyncInProgress is returned when another sync holds the lock
	ErrSyncInProgress = errors.New("a sync is already in progress")
	// ErrInvalidSyncMode is returned for modes other than full and incremental
	ErrInvalidSyncMode = errors.New("invalid sync mode")
)

// SyncRequest selects the window of a sync run
type SyncRequest struct {
	Mode domain.SyncMode `json:"mode"`
	From time.Time       `json:"from,omitempty"`
	To   time.Time       `json:"to,omitempty"`
}

// SyncResult summarizes a finished sync run
type SyncResult struct {
	RunID             string   `json:"run_id"`
	Success           bool     `json:"success"`
	AgentsProcessed   int      `json:"agents_processed"`
	TicketsProcessed  int      `json:"tickets_processed"`
	MetricsCalculated int      `json:"metrics_calculated"`
	Errors            []string `json:"errors"`
	DurationMs        int64    `json:"duration_ms"`
}

// SyncConfig tunes the sync pipeline
type SyncConfig struct {
	AgentIDs          []int64
	BatchSize         int
	IncrementalWindow time.Duration
	LockTTL           time.Duration
	RunTimeout        time.Duration
}

// SyncUseCase runs the helpdesk -> store -> metrics pipeline
type SyncUseCase struct {
	source     ports.HelpdeskSource
	agentRepo  ports.AgentRepository
	ticketRepo ports.TicketRepository
	metricRepo ports.MetricRepository
	runRepo    ports.SyncRunRepository
	locker     ports.SyncLocker
	recorder   ports.SyncRecorder
	logger     logger.Logger
	config     SyncConfig
	now        func() time.Time

	mu    sync.Mutex
	runs  map[string]*Run
	order []string
}

// NewSyncUseCase creates a new sync use case
func NewSyncUseCase(
	source ports.HelpdeskSource,
	agentRepo ports.AgentRepository,
	ticketRepo ports.TicketRepository,
	metricRepo ports.MetricRepository,
	runRepo ports.SyncRunRepository,
	locker ports.SyncLocker,
	recorder ports.SyncRecorder,
	log logger.Logger,
	config SyncConfig,
) *SyncUseCase {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.IncrementalWindow <= 0 {
		config.IncrementalWindow = 30 * 24 * time.Hour
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 30 * time.Minute
	}

	return &SyncUseCase{
		source:     source,
		agentRepo:  agentRepo,
		ticketRepo: ticketRepo,
		metricRepo: metricRepo,
		runRepo:    runRepo,
		locker:     locker,
		recorder:   recorder,
		logger:     log,
		config:     config,
		now:        time.Now,
		runs:       make(map[string]*Run),
	}
}

// SetClock replaces the time source
func (uc *SyncUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// RunFullSync syncs [from, to) and blocks until done
func (uc *SyncUseCase) RunFullSync(ctx context.Context, from, to time.Time) SyncResult {
	return uc.runBlocking(ctx, SyncRequest{Mode: domain.SyncModeFull, From: from, To: to})
}

// RunIncrementalSync syncs the trailing window ending now and blocks until done
func (uc *SyncUseCase) RunIncrementalSync(ctx context.Context) SyncResult {
	return uc.runBlocking(ctx, SyncRequest{Mode: domain.SyncModeIncremental})
}

func (uc *SyncUseCase) runBlocking(ctx context.Context, req SyncRequest) SyncResult {
	run, err := uc.Start(ctx, req)
	if err != nil {
		return SyncResult{Success: false, Errors: []string{err.Error()}}
	}
	return run.Wait()
}

// Start validates the request, takes the sync lock and launches the run in
// the background. The run outlives ctx cancellation but keeps its values.
func (uc *SyncUseCase) Start(ctx context.Context, req SyncRequest) (*Run, error) {
	window, err := uc.resolveWindow(req)
	if err != nil {
		return nil, err
	}

	acquired, err := uc.locker.Acquire(ctx, SyncLockKey, uc.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, ErrSyncInProgress
	}

	run := newRun(uuid.NewString(), req.Mode, window)
	uc.track(run)

	runCtx := context.WithoutCancel(ctx)
	cancel := func() {}
	if uc.config.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, uc.config.RunTimeout)
	}

	go func() {
		defer cancel()
		defer func() {
			if err := uc.locker.Release(context.WithoutCancel(runCtx), SyncLockKey); err != nil {
				uc.logger.Error(runCtx, "Failed to release sync lock", err, nil)
			}
		}()
		uc.execute(runCtx, run)
	}()

	return run, nil
}

// Lookup returns an in-process run by ID
func (uc *SyncUseCase) Lookup(id string) (*Run, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	run, ok := uc.runs[id]
	return run, ok
}

// GetRun returns the persisted record of a run
func (uc *SyncUseCase) GetRun(ctx context.Context, id string) (*domain.SyncRun, error) {
	return uc.runRepo.FindByID(ctx, id)
}

func (uc *SyncUseCase) resolveWindow(req SyncRequest) (domain.Window, error) {
	switch req.Mode {
	case domain.SyncModeFull:
		window, err := domain.NewWindow(req.From, req.To)
		if err != nil {
			return domain.Window{}, fmt.Errorf("invalid full sync window: %w", err)
		}
		return window, nil
	case domain.SyncModeIncremental:
		return domain.TrailingWindow(uc.now(), uc.config.IncrementalWindow), nil
	}
	return domain.Window{}, fmt.Errorf("%w: %q", ErrInvalidSyncMode, req.Mode)
}

func (uc *SyncUseCase) track(run *Run) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.runs[run.ID] = run
	uc.order = append(uc.order, run.ID)

	for len(uc.order) > maxTrackedRuns {
		oldest := uc.runs[uc.order[0]]
		select {
		case <-oldest.Done():
			delete(uc.runs, oldest.ID)
			uc.order = uc.order[1:]
		default:
			return
		}
	}
}

// syncState carries one run through its phases
type syncState struct {
	run     *Run
	record  *domain.SyncRun
	result  SyncResult
	current int
	started time.Time
}

func (s *syncState) emit(uc *SyncUseCase, step ProgressStep, current int, message string) {
	s.current = current
	s.run.emit(step, current, message, uc.now())
}

func (uc *SyncUseCase) execute(ctx context.Context, run *Run) {
	started := uc.now()
	ctx = logger.WithCorrelationID(ctx, run.ID)

	state := &syncState{
		run:     run,
		started: started,
		result:  SyncResult{RunID: run.ID, Errors: []string{}},
		record: &domain.SyncRun{
			ID:          run.ID,
			Mode:        run.Mode,
			WindowStart: run.Window.Start,
			WindowEnd:   run.Window.End,
			Status:      domain.SyncStatusRunning,
			Phase:       domain.SyncPhaseStarted,
			Errors:      []string{},
			StartedAt:   started,
		},
	}

	uc.logger.Info(ctx, "Sync started", map[string]interface{}{
		"mode":         run.Mode,
		"window_start": run.Window.Start,
		"window_end":   run.Window.End,
	})
	state.emit(uc, StepStart, 0, fmt.Sprintf("Starting %s sync", run.Mode))

	if err := uc.runRepo.Create(ctx, state.record); err != nil {
		uc.fail(ctx, state, fmt.Errorf("failed to record sync run: %w", err))
		return
	}

	if err := uc.pipeline(ctx, state); err != nil {
		uc.fail(ctx, state, err)
		return
	}

	state.record.Status = domain.SyncStatusSuccess
	state.result.Success = true
	uc.finish(ctx, state)
	state.emit(uc, StepDone, ProgressTotal, fmt.Sprintf(
		"Synced %d agents, %d tickets, %d metrics",
		state.result.AgentsProcessed, state.result.TicketsProcessed, state.result.MetricsCalculated,
	))
	run.finish(state.result)
}

// pipeline runs the phases in order; each phase commits on its own
func (uc *SyncUseCase) pipeline(ctx context.Context, state *syncState) error {
	window := state.run.Window

	agents, err := uc.source.FetchAgents(ctx, uc.config.AgentIDs)
	if err != nil {
		return fmt.Errorf("failed to fetch agents: %w", err)
	}
	state.emit(uc, StepFetchAgents, 10, fmt.Sprintf("Fetched %d of %d agents", len(agents), len(uc.config.AgentIDs)))

	tickets, err := uc.source.FetchTickets(ctx, &window)
	if err != nil {
		return fmt.Errorf("failed to fetch tickets: %w", err)
	}
	state.emit(uc, StepFetchTickets, 25, fmt.Sprintf("Fetched %d tickets", len(tickets)))

	ratings, err := uc.source.FetchSatisfactionRatings(ctx, &window)
	if err != nil {
		return fmt.Errorf("failed to fetch satisfaction ratings: %w", err)
	}
	state.emit(uc, StepFetchRatings, 35, fmt.Sprintf("Fetched %d satisfaction ratings", len(ratings)))
	uc.checkpoint(ctx, state, domain.SyncPhaseFetched)

	agentIDs, err := uc.agentRepo.UpsertAgents(ctx, agents)
	state.result.AgentsProcessed = len(agentIDs)
	if err != nil {
		return err
	}
	state.emit(uc, StepWriteAgents, 45, fmt.Sprintf("Wrote %d agents", len(agentIDs)))
	uc.checkpoint(ctx, state, domain.SyncPhaseAgents)

	scoped := domain.FilterTicketsByAssignees(tickets, domain.AgentExternalIDs(agents))
	if dropped := len(tickets) - len(scoped); dropped > 0 {
		uc.logger.Debug(ctx, "Skipping tickets not assigned to a tracked agent", map[string]interface{}{"count": dropped})
	}
	if err := uc.writeTickets(ctx, state, scoped); err != nil {
		return err
	}
	uc.checkpoint(ctx, state, domain.SyncPhaseTickets)

	now := uc.now()
	for i, agent := range agents {
		metric := domain.CalculatePeriodMetric(agent, scoped, ratings, window, now)
		metric.AgentID = agentIDs[agent.ExternalID]

		if err := uc.metricRepo.UpsertMetric(ctx, metric); err != nil {
			return err
		}
		state.result.MetricsCalculated++
		state.emit(uc, StepCalculateMetrics, 70+25*(i+1)/len(agents), fmt.Sprintf("Calculated metrics for %s", agent.Name))
	}
	uc.checkpoint(ctx, state, domain.SyncPhaseMetrics)

	return nil
}

func (uc *SyncUseCase) writeTickets(ctx context.Context, state *syncState, tickets []*domain.Ticket) error {
	batchSize := uc.config.BatchSize
	batches := (len(tickets) + batchSize - 1) / batchSize

	for b := 0; b < batches; b++ {
		start := b * batchSize
		end := min(start+batchSize, len(tickets))

		written, err := uc.ticketRepo.UpsertTickets(ctx, tickets[start:end])
		state.result.TicketsProcessed += written
		if err != nil {
			return err
		}
		state.emit(uc, StepWriteTickets, 45+25*(b+1)/batches,
			fmt.Sprintf("Wrote %d of %d tickets", state.result.TicketsProcessed, len(tickets)))
	}

	if batches == 0 {
		state.emit(uc, StepWriteTickets, 70, "No tickets to write")
	}
	return nil
}

func (uc *SyncUseCase) checkpoint(ctx context.Context, state *syncState, phase domain.SyncPhase) {
	state.record.Phase = phase
	uc.saveRecord(ctx, state)
}

func (uc *SyncUseCase) saveRecord(ctx context.Context, state *syncState) {
	state.record.AgentsProcessed = state.result.AgentsProcessed
	state.record.TicketsProcessed = state.result.TicketsProcessed
	state.record.MetricsCalculated = state.result.MetricsCalculated
	state.record.Errors = state.result.Errors

	if err := uc.runRepo.Checkpoint(ctx, state.record); err != nil {
		uc.logger.Error(ctx, "Failed to checkpoint sync run", err, map[string]interface{}{"phase": state.record.Phase})
	}
}

func (uc *SyncUseCase) fail(ctx context.Context, state *syncState, err error) {
	state.result.Errors = append(state.result.Errors, err.Error())
	state.record.Status = domain.SyncStatusFailed

	uc.logger.Error(ctx, "Sync failed", err, map[string]interface{}{
		"phase":   state.record.Phase,
		"tickets": state.result.TicketsProcessed,
	})

	uc.finish(ctx, state)
	state.emit(uc, StepFailed, state.current, err.Error())
	state.run.finish(state.result)
}

func (uc *SyncUseCase) finish(ctx context.Context, state *syncState) {
	finished := uc.now()
	duration := finished.Sub(state.started)
	state.result.DurationMs = duration.Milliseconds()
	state.record.FinishedAt = &finished
	uc.saveRecord(ctx, state)

	if uc.recorder != nil {
		uc.recorder.RecordSync(string(state.run.Mode), state.result.Success, duration,
			state.result.AgentsProcessed, state.result.TicketsProcessed, state.result.MetricsCalculated)
	}

	logger.LogPerformance(ctx, uc.logger, "sync_"+string(state.run.Mode), duration, map[string]interface{}{
		"success":            state.result.Success,
		"agents_processed":   state.result.AgentsProcessed,
		"tickets_processed":  state.result.TicketsProcessed,
		"metrics_calculated": state.result.MetricsCalculated,
	})
}
