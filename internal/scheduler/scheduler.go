package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fixora/agentpulse/internal/logger"
	"github.com/fixora/agentpulse/internal/usecase"
)

type incrementalSyncer interface {
	RunIncrementalSync(ctx context.Context) usecase.SyncResult
}

type options struct {
	Cron     *cron.Cron
	Location *time.Location
}

// Option applies configuration to the scheduler.
type Option func(*options)

// WithCron supplies a preconfigured cron engine.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithLocation sets the timezone schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.Location = loc
	}
}

// Scheduler triggers incremental syncs on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	syncer   incrementalSyncer
	logger   logger.Logger
	schedule string
	entry    cron.EntryID
}

// New registers the incremental sync job. schedule accepts standard five-field
// expressions and descriptors such as "@every 1h".
func New(syncer incrementalSyncer, schedule string, log logger.Logger, opts ...Option) (*Scheduler, error) {
	o := options{Location: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}

	engine := o.Cron
	if engine == nil {
		engine = cron.New(
			cron.WithLocation(o.Location),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		)
	}

	s := &Scheduler{
		cron:     engine,
		syncer:   syncer,
		logger:   log,
		schedule: schedule,
	}

	entry, err := engine.AddFunc(schedule, s.runIncremental)
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	s.entry = entry

	return s, nil
}

// Start begins firing jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(context.Background(), "Sync scheduler started", map[string]interface{}{
		"schedule": s.schedule,
		"next_run": s.NextRun(),
	})
}

// Stop prevents new runs and waits for a running one to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextRun returns when the job fires next; zero before Start
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entry).Next
}

// runIncremental blocks until the sync finishes. The sync bounds itself with
// its configured run timeout.
func (s *Scheduler) runIncremental() {
	ctx := context.Background()

	result := s.syncer.RunIncrementalSync(ctx)

	fields := map[string]interface{}{
		"run_id":             result.RunID,
		"agents_processed":   result.AgentsProcessed,
		"tickets_processed":  result.TicketsProcessed,
		"metrics_calculated": result.MetricsCalculated,
		"duration_ms":        result.DurationMs,
	}

	if result.Success {
		s.logger.Info(ctx, "Scheduled sync completed", fields)
		return
	}

	if len(result.Errors) == 1 && result.Errors[0] == usecase.ErrSyncInProgress.Error() {
		s.logger.Info(ctx, "Scheduled sync skipped, another sync is running", nil)
		return
	}

	fields["errors"] = result.Errors
	s.logger.Warn(ctx, "Scheduled sync failed", fields)
}
