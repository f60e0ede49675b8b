package scheduler

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/agentpulse/internal/logger"
	"github.com/fixora/agentpulse/internal/usecase"
)

type stubSyncer struct {
	mu     sync.Mutex
	calls  int
	ctx    context.Context
	result usecase.SyncResult
}

func (s *stubSyncer) RunIncrementalSync(ctx context.Context) usecase.SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.ctx = ctx
	return s.result
}

func TestNew_RejectsInvalidSchedule(t *testing.T) {
	_, err := New(&stubSyncer{}, "every tuesday", logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sync schedule")
}

func TestScheduler_StartComputesNextRun(t *testing.T) {
	s, err := New(&stubSyncer{}, "@every 1h", logger.NewNop())
	require.NoError(t, err)

	assert.True(t, s.NextRun().IsZero())
	s.Start()
	defer s.Stop(context.Background())

	next := s.NextRun()
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)
}

func TestScheduler_RunIncrementalLogsOutcome(t *testing.T) {
	tests := []struct {
		name    string
		result  usecase.SyncResult
		message string
	}{
		{"success", usecase.SyncResult{Success: true, RunID: "r1", TicketsProcessed: 42}, "Scheduled sync completed"},
		{"lock held", usecase.SyncResult{Errors: []string{usecase.ErrSyncInProgress.Error()}}, "another sync is running"},
		{"failure", usecase.SyncResult{Errors: []string{"failed to fetch tickets"}}, "Scheduled sync failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
			syncer := &stubSyncer{result: tt.result}

			s, err := New(syncer, "@hourly", log, WithLocation(time.UTC))
			require.NoError(t, err)

			s.runIncremental()

			assert.Equal(t, 1, syncer.calls)
			assert.Contains(t, buf.String(), tt.message)
		})
	}
}

func TestScheduler_RunIncrementalLeavesDeadlineToSync(t *testing.T) {
	syncer := &stubSyncer{result: usecase.SyncResult{Success: true}}
	s, err := New(syncer, "@hourly", logger.NewNop())
	require.NoError(t, err)

	s.runIncremental()

	require.NotNil(t, syncer.ctx)
	_, hasDeadline := syncer.ctx.Deadline()
	assert.False(t, hasDeadline)
}
