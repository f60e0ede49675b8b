package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/logger"
)

var syncNow = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

type syncFixture struct {
	source   *MockHelpdeskSource
	agents   *MockAgentRepository
	tickets  *MockTicketRepository
	metrics  *MockMetricRepository
	runs     *recordingRunRepository
	locker   *fakeLocker
	recorder *fakeRecorder
	uc       *SyncUseCase
}

func newSyncFixture(agentIDs ...int64) *syncFixture {
	f := &syncFixture{
		source:   new(MockHelpdeskSource),
		agents:   new(MockAgentRepository),
		tickets:  new(MockTicketRepository),
		metrics:  new(MockMetricRepository),
		runs:     &recordingRunRepository{},
		locker:   &fakeLocker{},
		recorder: &fakeRecorder{},
	}
	f.uc = NewSyncUseCase(f.source, f.agents, f.tickets, f.metrics, f.runs, f.locker, f.recorder,
		logger.NewNop(), SyncConfig{AgentIDs: agentIDs, BatchSize: 100})
	f.uc.SetClock(func() time.Time { return syncNow })
	return f
}

func makeAgent(externalID int64, name string) *domain.Agent {
	return domain.NewAgent(externalID, name, name+"@acme.test", "agent", true)
}

func makeTickets(n int, assignee int64, firstID int64) []*domain.Ticket {
	tickets := make([]*domain.Ticket, n)
	for i := range tickets {
		id := assignee
		created := syncNow.Add(-5 * 24 * time.Hour)
		tickets[i] = &domain.Ticket{
			ExternalID: firstID + int64(i),
			Status:     domain.TicketStatusSolved,
			Priority:   domain.TicketPriorityNormal,
			AssigneeID: &id,
			CreatedAt:  created,
			UpdatedAt:  created.Add(12 * time.Hour),
			Tags:       []string{},
		}
	}
	return tickets
}

func makeRatings(assignee int64, scores ...domain.RatingScore) []*domain.SatisfactionRating {
	ratings := make([]*domain.SatisfactionRating, len(scores))
	for i, score := range scores {
		id := assignee
		ratings[i] = &domain.SatisfactionRating{ExternalID: int64(i + 1), AssigneeID: &id, Score: score}
	}
	return ratings
}

func collect(run *Run) []Progress {
	var events []Progress
	for p := range run.Progress() {
		events = append(events, p)
	}
	return events
}

func batchOf(n int) interface{} {
	return mock.MatchedBy(func(tickets []*domain.Ticket) bool { return len(tickets) == n })
}

func upsertedMetrics(m *MockMetricRepository) []*domain.PeriodMetric {
	var metrics []*domain.PeriodMetric
	for _, call := range m.Calls {
		if call.Method == "UpsertMetric" {
			metrics = append(metrics, call.Arguments.Get(1).(*domain.PeriodMetric))
		}
	}
	return metrics
}

func TestSyncUseCase_IncrementalSync_Success(t *testing.T) {
	f := newSyncFixture(11, 22)
	ann, bob := makeAgent(11, "Ann"), makeAgent(22, "Bob")

	tickets := append(makeTickets(100, 11, 1000), makeTickets(50, 22, 2000)...)
	tickets = append(tickets, makeTickets(5, 99, 3000)...)
	ratings := makeRatings(11, domain.RatingScoreGood, domain.RatingScoreGood, domain.RatingScoreGood,
		domain.RatingScoreGood, domain.RatingScoreBad)

	trailing := mock.MatchedBy(func(w *domain.Window) bool {
		return w != nil && w.End.Equal(syncNow) && w.Start.Equal(syncNow.Add(-30*24*time.Hour))
	})
	f.source.On("FetchAgents", mock.Anything, []int64{11, 22}).Return([]*domain.Agent{ann, bob}, nil)
	f.source.On("FetchTickets", mock.Anything, trailing).Return(tickets, nil)
	f.source.On("FetchSatisfactionRatings", mock.Anything, trailing).Return(ratings, nil)
	f.agents.On("UpsertAgents", mock.Anything, []*domain.Agent{ann, bob}).Return(map[int64]int64{11: 1, 22: 2}, nil)
	f.tickets.On("UpsertTickets", mock.Anything, batchOf(100)).Return(100, nil).Once()
	f.tickets.On("UpsertTickets", mock.Anything, batchOf(50)).Return(50, nil).Once()
	f.metrics.On("UpsertMetric", mock.Anything, mock.AnythingOfType("*domain.PeriodMetric")).Return(nil).Twice()

	run, err := f.uc.Start(context.Background(), SyncRequest{Mode: domain.SyncModeIncremental})
	require.NoError(t, err)

	result := run.Wait()
	assert.True(t, result.Success)
	assert.Equal(t, run.ID, result.RunID)
	assert.Equal(t, 2, result.AgentsProcessed)
	assert.Equal(t, 150, result.TicketsProcessed, "tickets of untracked agents are not written")
	assert.Equal(t, 2, result.MetricsCalculated)
	assert.Empty(t, result.Errors)

	events := collect(run)
	var steps []ProgressStep
	var currents []int
	for _, e := range events {
		steps = append(steps, e.Step)
		currents = append(currents, e.Current)
		assert.Equal(t, ProgressTotal, e.Total)
	}
	assert.Equal(t, []ProgressStep{
		StepStart, StepFetchAgents, StepFetchTickets, StepFetchRatings, StepWriteAgents,
		StepWriteTickets, StepWriteTickets, StepCalculateMetrics, StepCalculateMetrics, StepDone,
	}, steps)
	assert.Equal(t, []int{0, 10, 25, 35, 45, 57, 70, 82, 95, 100}, currents)

	metrics := upsertedMetrics(f.metrics)
	require.Len(t, metrics, 2)
	assert.Equal(t, int64(1), metrics[0].AgentID)
	assert.Equal(t, int64(11), metrics[0].AgentExternalID)
	assert.Equal(t, 100, metrics[0].Closed)
	assert.Equal(t, 80.0, metrics[0].CESPercent)
	assert.Equal(t, int64(2), metrics[1].AgentID)
	assert.Equal(t, 50, metrics[1].Closed)

	last := f.runs.last()
	assert.Equal(t, domain.SyncStatusSuccess, last.Status)
	assert.Equal(t, domain.SyncPhaseMetrics, last.Phase)
	assert.Equal(t, 150, last.TicketsProcessed)
	require.NotNil(t, last.FinishedAt)

	assert.Eventually(t, func() bool {
		f.locker.mu.Lock()
		defer f.locker.mu.Unlock()
		return f.locker.released == 1 && !f.locker.held
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []recordedSync{{mode: "incremental", success: true}}, f.recorder.runs)

	f.source.AssertExpectations(t)
	f.tickets.AssertExpectations(t)
	f.metrics.AssertExpectations(t)
}

func TestSyncUseCase_EmptyAgentStillGetsMetric(t *testing.T) {
	f := newSyncFixture(11)
	ann := makeAgent(11, "Ann")

	f.source.On("FetchAgents", mock.Anything, []int64{11}).Return([]*domain.Agent{ann}, nil)
	f.source.On("FetchTickets", mock.Anything, mock.Anything).Return([]*domain.Ticket{}, nil)
	f.source.On("FetchSatisfactionRatings", mock.Anything, mock.Anything).Return([]*domain.SatisfactionRating{}, nil)
	f.agents.On("UpsertAgents", mock.Anything, mock.Anything).Return(map[int64]int64{11: 7}, nil)
	f.metrics.On("UpsertMetric", mock.Anything, mock.Anything).Return(nil).Once()

	result := f.uc.RunIncrementalSync(context.Background())

	require.True(t, result.Success, result.Errors)
	assert.Equal(t, 0, result.TicketsProcessed)
	assert.Equal(t, 1, result.MetricsCalculated)
	f.tickets.AssertNotCalled(t, "UpsertTickets", mock.Anything, mock.Anything)

	metrics := upsertedMetrics(f.metrics)
	require.Len(t, metrics, 1)
	m := metrics[0]
	assert.Equal(t, int64(7), m.AgentID)
	assert.Zero(t, m.Closed)
	assert.Zero(t, m.Open)
	assert.Zero(t, m.CESPercent)
	assert.Zero(t, m.SurveyCount)
	assert.Equal(t, domain.NeutralScore, m.ParticipationRate)
	assert.Equal(t, domain.NeutralScore, m.CommunicationScore)
	assert.Equal(t, domain.NeutralScore, m.ResponseQuality)
	assert.Equal(t, domain.NeutralScore, m.TechnicalAccuracy)
}

func TestSyncUseCase_SecondTicketBatchFails(t *testing.T) {
	f := newSyncFixture(11)
	ann := makeAgent(11, "Ann")
	writeErr := errors.New("failed to write tickets: connection reset")

	f.source.On("FetchAgents", mock.Anything, mock.Anything).Return([]*domain.Agent{ann}, nil)
	f.source.On("FetchTickets", mock.Anything, mock.Anything).Return(makeTickets(150, 11, 1), nil)
	f.source.On("FetchSatisfactionRatings", mock.Anything, mock.Anything).Return([]*domain.SatisfactionRating{}, nil)
	f.agents.On("UpsertAgents", mock.Anything, mock.Anything).Return(map[int64]int64{11: 1}, nil)
	f.tickets.On("UpsertTickets", mock.Anything, batchOf(100)).Return(100, nil).Once()
	f.tickets.On("UpsertTickets", mock.Anything, batchOf(50)).Return(0, writeErr).Once()

	run, err := f.uc.Start(context.Background(), SyncRequest{Mode: domain.SyncModeIncremental})
	require.NoError(t, err)
	events := collect(run)
	result := run.Wait()

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.AgentsProcessed)
	assert.Equal(t, 100, result.TicketsProcessed)
	assert.Equal(t, 0, result.MetricsCalculated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "connection reset")

	f.tickets.AssertNumberOfCalls(t, "UpsertTickets", 2)
	f.metrics.AssertNotCalled(t, "UpsertMetric", mock.Anything, mock.Anything)

	final := events[len(events)-1]
	assert.Equal(t, StepFailed, final.Step)
	assert.Equal(t, 57, final.Current)
	assert.Contains(t, final.Message, "connection reset")

	last := f.runs.last()
	assert.Equal(t, domain.SyncStatusFailed, last.Status)
	assert.Equal(t, domain.SyncPhaseAgents, last.Phase, "the last completed phase is kept for re-runs")
	assert.Equal(t, 100, last.TicketsProcessed)
	assert.Equal(t, result.Errors, last.Errors)
}

func TestSyncUseCase_FetchFailureWritesNothing(t *testing.T) {
	f := newSyncFixture(11)

	f.source.On("FetchAgents", mock.Anything, mock.Anything).Return([]*domain.Agent{makeAgent(11, "Ann")}, nil)
	f.source.On("FetchTickets", mock.Anything, mock.Anything).Return(nil, errors.New("helpdesk API rate limited (429)"))

	result := f.uc.RunIncrementalSync(context.Background())

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "failed to fetch tickets")
	f.agents.AssertNotCalled(t, "UpsertAgents", mock.Anything, mock.Anything)
	assert.Equal(t, domain.SyncPhaseStarted, f.runs.last().Phase)
	assert.Equal(t, []recordedSync{{mode: "incremental", success: false}}, f.recorder.runs)
}

func TestSyncUseCase_FullSyncUsesRequestedWindow(t *testing.T) {
	f := newSyncFixture(11)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	want := &domain.Window{Start: from, End: to}

	f.source.On("FetchAgents", mock.Anything, mock.Anything).Return([]*domain.Agent{}, nil)
	f.source.On("FetchTickets", mock.Anything, want).Return([]*domain.Ticket{}, nil)
	f.source.On("FetchSatisfactionRatings", mock.Anything, want).Return([]*domain.SatisfactionRating{}, nil)
	f.agents.On("UpsertAgents", mock.Anything, mock.Anything).Return(map[int64]int64{}, nil)

	result := f.uc.RunFullSync(context.Background(), from, to)

	require.True(t, result.Success, result.Errors)
	f.source.AssertExpectations(t)
	f.runs.mu.Lock()
	assert.Equal(t, domain.SyncModeFull, f.runs.created.Mode)
	assert.Equal(t, from, f.runs.created.WindowStart)
	f.runs.mu.Unlock()
}

func TestSyncUseCase_StartRejections(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     SyncRequest
		held    bool
		wantErr error
	}{
		{"inverted window", SyncRequest{Mode: domain.SyncModeFull, From: from, To: to}, false, domain.ErrInvalidDateRange},
		{"missing window", SyncRequest{Mode: domain.SyncModeFull}, false, domain.ErrInvalidDateRange},
		{"unknown mode", SyncRequest{Mode: "weekly"}, false, ErrInvalidSyncMode},
		{"lock held", SyncRequest{Mode: domain.SyncModeIncremental}, true, ErrSyncInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture(11)
			f.locker.held = tt.held

			run, err := f.uc.Start(context.Background(), tt.req)
			assert.Nil(t, run)
			assert.ErrorIs(t, err, tt.wantErr)
			f.source.AssertNotCalled(t, "FetchAgents", mock.Anything, mock.Anything)
		})
	}
}

func TestSyncUseCase_ConcurrentSyncIsRejected(t *testing.T) {
	f := newSyncFixture(11)
	f.locker.held = true

	result := f.uc.RunIncrementalSync(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, []string{ErrSyncInProgress.Error()}, result.Errors)
}

func TestSyncUseCase_CreateRunFailure(t *testing.T) {
	f := newSyncFixture(11)
	f.runs.createErr = errors.New("permission denied for table sync_runs")

	result := f.uc.RunIncrementalSync(context.Background())

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "failed to record sync run")
	f.source.AssertNotCalled(t, "FetchAgents", mock.Anything, mock.Anything)
}

func TestSyncUseCase_LookupAndGetRun(t *testing.T) {
	f := newSyncFixture(11)
	f.source.On("FetchAgents", mock.Anything, mock.Anything).Return([]*domain.Agent{}, nil)
	f.source.On("FetchTickets", mock.Anything, mock.Anything).Return([]*domain.Ticket{}, nil)
	f.source.On("FetchSatisfactionRatings", mock.Anything, mock.Anything).Return([]*domain.SatisfactionRating{}, nil)
	f.agents.On("UpsertAgents", mock.Anything, mock.Anything).Return(map[int64]int64{}, nil)

	run, err := f.uc.Start(context.Background(), SyncRequest{Mode: domain.SyncModeIncremental})
	require.NoError(t, err)
	run.Wait()

	found, ok := f.uc.Lookup(run.ID)
	assert.True(t, ok)
	assert.Same(t, run, found)

	_, ok = f.uc.Lookup("unknown")
	assert.False(t, ok)

	record, err := f.uc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusSuccess, record.Status)
}

func TestSyncUseCase_RunOutlivesCallerContext(t *testing.T) {
	f := newSyncFixture(11)
	ctx, cancel := context.WithCancel(context.Background())

	f.source.On("FetchAgents", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return([]*domain.Agent{}, nil)
	f.source.On("FetchTickets", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything).Return([]*domain.Ticket{}, nil)
	f.source.On("FetchSatisfactionRatings", mock.Anything, mock.Anything).Return([]*domain.SatisfactionRating{}, nil)
	f.agents.On("UpsertAgents", mock.Anything, mock.Anything).Return(map[int64]int64{}, nil)

	run, err := f.uc.Start(ctx, SyncRequest{Mode: domain.SyncModeIncremental})
	require.NoError(t, err)

	result := run.Wait()
	assert.True(t, result.Success, result.Errors)
}
