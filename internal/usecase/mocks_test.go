package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fixora/agentpulse/internal/domain"
)

type MockHelpdeskSource struct {
	mock.Mock
}

func (m *MockHelpdeskSource) FetchAgents(ctx context.Context, externalIDs []int64) ([]*domain.Agent, error) {
	args := m.Called(ctx, externalIDs)
	agents, _ := args.Get(0).([]*domain.Agent)
	return agents, args.Error(1)
}

func (m *MockHelpdeskSource) FetchTickets(ctx context.Context, window *domain.Window) ([]*domain.Ticket, error) {
	args := m.Called(ctx, window)
	tickets, _ := args.Get(0).([]*domain.Ticket)
	return tickets, args.Error(1)
}

func (m *MockHelpdeskSource) FetchSatisfactionRatings(ctx context.Context, window *domain.Window) ([]*domain.SatisfactionRating, error) {
	args := m.Called(ctx, window)
	ratings, _ := args.Get(0).([]*domain.SatisfactionRating)
	return ratings, args.Error(1)
}

type MockAgentRepository struct {
	mock.Mock
}

func (m *MockAgentRepository) UpsertAgents(ctx context.Context, agents []*domain.Agent) (map[int64]int64, error) {
	args := m.Called(ctx, agents)
	ids, _ := args.Get(0).(map[int64]int64)
	return ids, args.Error(1)
}

func (m *MockAgentRepository) List(ctx context.Context) ([]*domain.Agent, error) {
	args := m.Called(ctx)
	agents, _ := args.Get(0).([]*domain.Agent)
	return agents, args.Error(1)
}

type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) UpsertTickets(ctx context.Context, tickets []*domain.Ticket) (int, error) {
	args := m.Called(ctx, tickets)
	return args.Int(0), args.Error(1)
}

type MockMetricRepository struct {
	mock.Mock
}

func (m *MockMetricRepository) UpsertMetric(ctx context.Context, metric *domain.PeriodMetric) error {
	args := m.Called(ctx, metric)
	return args.Error(0)
}

func (m *MockMetricRepository) LatestPerAgent(ctx context.Context, window *domain.Window) ([]*domain.PeriodMetric, error) {
	args := m.Called(ctx, window)
	metrics, _ := args.Get(0).([]*domain.PeriodMetric)
	return metrics, args.Error(1)
}

// recordingRunRepository keeps a copy of every checkpoint
type recordingRunRepository struct {
	mu          sync.Mutex
	created     *domain.SyncRun
	checkpoints []domain.SyncRun
	createErr   error
}

func (r *recordingRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	copied := *run
	r.created = &copied
	return nil
}

func (r *recordingRunRepository) Checkpoint(ctx context.Context, run *domain.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *run
	copied.Errors = append([]string(nil), run.Errors...)
	r.checkpoints = append(r.checkpoints, copied)
	return nil
}

func (r *recordingRunRepository) FindByID(ctx context.Context, id string) (*domain.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.checkpoints) == 0 {
		return nil, domain.ErrSyncRunNotFound
	}
	last := r.checkpoints[len(r.checkpoints)-1]
	return &last, nil
}

func (r *recordingRunRepository) last() domain.SyncRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkpoints[len(r.checkpoints)-1]
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	released int
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released++
	return nil
}

type recordedSync struct {
	mode    string
	success bool
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []recordedSync
}

func (r *fakeRecorder) RecordSync(mode string, success bool, duration time.Duration, agents, tickets, metrics int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, recordedSync{mode: mode, success: success})
}
