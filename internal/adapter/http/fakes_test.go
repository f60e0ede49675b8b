package http

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/usecase"
)

type MockMetricsReader struct {
	mock.Mock
}

func (m *MockMetricsReader) GetLatestMetrics(ctx context.Context, window *domain.Window) usecase.LatestMetrics {
	args := m.Called(ctx, window)
	return args.Get(0).(usecase.LatestMetrics)
}

func (m *MockMetricsReader) ListAgents(ctx context.Context) ([]*domain.Agent, error) {
	args := m.Called(ctx)
	agents, _ := args.Get(0).([]*domain.Agent)
	return agents, args.Error(1)
}

type stubSource struct {
	agents  []*domain.Agent
	tickets []*domain.Ticket
	release chan struct{}
}

func (s *stubSource) FetchAgents(ctx context.Context, externalIDs []int64) ([]*domain.Agent, error) {
	if s.release != nil {
		<-s.release
	}
	return s.agents, nil
}

func (s *stubSource) FetchTickets(ctx context.Context, window *domain.Window) ([]*domain.Ticket, error) {
	return s.tickets, nil
}

func (s *stubSource) FetchSatisfactionRatings(ctx context.Context, window *domain.Window) ([]*domain.SatisfactionRating, error) {
	return nil, nil
}

// memStore backs every repository port in memory
type memStore struct {
	mu      sync.Mutex
	agents  map[int64]*domain.Agent
	tickets map[int64]*domain.Ticket
	metrics []*domain.PeriodMetric
	runs    map[string]domain.SyncRun
}

func newMemStore() *memStore {
	return &memStore{
		agents:  make(map[int64]*domain.Agent),
		tickets: make(map[int64]*domain.Ticket),
		runs:    make(map[string]domain.SyncRun),
	}
}

func (s *memStore) UpsertAgents(ctx context.Context, agents []*domain.Agent) (map[int64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[int64]int64, len(agents))
	for _, a := range agents {
		s.agents[a.ExternalID] = a
		ids[a.ExternalID] = a.ExternalID
	}
	return ids, nil
}

func (s *memStore) List(ctx context.Context) ([]*domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agents := make([]*domain.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		agents = append(agents, a)
	}
	return agents, nil
}

func (s *memStore) UpsertTickets(ctx context.Context, tickets []*domain.Ticket) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tickets {
		s.tickets[t.ExternalID] = t
	}
	return len(tickets), nil
}

func (s *memStore) UpsertMetric(ctx context.Context, metric *domain.PeriodMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, metric)
	return nil
}

func (s *memStore) LatestPerAgent(ctx context.Context, window *domain.Window) ([]*domain.PeriodMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics, nil
}

func (s *memStore) Create(ctx context.Context, run *domain.SyncRun) error {
	return s.Checkpoint(ctx, run)
}

func (s *memStore) Checkpoint(ctx context.Context, run *domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *memStore) FindByID(ctx context.Context, id string) (*domain.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrSyncRunNotFound
	}
	return &run, nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
