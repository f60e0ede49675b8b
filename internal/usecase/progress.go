package usecase

import (
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fixora/agentpulse/internal/domain"
)

// ProgressStep names a milestone of a sync run
type ProgressStep string

const (
	StepStart            ProgressStep = "start"
	StepFetchAgents      ProgressStep = "fetch_agents"
	StepFetchTickets     ProgressStep = "fetch_tickets"
	StepFetchRatings     ProgressStep = "fetch_ratings"
	StepWriteAgents      ProgressStep = "write_agents"
	StepWriteTickets     ProgressStep = "write_tickets"
	StepCalculateMetrics ProgressStep = "calculate_metrics"
	StepDone             ProgressStep = "done"
	StepFailed           ProgressStep = "failed"
)

// ProgressTotal is the value Current reaches when a run completes
const ProgressTotal = 100

// Progress is one milestone event of a sync run
type Progress struct {
	Step    ProgressStep `json:"step"`
	Current int          `json:"current"`
	Total   int          `json:"total"`
	Message string       `json:"message"`
	At      time.Time    `json:"at"`
}

// Terminal reports whether no further events follow
func (p Progress) Terminal() bool {
	return p.Step == StepDone || p.Step == StepFailed
}

// progressLog is an append-only event list. Appends never block, so the
// sync proceeds at full speed regardless of how fast events are read.
type progressLog struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []Progress
	closed bool
}

func newProgressLog() *progressLog {
	l := &progressLog{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *progressLog) append(p Progress) {
	l.mu.Lock()
	if !l.closed {
		l.events = append(l.events, p)
	}
	l.mu.Unlock()
	l.cond.Broadcast()
}

func (l *progressLog) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Broadcast()
}

// at blocks until event i exists or the log is closed
func (l *progressLog) at(i int) (Progress, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i >= len(l.events) && !l.closed {
		l.cond.Wait()
	}
	if i < len(l.events) {
		return l.events[i], true
	}
	return Progress{}, false
}

// Run is a handle on one launched sync
type Run struct {
	ID     string
	Mode   domain.SyncMode
	Window domain.Window

	log     *progressLog
	claimed atomic.Bool
	done    chan struct{}
	result  SyncResult
}

func newRun(id string, mode domain.SyncMode, window domain.Window) *Run {
	return &Run{
		ID:     id,
		Mode:   mode,
		Window: window,
		log:    newProgressLog(),
		done:   make(chan struct{}),
	}
}

// Progress returns the run's events from the first one onwards. The
// sequence ends after the done or failed event. Only the first call
// observes events; later calls get an empty sequence. Ranging the
// returned sequence again resumes after the last event delivered.
func (r *Run) Progress() iter.Seq[Progress] {
	if !r.claimed.CompareAndSwap(false, true) {
		return func(func(Progress) bool) {}
	}
	next := 0
	return func(yield func(Progress) bool) {
		for {
			p, ok := r.log.at(next)
			if !ok {
				return
			}
			next++
			if !yield(p) {
				return
			}
		}
	}
}

// Wait blocks until the run finishes and returns its result
func (r *Run) Wait() SyncResult {
	<-r.done
	return r.result
}

// Done is closed when the run finishes
func (r *Run) Done() <-chan struct{} {
	return r.done
}

func (r *Run) emit(step ProgressStep, current int, message string, at time.Time) {
	r.log.append(Progress{
		Step:    step,
		Current: current,
		Total:   ProgressTotal,
		Message: message,
		At:      at,
	})
}

func (r *Run) finish(result SyncResult) {
	r.result = result
	r.log.close()
	close(r.done)
}
