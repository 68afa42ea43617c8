package orchestration

import (
	"sync"
	"time"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
)

const subscriberBuffer = 16

type trackedRun struct {
	status      models.RunStatus
	events      []models.RunEvent
	subscribers map[int]chan models.RunEvent
}

// RunTracker keeps the state and event history of runs in this process and
// fans events out to subscribers. Finished runs are kept for retention.
type RunTracker struct {
	mu        sync.Mutex
	runs      map[string]*trackedRun
	nextSub   int
	retention time.Duration
	now       func() time.Time
}

func NewRunTracker(retention time.Duration) *RunTracker {
	return &RunTracker{
		runs:      make(map[string]*trackedRun),
		retention: retention,
		now:       time.Now,
	}
}

// Register starts tracking status. Finished runs past retention are dropped.
func (t *RunTracker) Register(status models.RunStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	t.runs[status.RunID] = &trackedRun{status: status, subscribers: make(map[int]chan models.RunEvent)}
}

// Publish records a progress event and updates the run state.
func (t *RunTracker) Publish(ev models.RunEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	run, ok := t.runs[ev.RunID]
	if !ok || run.status.EndedAt != nil {
		return
	}
	run.status.State = ev.State
	t.appendLocked(run, ev)
}

// Finish records the terminal event and closes every subscription.
func (t *RunTracker) Finish(runID string, res pipeline.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	run, ok := t.runs[runID]
	if !ok || run.status.EndedAt != nil {
		return
	}

	ended := t.now()
	ev := models.RunEvent{RunID: runID, EventType: models.EventTypeCompleted, State: pipeline.StateDone, Result: &res, Timestamp: ended}
	if !res.Success {
		ev.EventType = models.EventTypeFailed
		ev.State = pipeline.StateFailed
		ev.Error = res.Error
		if res.Error != nil {
			ev.Step = res.Error.Step
		}
	}

	run.status.State = ev.State
	run.status.Result = &res
	run.status.EndedAt = &ended
	t.appendLocked(run, ev)

	for id, ch := range run.subscribers {
		close(ch)
		delete(run.subscribers, id)
	}
}

// Get returns a snapshot of the run and its event history.
func (t *RunTracker) Get(runID string) (models.RunStatus, []models.RunEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	run, ok := t.runs[runID]
	if !ok {
		return models.RunStatus{}, nil, false
	}
	return run.status, append([]models.RunEvent(nil), run.events...), true
}

// Subscribe returns the history so far and a channel of later events. The
// channel is closed when the run finishes or cancel is called; for a finished
// run it is already closed.
func (t *RunTracker) Subscribe(runID string) (history []models.RunEvent, events <-chan models.RunEvent, cancel func(), ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	run, ok := t.runs[runID]
	if !ok {
		return nil, nil, nil, false
	}
	history = append([]models.RunEvent(nil), run.events...)

	ch := make(chan models.RunEvent, subscriberBuffer)
	if run.status.EndedAt != nil {
		close(ch)
		return history, ch, func() {}, true
	}

	id := t.nextSub
	t.nextSub++
	run.subscribers[id] = ch

	cancel = func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := run.subscribers[id]; ok {
			close(sub)
			delete(run.subscribers, id)
		}
	}
	return history, ch, cancel, true
}

func (t *RunTracker) appendLocked(run *trackedRun, ev models.RunEvent) {
	run.events = append(run.events, ev)
	for _, ch := range run.subscribers {
		select {
		case ch <- ev:
		default:
			// A stalled subscriber misses the event; the history still has it.
		}
	}
}

func (t *RunTracker) pruneLocked() {
	if t.retention <= 0 {
		return
	}
	cutoff := t.now().Add(-t.retention)
	for id, run := range t.runs {
		if run.status.EndedAt != nil && run.status.EndedAt.Before(cutoff) {
			delete(t.runs, id)
		}
	}
}
