// Package session accumulates cost breakdowns for one agent session and
// notifies subscribers as they arrive.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/agentcost/internal/model"
)

// Listener receives the full history after every Record.
// The slice is a read-only snapshot and must not be modified.
type Listener func(history []model.CostBreakdown)

type subscriber struct {
	id int
	fn Listener
}

// Tracker is the append-only cost history of a single session.
// Create one per session with New and pass it to every call site that
// records or reads cost.
type Tracker struct {
	id      string
	started time.Time

	// emitMu serializes Record so notifications arrive in append order.
	emitMu sync.Mutex

	mu      sync.RWMutex
	history []model.CostBreakdown
	subs    []subscriber
	nextSub int
}

// New returns an empty tracker with a fresh session id.
func New() *Tracker {
	return &Tracker{
		id:      uuid.NewString(),
		started: time.Now(),
	}
}

// ID returns the session id.
func (t *Tracker) ID() string { return t.id }

// StartedAt returns when the tracker was created.
func (t *Tracker) StartedAt() time.Time { return t.started }

// Record appends b and synchronously invokes every listener, in
// registration order, before returning. Listeners must not call Record.
func (t *Tracker) Record(b model.CostBreakdown) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	t.history = append(t.history, b)
	snapshot := t.history[:len(t.history):len(t.history)]
	subs := make([]subscriber, len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, s := range subs {
		s.fn(snapshot)
	}
}

// History returns a copy of the breakdowns recorded so far, oldest first.
func (t *Tracker) History() []model.CostBreakdown {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.history)
}

// Len returns the number of recorded breakdowns.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.history)
}

// TotalCost sums TotalCost over the history. It is recomputed on every call.
func (t *Tracker) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, b := range t.history {
		total += b.TotalCost
	}
	return total
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription and is safe to call more than once.
func (t *Tracker) Subscribe(fn Listener) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs = append(t.subs, subscriber{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
				return
			}
		}
	}
}
