// Package sched implements a cooperative, priority-ordered deferred task queue
// and the single-threaded executive that dispatches it.
// Tasks run to completion; a task never blocks and never preempts another.
package sched

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/relay-cycler/internal/clock"
)

// ErrQueueFull is returned when a spawn cannot get a slot, either because the
// fixed-capacity store is exhausted or the task is already pending.
var ErrQueueFull = errors.New("sched: queue full")

// DefaultCapacity is the number of simultaneously pending activations.
const DefaultCapacity = 2

// TaskID identifies a task.
type TaskID uint8

// Priority is a static task priority. Higher values dispatch first among
// activations with the same fire time.
type Priority uint8

// Activation is a pending future invocation of a task.
type Activation struct {
	Task     TaskID
	FireAt   clock.Tick
	Priority Priority

	seq uint64
}

// Queue holds pending activations sorted by fire time, then priority, then insertion.
// Safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	pending  []Activation
	capacity int
	seq      uint64
}

// NewQueue creates a queue with a fixed capacity. Capacity below 1 is raised to 1.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		pending:  make([]Activation, 0, capacity),
		capacity: capacity,
	}
}

// SpawnAfter records an activation of task at now+delay.
// Returns ErrQueueFull without touching existing records when no slot is free.
func (q *Queue) SpawnAfter(task TaskID, prio Priority, delay time.Duration, now clock.Tick) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, a := range q.pending {
		if a.Task == task {
			return fmt.Errorf("task %d already pending: %w", task, ErrQueueFull)
		}
	}
	if len(q.pending) >= q.capacity {
		return fmt.Errorf("%d of %d slots used: %w", len(q.pending), q.capacity, ErrQueueFull)
	}

	q.seq++
	q.insert(Activation{
		Task:     task,
		FireAt:   now.Add(delay),
		Priority: prio,
		seq:      q.seq,
	})
	return nil
}

// insert places a in sorted order. Entries that compare equal keep insertion
// order because a new entry goes after every entry it does not precede.
func (q *Queue) insert(a Activation) {
	i := len(q.pending)
	for j, cur := range q.pending {
		if precedes(a, cur) {
			i = j
			break
		}
	}
	q.pending = append(q.pending, Activation{})
	copy(q.pending[i+1:], q.pending[i:])
	q.pending[i] = a
}

func precedes(a, b Activation) bool {
	if a.FireAt != b.FireAt {
		return clock.Before(a.FireAt, b.FireAt)
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.seq < b.seq
}

// DispatchReady removes and returns the earliest activation due at now.
// Returns false if nothing is due.
func (q *Queue) DispatchReady(now clock.Tick) (TaskID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 || !clock.Due(q.pending[0].FireAt, now) {
		return 0, false
	}
	head := q.pending[0]
	copy(q.pending, q.pending[1:])
	q.pending = q.pending[:len(q.pending)-1]
	return head.Task, true
}

// Next returns the earliest pending activation without removing it.
func (q *Queue) Next() (Activation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Activation{}, false
	}
	return q.pending[0], true
}

// Pending returns a copy of all pending activations in dispatch order.
func (q *Queue) Pending() []Activation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Activation, len(q.pending))
	copy(out, q.pending)
	return out
}

// IsPending reports whether task has a pending activation.
func (q *Queue) IsPending(task TaskID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, a := range q.pending {
		if a.Task == task {
			return true
		}
	}
	return false
}

// FireAt returns the fire time of task's pending activation.
func (q *Queue) FireAt(task TaskID) (clock.Tick, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, a := range q.pending {
		if a.Task == task {
			return a.FireAt, true
		}
	}
	return 0, false
}

// Len returns the number of pending activations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int {
	return q.capacity
}

// Reset drops every pending activation.
func (q *Queue) Reset() {
	q.mu.Lock()
	q.pending = q.pending[:0]
	q.mu.Unlock()
}
