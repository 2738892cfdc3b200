package sched

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/relay-cycler/internal/clock"
)

// TaskState is the lifecycle state of a task identity.
type TaskState string

const (
	TaskIdle    TaskState = "IDLE"
	TaskPending TaskState = "PENDING"
	TaskRunning TaskState = "RUNNING"
)

// Handler runs task bodies. Dispatch is called once per dispatched activation
// and must run to completion without blocking.
type Handler interface {
	Dispatch(task TaskID)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(task TaskID)

// Dispatch calls f(task).
func (f HandlerFunc) Dispatch(task TaskID) { f(task) }

// Executive is a cyclic executive: it sleeps until the earliest deadline,
// then drains every due activation before sleeping again.
type Executive struct {
	clock clock.Clock
	queue *Queue

	mu      sync.Mutex
	running TaskID
	active  bool

	// wake is nudged by SpawnAfter so Run re-arms its deadline.
	wake chan struct{}
}

// NewExecutive creates an executive over the given clock and queue.
func NewExecutive(c clock.Clock, q *Queue) *Executive {
	return &Executive{
		clock: c,
		queue: q,
		wake:  make(chan struct{}, 1),
	}
}

// Now returns the current tick of the executive's clock.
func (e *Executive) Now() clock.Tick {
	return e.clock.Now()
}

// Queue returns the underlying queue.
func (e *Executive) Queue() *Queue {
	return e.queue
}

// SpawnAfter schedules task to run delay from now. It never blocks.
func (e *Executive) SpawnAfter(task TaskID, prio Priority, delay time.Duration) error {
	if err := e.queue.SpawnAfter(task, prio, delay, e.clock.Now()); err != nil {
		return err
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// FireAt returns the tick at which task's pending activation fires.
func (e *Executive) FireAt(task TaskID) (clock.Tick, bool) {
	return e.queue.FireAt(task)
}

// Reset drops all pending activations.
func (e *Executive) Reset() {
	e.queue.Reset()
}

// TaskState reports whether task is running, pending or idle.
func (e *Executive) TaskState(task TaskID) TaskState {
	e.mu.Lock()
	running := e.active && e.running == task
	e.mu.Unlock()

	if running {
		return TaskRunning
	}
	if e.queue.IsPending(task) {
		return TaskPending
	}
	return TaskIdle
}

// RunPending dispatches every activation due at the current time, in order,
// and returns how many ran. Activations spawned by a task with zero delay run
// in the same pass.
func (e *Executive) RunPending(h Handler) int {
	n := 0
	for {
		task, ok := e.queue.DispatchReady(e.clock.Now())
		if !ok {
			return n
		}
		e.setRunning(task, true)
		h.Dispatch(task)
		e.setRunning(task, false)
		n++
	}
}

func (e *Executive) setRunning(task TaskID, active bool) {
	e.mu.Lock()
	e.running = task
	e.active = active
	e.mu.Unlock()
}

// Run drains due activations and sleeps until the next deadline, a new
// spawn, or ctx cancellation. Returns nil when ctx is done.
// A single timer is re-armed for every sleep.
func (e *Executive) Run(ctx context.Context, h Handler) error {
	var timer clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		e.RunPending(h)

		var deadline <-chan time.Time
		if next, ok := e.queue.Next(); ok {
			d := clock.Until(next.FireAt, e.clock.Now())
			if timer == nil {
				timer = e.clock.NewTimer(d)
			} else {
				timer.Reset(d)
			}
			deadline = timer.C()
		} else if timer != nil {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-e.wake:
		case <-deadline:
		}
	}
}
