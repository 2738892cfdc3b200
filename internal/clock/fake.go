package clock

import (
	"sync"
	"time"
)

// FakeClock is a manually driven clock for simulation and tests.
// Safe for concurrent use.
type FakeClock struct {
	mu    sync.Mutex
	now   Tick
	armed []*fakeTimer
}

// NewFakeClock creates a FakeClock starting at tick start.
func NewFakeClock(start Tick) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake tick.
func (f *FakeClock) Now() Tick {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTimer returns a timer that fires once the fake time reaches now+d.
// A non-positive d fires immediately.
func (f *FakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{clock: f, ch: make(chan time.Time, 1)}
	t.Reset(d)
	return t
}

// Advance moves the clock forward by d and fires any expired timers.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.setLocked(f.now.Add(d))
	f.mu.Unlock()
}

// Set jumps the clock to t and fires any expired timers.
func (f *FakeClock) Set(t Tick) {
	f.mu.Lock()
	f.setLocked(t)
	f.mu.Unlock()
}

// Waiters returns the number of armed timers that have not fired yet.
func (f *FakeClock) Waiters() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.armed)
}

func (f *FakeClock) setLocked(t Tick) {
	f.now = t
	kept := f.armed[:0]
	for _, w := range f.armed {
		if Due(w.deadline, t) {
			w.fire(t)
			continue
		}
		kept = append(kept, w)
	}
	f.armed = kept
}

// disarmLocked removes t from the armed list and reports whether it was there.
func (f *FakeClock) disarmLocked(t *fakeTimer) bool {
	for i, w := range f.armed {
		if w == t {
			f.armed = append(f.armed[:i], f.armed[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock    *FakeClock
	ch       chan time.Time
	deadline Tick
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Reset(d time.Duration) {
	f := t.clock
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disarmLocked(t)
	select {
	case <-t.ch:
	default:
	}

	t.deadline = f.now.Add(d)
	if Due(t.deadline, f.now) {
		t.fire(f.now)
		return
	}
	f.armed = append(f.armed, t)
}

func (t *fakeTimer) Stop() bool {
	f := t.clock
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disarmLocked(t)
}

func (t *fakeTimer) fire(at Tick) {
	select {
	case t.ch <- time.Unix(0, 0).Add(at.Duration()):
	default:
	}
}
