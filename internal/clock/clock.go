// Package clock provides the monotonic microsecond time base used by the scheduler.
// Ticks are unsigned and may wrap; compare them with Before or Due, never with <.
package clock

import "time"

// Tick is a count of microseconds since boot.
type Tick uint64

// Resolution is the duration of a single tick.
const Resolution = time.Microsecond

// Clock is a monotonic tick source with a deadline wake-up.
type Clock interface {
	// Now returns the current tick. It never blocks.
	Now() Tick

	// NewTimer returns an armed timer that fires once d has elapsed on this clock.
	NewTimer(d time.Duration) Timer
}

// Timer is a reusable deadline. Reset re-arms it and discards any unread fire.
type Timer interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop() bool
}

// FromDuration converts d to ticks. Negative durations become zero.
func FromDuration(d time.Duration) Tick {
	if d <= 0 {
		return 0
	}
	return Tick(d / Resolution)
}

// Duration converts a tick count to a time.Duration.
func (t Tick) Duration() time.Duration {
	return time.Duration(t) * Resolution
}

// Add returns t advanced by d. Overflow wraps.
func (t Tick) Add(d time.Duration) Tick {
	return t + FromDuration(d)
}

// Before reports whether a is strictly earlier than b.
// Uses the signed difference so the result survives counter wraparound
// as long as the two ticks are less than half the counter range apart.
func Before(a, b Tick) bool {
	return int64(a-b) < 0
}

// Due reports whether fireAt has been reached at now.
func Due(fireAt, now Tick) bool {
	return !Before(now, fireAt)
}

// Until returns the time remaining from now to fireAt, or zero if already due.
func Until(fireAt, now Tick) time.Duration {
	if Due(fireAt, now) {
		return 0
	}
	return (fireAt - now).Duration()
}

// Monotonic reads the Go runtime monotonic clock relative to a boot instant.
type Monotonic struct {
	boot time.Time
}

// NewMonotonic creates a clock whose tick zero is the moment of the call.
func NewMonotonic() *Monotonic {
	return &Monotonic{boot: time.Now()}
}

// Now returns microseconds elapsed since NewMonotonic.
func (m *Monotonic) Now() Tick {
	return FromDuration(time.Since(m.boot))
}

// NewTimer wraps a runtime timer.
func (m *Monotonic) NewTimer(d time.Duration) Timer {
	return &runtimeTimer{t: time.NewTimer(d)}
}

type runtimeTimer struct {
	t *time.Timer
}

func (r *runtimeTimer) C() <-chan time.Time { return r.t.C }

// Reset stops and drains the timer before re-arming so a stale fire is never delivered.
func (r *runtimeTimer) Reset(d time.Duration) {
	if !r.t.Stop() {
		select {
		case <-r.t.C:
		default:
		}
	}
	r.t.Reset(d)
}

func (r *runtimeTimer) Stop() bool { return r.t.Stop() }
