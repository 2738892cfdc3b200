// Package status provides a thread-safe status tracker for the relay-cycler daemon.
// It is read by the heartbeat and lifecycle diagnostics.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/relay-cycler/internal/dutycycle"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip          string
	LEDPin        int
	RelayPin      int
	OnMs          int64
	OffMs         int64
	QueueCapacity int
	HeartbeatMs   int64
	Broker        string
}

// Next describes the earliest pending activation.
type Next struct {
	Task string
	Tick uint64
	In   time.Duration
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	State         dutycycle.State
	Energized     bool
	Counts        dutycycle.Counts
	Next          *Next
	Tick          uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTBuffered  int
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Stalled reports whether the cycle has no pending activation left.
// The machine never recovers from this on its own.
func (s Snapshot) Stalled() bool {
	return s.State != "" && s.State != dutycycle.StateBoot && s.Next == nil
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the duty-cycle state, counters and the next pending activation.
// next may be nil when nothing is pending.
func (t *Tracker) Update(state dutycycle.State, energized bool, counts dutycycle.Counts, tick uint64, next *Next) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Energized = energized
	t.snap.Counts = counts
	t.snap.Tick = tick
	t.snap.Next = next
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBuffered records how many diagnostics are waiting for the broker.
func (t *Tracker) SetMQTTBuffered(n int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = n
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Next != nil {
		n := *s.Next
		s.Next = &n
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
