// Package dutycycle drives the relay through a fixed energized/de-energized
// cycle using two tasks that reschedule each other.
// Time comes only from the scheduler's clock; nothing here sleeps.
package dutycycle

import (
	"time"

	"github.com/sweeney/relay-cycler/internal/sched"
)

// Task identities.
const (
	TaskRelayOn sched.TaskID = iota + 1
	TaskRelayOff
)

// taskPriority is shared by both tasks, so neither can preempt the other.
const taskPriority sched.Priority = 1

// Default cycle: 10 s energized, 590 s de-energized.
const (
	DefaultOnDuration  = 10 * time.Second
	DefaultOffDuration = 590 * time.Second
)

// TaskName returns the name used in logs and diagnostics.
func TaskName(task sched.TaskID) string {
	switch task {
	case TaskRelayOn:
		return "relay_on"
	case TaskRelayOff:
		return "relay_off"
	default:
		return "unknown"
	}
}

// State is the duty-cycle state.
type State string

const (
	StateBoot        State = "BOOT"
	StateEnergized   State = "ENERGIZED"
	StateDeenergized State = "DEENERGIZED"
)

// Config holds the cycle timings.
type Config struct {
	OnDuration  time.Duration
	OffDuration time.Duration
}

// DefaultConfig returns the 10 s / 590 s cycle.
func DefaultConfig() Config {
	return Config{OnDuration: DefaultOnDuration, OffDuration: DefaultOffDuration}
}

// Period returns the length of one full cycle.
func (c Config) Period() time.Duration {
	return c.OnDuration + c.OffDuration
}

// Counts tracks task activity since boot.
type Counts struct {
	Energized   int // relay_on runs
	Deenergized int // relay_off runs
	Dropped     int // spawns refused by the queue
	DriveErrors int // hardware writes that failed
}
