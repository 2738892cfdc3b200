package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeRelayChanged uint32 = iota + 1
	TypeScheduleDropped
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// RelayChanged is published after a task drives the relay and LED pair.
type RelayChanged struct {
	Timestamp time.Time
	Tick      uint64 // clock tick at which the task ran
	Task      string // e.g., "relay_on"
	Energized bool
	Cycle     int    // completed relay_on activations, including this one
	Next      string // task scheduled to run next; empty if scheduling failed
	NextTick  uint64
	Err       string // hardware error while driving outputs, if any
}

// Type returns the event type identifier for RelayChanged.
func (e RelayChanged) Type() uint32 { return TypeRelayChanged }

// ScheduleDropped is published when a spawn is refused and the activation is lost.
type ScheduleDropped struct {
	Timestamp time.Time
	Tick      uint64
	Task      string // task that could not be scheduled
	Reason    string
}

// Type returns the event type identifier for ScheduleDropped.
func (e ScheduleDropped) Type() uint32 { return TypeScheduleDropped }
