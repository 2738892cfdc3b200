// Package mqtt provides best-effort diagnostic publishing with abstraction for testing.
// Nothing in the control loop depends on delivery.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/relay-cycler/internal/events"
)

// Topic is the MQTT topic for relay transition events.
const Topic = "home/relay-cycler/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/relay-cycler/system"

// Event names carried in relay payloads.
const (
	EventRelayOn         = "RELAY_ON"
	EventRelayOff        = "RELAY_OFF"
	EventScheduleDropped = "SCHEDULE_DROPPED"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a duty-cycle event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event events.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active and how
// many messages are held back waiting for it.
type ConnectionStatus interface {
	IsConnected() bool
	Buffered() int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Relay RelayPayload `json:"relay"`
}

// RelayPayload contains the duty-cycle event details.
type RelayPayload struct {
	Timestamp string       `json:"timestamp"`
	Event     string       `json:"event"`
	Task      string       `json:"task"`
	Tick      uint64       `json:"tick"`
	State     string       `json:"state,omitempty"`
	Cycle     int          `json:"cycle,omitempty"`
	Next      *NextPayload `json:"next,omitempty"`
	Error     string       `json:"error,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// NextPayload names the activation scheduled by a transition.
type NextPayload struct {
	Task string `json:"task"`
	Tick uint64 `json:"tick"`
}

// FormatPayload creates the JSON payload for a duty-cycle event.
func FormatPayload(event events.Event) ([]byte, error) {
	var p RelayPayload

	switch e := event.(type) {
	case events.RelayChanged:
		p = RelayPayload{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Event:     EventRelayOff,
			Task:      e.Task,
			Tick:      e.Tick,
			State:     "OFF",
			Cycle:     e.Cycle,
			Error:     e.Err,
		}
		if e.Energized {
			p.Event = EventRelayOn
			p.State = "ON"
		}
		if e.Next != "" {
			p.Next = &NextPayload{Task: e.Next, Tick: e.NextTick}
		}
	case events.ScheduleDropped:
		p = RelayPayload{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Event:     EventScheduleDropped,
			Task:      e.Task,
			Tick:      e.Tick,
			Reason:    e.Reason,
		}
	default:
		return nil, fmt.Errorf("unsupported event type %d", event.Type())
	}

	return json.Marshal(Payload{Relay: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
