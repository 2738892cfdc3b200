package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	State         string     `json:"state"`
	Relay         string     `json:"relay"`
	Stalled       bool       `json:"stalled"`
	Next          *NextJSON  `json:"next,omitempty"`
	Tick          uint64     `json:"tick"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// NextJSON is the JSON representation of the next pending activation.
type NextJSON struct {
	Task      string `json:"task"`
	Tick      uint64 `json:"tick"`
	InSeconds int64  `json:"in_seconds"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Buffered  int    `json:"buffered"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of duty-cycle counters.
type CountsJSON struct {
	Energized   int `json:"energized"`
	Deenergized int `json:"deenergized"`
	Dropped     int `json:"dropped"`
	DriveErrors int `json:"drive_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip          string `json:"chip"`
	LEDPin        int    `json:"led_pin"`
	RelayPin      int    `json:"relay_pin"`
	OnMs          int64  `json:"on_ms"`
	OffMs         int64  `json:"off_ms"`
	QueueCapacity int    `json:"queue_capacity"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
}

func relayString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State:         state,
		Relay:         relayString(snap.Energized),
		Stalled:       snap.Stalled(),
		Tick:          snap.Tick,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Buffered: snap.MQTTBuffered, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Energized:   snap.Counts.Energized,
			Deenergized: snap.Counts.Deenergized,
			Dropped:     snap.Counts.Dropped,
			DriveErrors: snap.Counts.DriveErrors,
		},
		Config: ConfigJSON{
			Chip:          snap.Config.Chip,
			LEDPin:        snap.Config.LEDPin,
			RelayPin:      snap.Config.RelayPin,
			OnMs:          snap.Config.OnMs,
			OffMs:         snap.Config.OffMs,
			QueueCapacity: snap.Config.QueueCapacity,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
		},
	}
	if snap.Next != nil {
		inner.Next = &NextJSON{
			Task:      snap.Next.Task,
			Tick:      snap.Next.Tick,
			InSeconds: int64(snap.Next.In.Truncate(time.Second).Seconds()),
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status (no event/reason) for the
// on-demand status dump.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
