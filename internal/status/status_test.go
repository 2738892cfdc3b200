package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/relay-cycler/internal/dutycycle"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{OnMs: 10000, OffMs: 590000, QueueCapacity: 2, Broker: "tcp://localhost:1883"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.OnMs != 10000 {
		t.Errorf("Config.OnMs: got %d, want 10000", snap.Config.OnMs)
	}
	if snap.Next != nil {
		t.Error("expected nil Next initially")
	}
	if snap.Stalled() {
		t.Error("expected not stalled before first update")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	next := &Next{Task: "relay_off", Tick: 10_000_000, In: 10 * time.Second}
	tr.Update(dutycycle.StateEnergized, true, dutycycle.Counts{Energized: 3, Deenergized: 2}, 5, next)

	snap := tr.Snapshot()
	if snap.State != dutycycle.StateEnergized {
		t.Errorf("State: got %q, want ENERGIZED", snap.State)
	}
	if !snap.Energized {
		t.Error("expected Energized=true")
	}
	if snap.Counts.Energized != 3 {
		t.Errorf("Counts.Energized: got %d, want 3", snap.Counts.Energized)
	}
	if snap.Next == nil || snap.Next.Task != "relay_off" {
		t.Errorf("Next: got %+v", snap.Next)
	}
	if snap.Stalled() {
		t.Error("expected not stalled with pending activation")
	}
}

func TestStalled(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(dutycycle.StateEnergized, true, dutycycle.Counts{Energized: 1, Dropped: 1}, 0, nil)

	if !tr.Snapshot().Stalled() {
		t.Error("expected stalled with no pending activation")
	}

	tr.Update(dutycycle.StateBoot, true, dutycycle.Counts{}, 0, nil)
	if tr.Snapshot().Stalled() {
		t.Error("BOOT should not count as stalled")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}

	tr.SetMQTTBuffered(7)
	if got := tr.Snapshot().MQTTBuffered; got != 7 {
		t.Errorf("MQTTBuffered: got %d, want 7", got)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(dutycycle.StateEnergized, true, dutycycle.Counts{Energized: 1}, 0, &Next{Task: "relay_off"})

	snap1 := tr.Snapshot()
	snap1.Next.Task = "mutated"

	tr.Update(dutycycle.StateDeenergized, false, dutycycle.Counts{Energized: 1, Deenergized: 1}, 0, &Next{Task: "relay_on"})

	if snap1.State != dutycycle.StateEnergized {
		t.Error("snapshot should be a copy; State was modified")
	}
	if got := tr.Snapshot().Next.Task; got != "relay_on" {
		t.Errorf("Next.Task: got %q, want relay_on", got)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		State:         dutycycle.StateDeenergized,
		Energized:     false,
		Counts:        dutycycle.Counts{Energized: 5, Deenergized: 5, Dropped: 0},
		Next:          &Next{Task: "relay_on", Tick: 600_000_000, In: 590 * time.Second},
		Tick:          20_000_000,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		MQTTBuffered:  4,
		Config:        Config{Chip: "gpiochip0", LEDPin: 27, RelayPin: 17, OnMs: 10000, OffMs: 590000, QueueCapacity: 2, Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.State != "DEENERGIZED" {
		t.Errorf("State: got %q, want DEENERGIZED", parsed.Status.State)
	}
	if parsed.Status.Relay != "OFF" {
		t.Errorf("Relay: got %q, want OFF", parsed.Status.Relay)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.Next == nil || parsed.Status.Next.InSeconds != 590 {
		t.Errorf("Next: got %+v", parsed.Status.Next)
	}
	if parsed.Status.Counts.Energized != 5 {
		t.Errorf("Counts.Energized: got %d, want 5", parsed.Status.Counts.Energized)
	}
	if parsed.Status.Config.RelayPin != 17 {
		t.Errorf("Config.RelayPin: got %d, want 17", parsed.Status.Config.RelayPin)
	}
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event, got %q", parsed.Status.Event)
	}
	if parsed.Status.MQTT.Buffered != 4 {
		t.Errorf("MQTT.Buffered: got %d, want 4", parsed.Status.MQTT.Buffered)
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.State != "UNKNOWN" {
		t.Errorf("State: got %q, want UNKNOWN", parsed.Status.State)
	}
	if parsed.Status.Next != nil {
		t.Error("expected Next omitted")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		State:     dutycycle.StateEnergized,
		Energized: true,
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Relay != "ON" {
		t.Errorf("Relay: got %q, want ON", parsed.Status.Relay)
	}
	if !parsed.Status.Stalled {
		t.Error("expected Stalled=true with no next activation")
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(dutycycle.StateEnergized, true, dutycycle.Counts{Energized: i}, uint64(i), &Next{Task: "relay_off"})
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
