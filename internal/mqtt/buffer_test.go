package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/relay-cycler/internal/events"
)

func pushN(rb *ringBuffer, n int) {
	for i := 0; i < n; i++ {
		rb.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
}

func payloadBytes(msgs []bufferedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload...)
	}
	return out
}

func TestRingBufferKeepsNewest(t *testing.T) {
	tests := []struct {
		name        string
		capacity    int
		pushes      int
		want        []byte
		wantDropped int
	}{
		{name: "empty", capacity: 3, pushes: 0, want: nil},
		{name: "partial", capacity: 3, pushes: 2, want: []byte{0, 1}},
		{name: "exactly full", capacity: 3, pushes: 3, want: []byte{0, 1, 2}},
		{name: "overflow drops oldest", capacity: 3, pushes: 7, want: []byte{4, 5, 6}, wantDropped: 4},
		{name: "zero capacity clamped to one", capacity: 0, pushes: 3, want: []byte{2}, wantDropped: 2},
		{name: "negative capacity clamped to one", capacity: -5, pushes: 1, want: []byte{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity)
			pushN(rb, tt.pushes)

			if rb.len() != len(tt.want) {
				t.Errorf("len: got %d, want %d", rb.len(), len(tt.want))
			}
			got, dropped := rb.drainAll()
			if string(payloadBytes(got)) != string(tt.want) {
				t.Errorf("drained: got %v, want %v", payloadBytes(got), tt.want)
			}
			if dropped != tt.wantDropped {
				t.Errorf("dropped: got %d, want %d", dropped, tt.wantDropped)
			}
		})
	}
}

func TestRingBufferDrainResetsDropped(t *testing.T) {
	rb := newRingBuffer(3)
	pushN(rb, 2)
	if _, dropped := rb.drainAll(); dropped != 0 {
		t.Fatalf("first drain dropped: got %d, want 0", dropped)
	}

	// Refill past capacity after a drain; order must survive the head wrapping.
	for i := 10; i < 15; i++ {
		rb.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	got, dropped := rb.drainAll()
	if string(payloadBytes(got)) != string([]byte{12, 13, 14}) {
		t.Errorf("drained: got %v, want [12 13 14]", payloadBytes(got))
	}
	if dropped != 2 {
		t.Errorf("dropped: got %d, want 2", dropped)
	}

	got, dropped = rb.drainAll()
	if got != nil || dropped != 0 {
		t.Errorf("second drain: got (%d msgs, %d dropped), want (0, 0)", len(got), dropped)
	}
	if rb.len() != 0 {
		t.Errorf("len after drain: got %d, want 0", rb.len())
	}
}

// recordingClient stands in for a paho client; only the methods the
// publisher uses are implemented.
type recordingClient struct {
	paho.Client

	mu   sync.Mutex
	open bool
	err  error
	sent []bufferedMsg
}

func (c *recordingClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *recordingClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, bufferedMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return doneToken{err: c.err}
}

func (c *recordingClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *recordingClient) published() []bufferedMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bufferedMsg, len(c.sent))
	copy(out, c.sent)
	return out
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func newTestPublisher(c paho.Client, capacity int) *RealPublisher {
	return &RealPublisher{
		client: c,
		topic:  Topic,
		now:    func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) },
		buf:    newRingBuffer(capacity),
	}
}

func relayOn(cycle int) events.RelayChanged {
	return events.RelayChanged{
		Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Task:      "relay_on",
		Energized: true,
		Cycle:     cycle,
	}
}

func TestRealPublisherReplaysBacklogOnConnect(t *testing.T) {
	c := &recordingClient{}
	p := newTestPublisher(c, 2)

	for i := 1; i <= 3; i++ {
		if err := p.Publish(relayOn(i)); err != nil {
			t.Fatalf("Publish while offline: %v", err)
		}
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem while offline: %v", err)
	}
	if len(c.published()) != 0 {
		t.Fatal("nothing should reach the client while offline")
	}
	if p.Buffered() != 2 {
		t.Fatalf("Buffered: got %d, want 2", p.Buffered())
	}

	c.setOpen(true)
	p.onConnect(c)

	sent := c.published()
	if len(sent) != 3 {
		t.Fatalf("sent: got %d messages, want 3", len(sent))
	}

	var relay Payload
	if err := json.Unmarshal(sent[0].payload, &relay); err != nil {
		t.Fatalf("replayed relay payload: %v", err)
	}
	if sent[0].topic != Topic || relay.Relay.Cycle != 3 {
		t.Errorf("first replay: got topic %s cycle %d, want %s cycle 3", sent[0].topic, relay.Relay.Cycle, Topic)
	}

	if sent[1].topic != TopicSystem || sent[1].qos != 1 || !sent[1].retained {
		t.Errorf("second replay: got %+v, want retained qos 1 on %s", sent[1], TopicSystem)
	}

	var reconnected SystemPayload
	if err := json.Unmarshal(sent[2].payload, &reconnected); err != nil {
		t.Fatalf("reconnect payload: %v", err)
	}
	if reconnected.System.Event != "RECONNECTED" || reconnected.System.Reason != "DROPPED_2" {
		t.Errorf("reconnect: got %+v, want RECONNECTED/DROPPED_2", reconnected.System)
	}
	if sent[2].retained {
		t.Error("RECONNECTED should not be retained")
	}

	if p.Buffered() != 0 {
		t.Errorf("Buffered after replay: got %d, want 0", p.Buffered())
	}
}

func TestRealPublisherReconnectWithoutLoss(t *testing.T) {
	c := &recordingClient{open: true}
	p := newTestPublisher(c, 2)

	p.onConnect(c)

	sent := c.published()
	if len(sent) != 1 {
		t.Fatalf("sent: got %d messages, want 1", len(sent))
	}
	var reconnected SystemPayload
	if err := json.Unmarshal(sent[0].payload, &reconnected); err != nil {
		t.Fatalf("reconnect payload: %v", err)
	}
	if reconnected.System.Reason != "" {
		t.Errorf("Reason: got %q, want empty", reconnected.System.Reason)
	}
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &recordingClient{open: true}
	p := newTestPublisher(c, 2)

	if err := p.Publish(relayOn(1)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if p.Buffered() != 0 {
		t.Errorf("Buffered: got %d, want 0", p.Buffered())
	}
	sent := c.published()
	if len(sent) != 1 || sent[0].qos != 0 || sent[0].retained {
		t.Errorf("sent: got %+v, want one qos 0 unretained message", sent)
	}
	if !p.IsConnected() {
		t.Error("IsConnected: got false, want true")
	}
}

func TestRealPublisherReportsBrokerError(t *testing.T) {
	c := &recordingClient{open: true, err: errors.New("not authorized")}
	p := newTestPublisher(c, 2)

	if err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Fatal("expected error from rejected publish")
	}
}
