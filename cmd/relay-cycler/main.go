// Command relay-cycler drives a relay and its mirror LED through a fixed duty
// cycle on a cooperative timer-driven scheduler, publishing diagnostics to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/relay-cycler/internal/clock"
	"github.com/sweeney/relay-cycler/internal/config"
	"github.com/sweeney/relay-cycler/internal/dutycycle"
	"github.com/sweeney/relay-cycler/internal/events"
	"github.com/sweeney/relay-cycler/internal/gpio"
	"github.com/sweeney/relay-cycler/internal/mqtt"
	"github.com/sweeney/relay-cycler/internal/sched"
	"github.com/sweeney/relay-cycler/internal/status"
)

func main() {
	opts, err := config.Parse(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if opts.PrintConfig {
		data, err := opts.Config.Encode()
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		fmt.Print(string(data))
		return
	}

	if err := run(opts.Config); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config) error {
	log.Printf("Starting up...")

	outputs, err := gpio.OpenRealOutputs(cfg.Chip, cfg.LEDPin, cfg.RelayPin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := outputs.Close(); err != nil {
			log.Printf("gpio close: %v", err)
		}
	}()

	exec := sched.NewExecutive(clock.NewMonotonic(), sched.NewQueue(cfg.QueueCapacity))

	bus := events.New()
	defer bus.Close()

	machine := dutycycle.NewMachine(
		dutycycle.NewOutputs(outputs.LED, outputs.Relay, true),
		exec, bus, cfg.DutyCycle(),
	)

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.Broker)
		defer p.Close()
		publisher, mqttStatus = p, p
	} else {
		log.Printf("mqtt diagnostics disabled (no broker)")
	}

	var heartbeat <-chan time.Time
	if hb := time.Duration(cfg.Heartbeat); hb > 0 {
		ticker := time.NewTicker(hb)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	log.Printf("started: chip=%s relay=%d led=%d on=%v off=%v queue=%d broker=%q",
		cfg.Chip, cfg.RelayPin, cfg.LEDPin, time.Duration(cfg.On), time.Duration(cfg.Off), cfg.QueueCapacity, cfg.Broker)

	return runLoop(loopDeps{
		exec:       exec,
		machine:    machine,
		bus:        bus,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		now:        time.Now,
	}, heartbeat, sigCh)
}

// loopDeps bundles what runLoop drives. publisher and mqttStatus may be nil.
type loopDeps struct {
	exec       *sched.Executive
	machine    *dutycycle.Machine
	bus        *events.Bus
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	now        func() time.Time
}

// runLoop boots the duty cycle, runs the executive until a stop signal
// arrives, and emits lifecycle diagnostics. SIGUSR1 logs a status dump. The executive runs on its own goroutine;
// this goroutine only handles signals and heartbeats.
func runLoop(d loopDeps, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	unsub := d.bus.Subscribe(func(e events.RelayChanged) {
		log.Printf("event: %s energized=%v cycle=%d next=%s", e.Task, e.Energized, e.Cycle, e.Next)
		refresh(d)
		publish(d.publisher, e)
	})
	defer unsub()

	unsubDropped := d.bus.Subscribe(func(e events.ScheduleDropped) {
		log.Printf("event: schedule %s dropped, cycle halted: %s", e.Task, e.Reason)
		refresh(d)
		publish(d.publisher, e)
	})
	defer unsubDropped()

	d.machine.Boot()
	refresh(d)
	publishSystem(d, "STARTUP", "", true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.exec.Run(ctx, d.machine) }()

	for {
		select {
		case s := <-sig:
			if s == syscall.SIGUSR1 {
				refresh(d)
				log.Printf("status:\n%s", status.FormatJSON(d.tracker.Snapshot()))
				continue
			}
			log.Printf("received %v, shutting down", s)
			cancel()
			err := <-done
			publishSystem(d, "SHUTDOWN", signalName(s), true)
			return err

		case <-heartbeat:
			refresh(d)
			snap := d.tracker.Snapshot()
			log.Printf("heartbeat: state=%s on=%d off=%d dropped=%d stalled=%v mqtt_buffered=%d",
				snap.State, snap.Counts.Energized, snap.Counts.Deenergized, snap.Counts.Dropped, snap.Stalled(), snap.MQTTBuffered)
			publishSystem(d, "HEARTBEAT", "", false)

		case err := <-done:
			cancel()
			return err
		}
	}
}

// refresh copies machine and queue state into the tracker.
func refresh(d loopDeps) {
	now := d.exec.Now()

	var next *status.Next
	if a, ok := d.exec.Queue().Next(); ok {
		next = &status.Next{
			Task: dutycycle.TaskName(a.Task),
			Tick: uint64(a.FireAt),
			In:   clock.Until(a.FireAt, now),
		}
	}
	d.tracker.Update(d.machine.State(), d.machine.Energized(), d.machine.Counts(), uint64(now), next)
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		d.tracker.SetMQTTBuffered(d.mqttStatus.Buffered())
	}
}

func publish(p mqtt.Publisher, ev events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ev); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
}

func publishSystem(d loopDeps, event, reason string, retained bool) {
	if d.publisher == nil {
		return
	}
	snap := d.tracker.Snapshot()
	se := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(se); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	} else {
		log.Printf("published %s event", event)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGUSR1:
		return "SIGUSR1"
	default:
		return "UNKNOWN"
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Chip:          cfg.Chip,
		LEDPin:        cfg.LEDPin,
		RelayPin:      cfg.RelayPin,
		OnMs:          time.Duration(cfg.On).Milliseconds(),
		OffMs:         time.Duration(cfg.Off).Milliseconds(),
		QueueCapacity: cfg.QueueCapacity,
		HeartbeatMs:   time.Duration(cfg.Heartbeat).Milliseconds(),
		Broker:        cfg.Broker,
	}
}
