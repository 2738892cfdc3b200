package dutycycle

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/relay-cycler/internal/clock"
	"github.com/sweeney/relay-cycler/internal/events"
	"github.com/sweeney/relay-cycler/internal/sched"
)

// Spawner schedules future task activations.
type Spawner interface {
	SpawnAfter(task sched.TaskID, prio sched.Priority, delay time.Duration) error
	FireAt(task sched.TaskID) (clock.Tick, bool)
	Reset()
	Now() clock.Tick
}

// Notifier receives transition events. Publish must not block.
type Notifier interface {
	Publish(ev events.Event)
}

// Machine is the two-state duty cycle. It implements sched.Handler.
type Machine struct {
	outputs *Outputs
	spawner Spawner
	notify  Notifier
	cfg     Config
	wallNow func() time.Time

	mu     sync.Mutex
	state  State
	counts Counts
}

// NewMachine creates a machine driving outputs. notify may be nil.
func NewMachine(outputs *Outputs, spawner Spawner, notify Notifier, cfg Config) *Machine {
	return &Machine{
		outputs: outputs,
		spawner: spawner,
		notify:  notify,
		cfg:     cfg,
		wallNow: time.Now,
		state:   StateBoot,
	}
}

// Boot forces both outputs high, drops anything pending and seeds relay_on
// for immediate execution. Calling Boot again restarts the cycle.
func (m *Machine) Boot() {
	m.spawner.Reset()

	m.mu.Lock()
	m.state = StateBoot
	m.counts = Counts{}
	m.mu.Unlock()

	if err := m.outputs.Drive(true); err != nil {
		log.Printf("boot: %v", err)
		m.countDriveError()
	}

	m.spawn(TaskRelayOn, 0)
}

// Dispatch runs the body of task.
func (m *Machine) Dispatch(task sched.TaskID) {
	switch task {
	case TaskRelayOn:
		m.enter(task, true, TaskRelayOff, m.cfg.OnDuration)
	case TaskRelayOff:
		m.enter(task, false, TaskRelayOn, m.cfg.OffDuration)
	default:
		log.Printf("dispatch: unknown task %d", task)
	}
}

// enter drives the pair to level under the resource lock, then schedules
// next after delay whether or not the hardware write succeeded.
// State and the published level follow what the outputs actually hold, so a
// failed write leaves the machine reporting the previous level.
func (m *Machine) enter(task sched.TaskID, level bool, next sched.TaskID, delay time.Duration) {
	now := m.spawner.Now()

	driveErr := m.outputs.Drive(level)
	if driveErr != nil {
		log.Printf("%s: %v", TaskName(task), driveErr)
		m.countDriveError()
	}
	actual := m.outputs.Level()

	m.mu.Lock()
	m.state = stateFor(actual)
	if level {
		m.counts.Energized++
	} else {
		m.counts.Deenergized++
	}
	cycle := m.counts.Energized
	m.mu.Unlock()

	ev := events.RelayChanged{
		Timestamp: m.wallNow(),
		Tick:      uint64(now),
		Task:      TaskName(task),
		Energized: actual,
		Cycle:     cycle,
	}
	if driveErr != nil {
		ev.Err = driveErr.Error()
	}
	if m.spawn(next, delay) {
		ev.Next = TaskName(next)
		if at, ok := m.spawner.FireAt(next); ok {
			ev.NextTick = uint64(at)
		}
	}
	m.publish(ev)
}

func stateFor(energized bool) State {
	if energized {
		return StateEnergized
	}
	return StateDeenergized
}

// spawn schedules task and reports whether it was accepted.
// A refused spawn is not retried: the activation is lost and the cycle stops
// in its current state. The loss is logged and counted so it stays visible.
func (m *Machine) spawn(task sched.TaskID, delay time.Duration) bool {
	err := m.spawner.SpawnAfter(task, taskPriority, delay)
	if err == nil {
		return true
	}

	log.Printf("schedule %s dropped: %v", TaskName(task), err)
	m.mu.Lock()
	m.counts.Dropped++
	m.mu.Unlock()

	m.publish(events.ScheduleDropped{
		Timestamp: m.wallNow(),
		Tick:      uint64(m.spawner.Now()),
		Task:      TaskName(task),
		Reason:    err.Error(),
	})
	return false
}

func (m *Machine) countDriveError() {
	m.mu.Lock()
	m.counts.DriveErrors++
	m.mu.Unlock()
}

func (m *Machine) publish(ev events.Event) {
	if m.notify != nil {
		m.notify.Publish(ev)
	}
}

// State returns the current duty-cycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Counts returns a copy of the activity counters.
func (m *Machine) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts
}

// Config returns the cycle timings.
func (m *Machine) Config() Config {
	return m.cfg
}

// Energized returns the level last committed to the relay and LED pair.
func (m *Machine) Energized() bool {
	return m.outputs.Level()
}
