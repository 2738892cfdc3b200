package dutycycle

import (
	"fmt"
	"sync"

	"github.com/sweeney/relay-cycler/internal/gpio"
)

// Outputs owns the relay and its mirror LED. All access goes through the lock.
type Outputs struct {
	mu    sync.Mutex
	led   gpio.Output
	relay gpio.Output
	level bool
}

// NewOutputs takes ownership of the LED and relay lines.
// level is the level the lines currently hold.
func NewOutputs(led, relay gpio.Output, level bool) *Outputs {
	return &Outputs{led: led, relay: relay, level: level}
}

// With runs fn with exclusive access to both lines and returns its error.
func (o *Outputs) With(fn func(led, relay gpio.Output) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fn(o.led, o.relay)
}

// Drive moves relay and LED to level as a pair. If the LED write fails the
// relay is put back, so the pair never settles unequal.
func (o *Outputs) Drive(level bool) error {
	return o.With(func(led, relay gpio.Output) error {
		if err := gpio.Set(relay, level); err != nil {
			return fmt.Errorf("drive relay: %w", err)
		}
		if err := gpio.Set(led, level); err != nil {
			if rerr := gpio.Set(relay, o.level); rerr != nil {
				return fmt.Errorf("drive led: %w (relay restore: %v)", err, rerr)
			}
			return fmt.Errorf("drive led: %w", err)
		}
		o.level = level
		return nil
	})
}

// Level returns the level last committed by Drive.
func (o *Outputs) Level() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}
