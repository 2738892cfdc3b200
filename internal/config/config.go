// Package config loads daemon settings: built-in defaults, then an optional
// TOML file, then command-line flags that were set explicitly.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sweeney/relay-cycler/internal/dutycycle"
	"github.com/sweeney/relay-cycler/internal/gpio"
	"github.com/sweeney/relay-cycler/internal/sched"
)

// Duration is a time.Duration that decodes from TOML strings like "590s".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds every daemon setting.
type Config struct {
	Chip          string   `toml:"chip"`
	LEDPin        int      `toml:"led_pin"`
	RelayPin      int      `toml:"relay_pin"`
	On            Duration `toml:"on"`
	Off           Duration `toml:"off"`
	QueueCapacity int      `toml:"queue_capacity"`
	Broker        string   `toml:"broker"`
	Heartbeat     Duration `toml:"heartbeat"`
}

// Default returns the built-in configuration: 10 s on, 590 s off.
func Default() Config {
	return Config{
		Chip:          gpio.DefaultChip,
		LEDPin:        gpio.DefaultPinLED,
		RelayPin:      gpio.DefaultPinRelay,
		On:            Duration(dutycycle.DefaultOnDuration),
		Off:           Duration(dutycycle.DefaultOffDuration),
		QueueCapacity: sched.DefaultCapacity,
		Broker:        "",
		Heartbeat:     Duration(15 * time.Minute),
	}
}

// DutyCycle returns the cycle timings.
func (c Config) DutyCycle() dutycycle.Config {
	return dutycycle.Config{
		OnDuration:  time.Duration(c.On),
		OffDuration: time.Duration(c.Off),
	}
}

// Validate reports the first setting that cannot run.
func (c Config) Validate() error {
	if c.Chip == "" {
		return errors.New("chip must be set")
	}
	if c.LEDPin < 0 || c.RelayPin < 0 {
		return errors.New("pins must be non-negative")
	}
	if c.LEDPin == c.RelayPin {
		return fmt.Errorf("led and relay share pin %d", c.LEDPin)
	}
	if c.On <= 0 || c.Off <= 0 {
		return errors.New("on and off durations must be positive")
	}
	if c.QueueCapacity < 1 {
		return errors.New("queue capacity must be at least 1")
	}
	if c.Heartbeat < 0 {
		return errors.New("heartbeat must not be negative")
	}
	return nil
}

// LoadFile overlays settings from a TOML file onto c.
// Keys missing from the file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// flagValues receives raw flag values before precedence is applied.
type flagValues struct {
	path      string
	chip      string
	ledPin    int
	relayPin  int
	on        time.Duration
	off       time.Duration
	capacity  int
	broker    string
	heartbeat time.Duration
	print     bool
}

// Options is the parsed command line.
type Options struct {
	Config      Config
	PrintConfig bool
}

// Parse reads args (without the program name) and returns the effective config.
// Precedence: defaults < -config file < flags given on the command line.
func Parse(name string, args []string) (Options, error) {
	def := Default()
	var v flagValues

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&v.path, "config", "", "TOML config file (optional)")
	fs.StringVar(&v.chip, "chip", def.Chip, "GPIO chip name")
	fs.IntVar(&v.ledPin, "pin-led", def.LEDPin, "BCM pin number for the status LED")
	fs.IntVar(&v.relayPin, "pin-relay", def.RelayPin, "BCM pin number for the relay")
	fs.DurationVar(&v.on, "on", time.Duration(def.On), "Energized interval")
	fs.DurationVar(&v.off, "off", time.Duration(def.Off), "De-energized interval")
	fs.IntVar(&v.capacity, "queue", def.QueueCapacity, "Scheduler queue capacity")
	fs.StringVar(&v.broker, "broker", def.Broker, "MQTT broker for diagnostics (empty to disable)")
	fs.DurationVar(&v.heartbeat, "heartbeat", time.Duration(def.Heartbeat), "Heartbeat interval (0 to disable)")
	fs.BoolVar(&v.print, "print-config", false, "Print effective config and exit")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	cfg := def
	if v.path != "" {
		if err := cfg.LoadFile(v.path); err != nil {
			return Options{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chip":
			cfg.Chip = v.chip
		case "pin-led":
			cfg.LEDPin = v.ledPin
		case "pin-relay":
			cfg.RelayPin = v.relayPin
		case "on":
			cfg.On = Duration(v.on)
		case "off":
			cfg.Off = Duration(v.off)
		case "queue":
			cfg.QueueCapacity = v.capacity
		case "broker":
			cfg.Broker = v.broker
		case "heartbeat":
			cfg.Heartbeat = Duration(v.heartbeat)
		}
	})

	if err := cfg.Validate(); err != nil {
		return Options{}, fmt.Errorf("invalid config: %w", err)
	}
	return Options{Config: cfg, PrintConfig: v.print}, nil
}
