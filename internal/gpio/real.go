//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives a single line on the GPIO character device.
type RealOutput struct {
	name string
	line *gpiocdev.Line
}

// SetHigh drives the line to 1.
func (o *RealOutput) SetHigh() error {
	if err := o.line.SetValue(1); err != nil {
		return fmt.Errorf("set %s high: %w", o.name, err)
	}
	return nil
}

// SetLow drives the line to 0.
func (o *RealOutput) SetLow() error {
	if err := o.line.SetValue(0); err != nil {
		return fmt.Errorf("set %s low: %w", o.name, err)
	}
	return nil
}

// RealOutputs holds the LED and relay lines requested from one chip.
type RealOutputs struct {
	chip  *gpiocdev.Chip
	LED   *RealOutput
	Relay *RealOutput
}

// OpenRealOutputs requests the LED and relay pins as outputs.
// Both lines start high, the pre-activation default.
func OpenRealOutputs(chipName string, ledPin, relayPin int) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	relayLine, err := chip.RequestLine(relayPin, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("relay-cycler"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", relayPin, err)
	}

	ledLine, err := chip.RequestLine(ledPin, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("relay-cycler"))
	if err != nil {
		relayLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", ledPin, err)
	}

	return &RealOutputs{
		chip:  chip,
		LED:   &RealOutput{name: "led", line: ledLine},
		Relay: &RealOutput{name: "relay", line: relayLine},
	}, nil
}

// Close de-energizes both lines and releases them.
// Lines are reconfigured to input with pull-down (Pi boot default) so the
// relay does not float while the daemon is down.
func (r *RealOutputs) Close() error {
	var errs []error

	for _, o := range []*RealOutput{r.Relay, r.LED} {
		if o == nil || o.line == nil {
			continue
		}
		if err := o.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive %s low: %w", o.name, err))
		}
		if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", o.name, err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", o.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
