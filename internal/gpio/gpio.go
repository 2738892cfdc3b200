// Package gpio provides binary GPIO outputs with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output is a binary output line.
type Output interface {
	// SetHigh drives the line active.
	SetHigh() error

	// SetLow drives the line inactive.
	SetLow() error
}

// Default chip and pin definitions (BCM numbering).
const (
	DefaultChip     = "gpiochip0"
	DefaultPinRelay = 17
	DefaultPinLED   = 27
)

// Set drives o to level.
func Set(o Output, level bool) error {
	if level {
		return o.SetHigh()
	}
	return o.SetLow()
}
