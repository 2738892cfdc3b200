//go:build !linux

package gpio

import "errors"

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct {
	LED   *RealOutput
	Relay *RealOutput
}

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// OpenRealOutputs returns an error on non-Linux platforms.
func OpenRealOutputs(chipName string, ledPin, relayPin int) (*RealOutputs, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetHigh is not implemented on non-Linux platforms.
func (o *RealOutput) SetHigh() error {
	return errors.New("gpio: not supported")
}

// SetLow is not implemented on non-Linux platforms.
func (o *RealOutput) SetLow() error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealOutputs) Close() error {
	return nil
}
