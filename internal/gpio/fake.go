package gpio

import "sync"

// FakeOutput is a test double that records every level written to it.
// Safe for concurrent use.
type FakeOutput struct {
	mu sync.Mutex

	// level is the current logical level
	level bool

	// history holds every level written, in order
	history []bool

	// SetError, if set, will be returned by SetHigh and SetLow
	// without changing the level.
	SetError error
}

// NewFakeOutput creates a FakeOutput starting at the given level.
func NewFakeOutput(initial bool) *FakeOutput {
	return &FakeOutput{level: initial}
}

// SetHigh records a high level.
func (f *FakeOutput) SetHigh() error {
	return f.set(true)
}

// SetLow records a low level.
func (f *FakeOutput) SetLow() error {
	return f.set(false)
}

func (f *FakeOutput) set(level bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}
	f.level = level
	f.history = append(f.history, level)
	return nil
}

// Level returns the current level.
func (f *FakeOutput) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// History returns a copy of every level written.
func (f *FakeOutput) History() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]bool, len(f.history))
	copy(out, f.history)
	return out
}

// FailWith makes subsequent writes return err. Pass nil to clear.
func (f *FakeOutput) FailWith(err error) {
	f.mu.Lock()
	f.SetError = err
	f.mu.Unlock()
}

// Reset clears history and sets the level.
func (f *FakeOutput) Reset(level bool) {
	f.mu.Lock()
	f.level = level
	f.history = nil
	f.SetError = nil
	f.mu.Unlock()
}
