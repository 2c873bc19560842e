package gpio

// FakePump is a test double that records pump commands.
type FakePump struct {
	// On is the current line state.
	On bool

	// History contains every value passed to Set, in order.
	History []bool

	// SetError, if set, will be returned by Set() and the state left unchanged.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePump creates a FakePump with the pump off.
func NewFakePump() *FakePump {
	return &FakePump{}
}

// Set records the command.
func (f *FakePump) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	f.History = append(f.History, on)
	return nil
}

// Close switches the fake pump off and marks it closed.
func (f *FakePump) Close() error {
	f.On = false
	f.Closed = true
	return nil
}

// Reset clears recorded commands.
func (f *FakePump) Reset() {
	f.On = false
	f.History = nil
	f.SetError = nil
	f.Closed = false
}
