package sensor

import "errors"

// FakeSoilReader is a test double that returns scripted raw values.
type FakeSoilReader struct {
	// Samples contains scripted raw values. Each call to ReadRaw() consumes
	// the next one; once exhausted the last value repeats.
	Samples []int

	// Calls counts ReadRaw invocations.
	Calls int

	index int

	// ReadError, if set, will be returned by ReadRaw()
	ReadError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeSoilReader creates a FakeSoilReader with the given samples.
func NewFakeSoilReader(samples ...int) *FakeSoilReader {
	return &FakeSoilReader{Samples: samples}
}

// ReadRaw returns the next scripted sample.
func (f *FakeSoilReader) ReadRaw() (int, error) {
	f.Calls++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Close marks the reader as closed.
func (f *FakeSoilReader) Close() error {
	f.Closed = true
	return nil
}

// FakeAirReader is a test double returning a fixed air sample.
type FakeAirReader struct {
	Temperature float64
	Humidity    float64
	ReadError   error
	Closed      bool
}

// NewFakeAirReader creates a FakeAirReader.
func NewFakeAirReader(temperature, humidity float64) *FakeAirReader {
	return &FakeAirReader{Temperature: temperature, Humidity: humidity}
}

// Read returns the configured sample.
func (f *FakeAirReader) Read() (float64, float64, error) {
	if f.ReadError != nil {
		return 0, 0, f.ReadError
	}
	return f.Temperature, f.Humidity, nil
}

// Close marks the reader as closed.
func (f *FakeAirReader) Close() error {
	f.Closed = true
	return nil
}
