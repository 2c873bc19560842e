package sensor

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// Buses opens each I2C bus once so sensors sharing a bus share a handle.
type Buses struct {
	open map[string]i2c.BusCloser
}

// NewBuses creates an empty bus set.
func NewBuses() *Buses {
	return &Buses{open: make(map[string]i2c.BusCloser)}
}

// Get opens the named bus, or the first available one if name is empty.
func (b *Buses) Get(name string) (i2c.Bus, error) {
	if bus, ok := b.open[name]; ok {
		return bus, nil
	}
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("i2c: host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: open bus %q: %w", name, err)
	}
	b.open[name] = bus
	return bus, nil
}

// Close closes every opened bus.
func (b *Buses) Close() error {
	var errs []error
	for name, bus := range b.open {
		if err := bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bus %q: %w", name, err))
		}
		delete(b.open, name)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
