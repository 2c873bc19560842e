// Package gpio drives the water pump relay with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Pump switches the water pump.
type Pump interface {
	// Set drives the pump line: true = pump running.
	Set(on bool) error

	// Close switches the pump off and releases GPIO resources.
	Close() error
}

// Default pump line (BCM numbering).
const (
	DefaultChip    = "gpiochip0"
	DefaultPinPump = 26
)
