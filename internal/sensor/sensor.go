// Package sensor reads the soil-moisture ADC and the air temperature/humidity
// sensor. Each transport sits behind a small interface so the run loop can be
// tested with fakes.
package sensor

import "errors"

// SoilReader returns raw soil ADC counts. Higher counts mean drier soil.
type SoilReader interface {
	ReadRaw() (int, error)
	Close() error
}

// AirReader returns temperature in °C and relative humidity in %.
type AirReader interface {
	Read() (temperature, humidity float64, err error)
	Close() error
}

// ErrNoSample is returned when a transport has not produced a value yet.
var ErrNoSample = errors.New("sensor: no sample available")
