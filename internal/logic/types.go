// Package logic contains the pure sensor-to-decision pipeline for the plant
// watering daemon: calibration, pump-aware soil sampling and alert debounce.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via Millis parameters.
package logic

// Millis is a monotonic millisecond counter since boot. It is 32 bits wide
// and wraps after ~49.7 days, so intervals must be computed with Since,
// which relies on unsigned modular subtraction.
type Millis uint32

// Since returns the milliseconds elapsed from earlier to m. The result is
// correct across a single counter overflow: 0x00000010 - 0xFFFFFFF0 = 0x20.
func (m Millis) Since(earlier Millis) Millis {
	return m - earlier
}

// Label is the qualitative moisture class derived from a percentage.
type Label string

const (
	LabelDry Label = "DRY"
	LabelWet Label = "WET"
	LabelOK  Label = "OK"
)

// Reading is a soil sample in both raw ADC and normalized form.
type Reading struct {
	Raw     int
	Percent int
	Label   Label
	// Frozen is true when the reading was reused because the pump was running.
	Frozen bool
}

// AirSample is a temperature/humidity measurement.
// OK is false when the air sensor could not be read this tick.
type AirSample struct {
	Temperature float64 // °C
	Humidity    float64 // % relative
	OK          bool
}

// AlertDecision is the outcome of one alert evaluation.
type AlertDecision int

const (
	// AlertNone means the soil is not dry enough to alert.
	AlertNone AlertDecision = iota
	// AlertEmit means an alert must be dispatched now.
	AlertEmit
	// AlertCooldown means the soil is dry but an alert was sent recently.
	AlertCooldown
	// AlertPumpRunning means evaluation was skipped because the pump is on.
	AlertPumpRunning
)

func (d AlertDecision) String() string {
	switch d {
	case AlertEmit:
		return "EMIT"
	case AlertCooldown:
		return "COOLDOWN"
	case AlertPumpRunning:
		return "PUMP_RUNNING"
	default:
		return "NONE"
	}
}

// TickResult is everything one tick produced, handed to telemetry.
type TickResult struct {
	Now    Millis
	Air    AirSample
	Soil   Reading
	PumpOn bool
	Alert  AlertDecision
}

// Counts tracks tick and command totals since startup.
type Counts struct {
	Ticks       int
	FrozenTicks int
	SoilErrors  int
	Alerts      int
	PumpOn      int
	PumpOff     int
}
