package logic

import "time"

// Config holds the immutable thresholds of the pipeline.
type Config struct {
	Calibration       Calibration
	AlertRawThreshold int
	AlertInterval     time.Duration
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Calibration:       DefaultCalibration(),
		AlertRawThreshold: DefaultAlertRawThreshold,
		AlertInterval:     DefaultAlertInterval,
	}
}

// Controller owns all mutable pipeline state: pump state, the last stable
// soil reading and the last alert timestamp.
//
// It is not safe for concurrent use. Callers serialize HandleCommand and
// Tick on one goroutine; a command applied between two ticks is visible to
// the next tick in full, and a tick never observes a pump change part-way.
type Controller struct {
	cal     Calibration
	sampler *Sampler
	alerts  *AlertDebouncer
	pumpOn  bool
	counts  Counts
}

// NewController creates a Controller with the pump off.
func NewController(cfg Config) *Controller {
	return &Controller{
		cal:     cfg.Calibration,
		sampler: NewSampler(cfg.Calibration),
		alerts:  NewAlertDebouncer(cfg.AlertRawThreshold, cfg.AlertInterval),
	}
}

// HandleCommand applies a remote pump command: 1 turns the pump on, any
// other value turns it off. It returns the new pump state, which the caller
// must drive onto the actuator before the next tick.
func (c *Controller) HandleCommand(value int) bool {
	c.pumpOn = value == 1
	if c.pumpOn {
		c.counts.PumpOn++
	} else {
		c.counts.PumpOff++
	}
	return c.pumpOn
}

// PumpOn reports the current pump state.
func (c *Controller) PumpOn() bool {
	return c.pumpOn
}

// Tick runs one sampling cycle: soil sample (fresh or frozen), calibration,
// then alert evaluation. If the soil reader fails the tick is abandoned
// before alert evaluation and the error returned.
func (c *Controller) Tick(now Millis, soil SoilReadFunc, air AirSample) (TickResult, error) {
	c.counts.Ticks++

	reading, err := c.sampler.Sample(c.pumpOn, soil)
	if err != nil {
		c.counts.SoilErrors++
		return TickResult{}, err
	}
	if reading.Frozen {
		c.counts.FrozenTicks++
	}

	decision := c.alerts.Decide(c.pumpOn, reading.Raw, now)
	if decision == AlertEmit {
		c.counts.Alerts++
	}

	return TickResult{
		Now:    now,
		Air:    air,
		Soil:   reading,
		PumpOn: c.pumpOn,
		Alert:  decision,
	}, nil
}

// LastReading returns the last stable soil reading.
func (c *Controller) LastReading() Reading {
	return c.sampler.Last()
}

// LastAlert returns the last alert timestamp and whether one was ever sent.
func (c *Controller) LastAlert() (Millis, bool) {
	return c.alerts.LastAlert()
}

// Calibration returns the calibration in use.
func (c *Controller) Calibration() Calibration {
	return c.cal
}

// CountsSnapshot returns a copy of the counters.
func (c *Controller) CountsSnapshot() Counts {
	return c.counts
}
