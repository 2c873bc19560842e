package logic

import "time"

// Reference alert settings.
const (
	DefaultAlertRawThreshold = 2000
	DefaultAlertInterval     = 30 * time.Minute
)

// AlertDebouncer gates "soil too dry" alerts to at most one per interval.
// The threshold is in raw ADC space, where a higher value means drier soil.
type AlertDebouncer struct {
	threshold int
	interval  Millis
	last      Millis
	// sent is false until the first alert; before that there is no last
	// timestamp to measure the interval from.
	sent bool
}

// NewAlertDebouncer creates a debouncer. interval is truncated to whole
// milliseconds and must fit in a Millis.
func NewAlertDebouncer(threshold int, interval time.Duration) *AlertDebouncer {
	return &AlertDebouncer{
		threshold: threshold,
		interval:  Millis(interval.Milliseconds()),
	}
}

// Evaluate reports whether a low-moisture alert should be emitted now.
func (a *AlertDebouncer) Evaluate(pumpOn bool, raw int, now Millis) bool {
	return a.Decide(pumpOn, raw, now) == AlertEmit
}

// Decide is Evaluate with the reason for not emitting.
//
// State changes only on AlertEmit. A reading at or below the threshold does
// not reset the cooldown, so soil that briefly moistens and dries out again
// still waits for the original interval to lapse.
func (a *AlertDebouncer) Decide(pumpOn bool, raw int, now Millis) AlertDecision {
	if pumpOn {
		return AlertPumpRunning
	}
	if raw <= a.threshold {
		return AlertNone
	}
	if a.sent && now.Since(a.last) <= a.interval {
		return AlertCooldown
	}
	a.last = now
	a.sent = true
	return AlertEmit
}

// LastAlert returns the timestamp of the last emitted alert, and false if
// none has been emitted yet.
func (a *AlertDebouncer) LastAlert() (Millis, bool) {
	return a.last, a.sent
}
