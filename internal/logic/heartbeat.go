package logic

import "time"

// HeartbeatData is what a due heartbeat reports.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}

// Heartbeat schedules periodic liveness reports on wall-clock time.
type Heartbeat struct {
	interval  time.Duration
	startTime time.Time
	last      time.Time
}

// NewHeartbeat creates a schedule whose first heartbeat falls one interval
// after startTime. An interval <= 0 disables it.
func NewHeartbeat(interval time.Duration, startTime time.Time) *Heartbeat {
	return &Heartbeat{
		interval:  interval,
		startTime: startTime,
		last:      startTime,
	}
}

// Check returns heartbeat data if the interval has elapsed since the last
// heartbeat (or startup). Returns nil if the daemon has no reading yet
// (ready is false), if the interval has not elapsed, or if disabled.
func (h *Heartbeat) Check(now time.Time, ready bool) *HeartbeatData {
	if h.interval <= 0 || !ready {
		return nil
	}
	if now.Sub(h.last) < h.interval {
		return nil
	}

	h.last = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
	}
}
