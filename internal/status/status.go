// Package status provides a thread-safe status tracker for the plant-buddy daemon.
// It is read by the HTTP handlers and by heartbeat publishing.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/plant-buddy/internal/logic"
)

// NetworkInfo contains network state, as reported by the host environment.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs            int64
	HeartbeatMs       int64
	AlertIntervalMs   int64
	AlertRawThreshold int
	DryRaw            int
	WetRaw            int
	SoilDriver        string
	AirDriver         string
	Broker            string
	HTTPPort          string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Soil          logic.Reading
	Air           logic.AirSample
	PumpOn        bool
	Sampled       bool      // at least one tick produced a reading
	LastAlert     time.Time // zero if no alert has been sent
	Counts        logic.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the outcome of a successful tick.
func (t *Tracker) Update(res logic.TickResult, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Soil = res.Soil
	t.snap.Air = res.Air
	t.snap.PumpOn = res.PumpOn
	t.snap.Sampled = true
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetCounts replaces the counters without touching readings, for ticks
// that failed and for pump commands.
func (t *Tracker) SetCounts(counts logic.Counts) {
	t.mu.Lock()
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetPump records a pump state change from a remote command.
func (t *Tracker) SetPump(on bool) {
	t.mu.Lock()
	t.snap.PumpOn = on
	t.mu.Unlock()
}

// SetLastAlert records the wall-clock time an alert was dispatched.
func (t *Tracker) SetLastAlert(at time.Time) {
	t.mu.Lock()
	t.snap.LastAlert = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
