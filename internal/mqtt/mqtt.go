// Package mqtt publishes plant telemetry and alerts to MQTT and receives
// remote pump commands, with an abstraction for testing.
package mqtt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Alert event identity, as shown to the user by the notification app.
const (
	AlertLowMoisture        = "low_moisture"
	AlertLowMoistureMessage = "Soil moisture is low. Open the app to water your plant."
)

// Topics holds the MQTT topics under one prefix.
type Topics struct {
	Telemetry string // per-tick readings, QoS 0
	Alerts    string // alert events, QoS 1
	System    string // lifecycle events, retained
	PumpSet   string // inbound pump commands
}

// NewTopics derives the topic set from a prefix such as "garden/plant-buddy".
func NewTopics(prefix string) Topics {
	return Topics{
		Telemetry: prefix + "/telemetry",
		Alerts:    prefix + "/alerts",
		System:    prefix + "/system",
		PumpSet:   prefix + "/pump/set",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishTelemetry sends one tick's readings.
	// Returns error if publishing fails (should not crash the process).
	PublishTelemetry(t Telemetry) error

	// PublishAlert sends an alert event.
	PublishAlert(a Alert) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Telemetry is one tick's readings.
type Telemetry struct {
	Timestamp   time.Time
	Temperature float64
	Humidity    float64
	AirOK       bool // false when the air sensor failed this tick
	SoilPercent int
	SoilRaw     int
	SoilLabel   string
	PumpOn      bool
	Frozen      bool
}

// Alert is an event for the user's notification channel.
type Alert struct {
	ID          string
	Timestamp   time.Time
	Event       string
	Message     string
	SoilRaw     int
	SoilPercent int
}

// NewLowMoistureAlert builds the "soil too dry" alert with a fresh id.
func NewLowMoistureAlert(ts time.Time, raw, percent int) Alert {
	return Alert{
		ID:          uuid.NewString(),
		Timestamp:   ts,
		Event:       AlertLowMoisture,
		Message:     AlertLowMoistureMessage,
		SoilRaw:     raw,
		SoilPercent: percent,
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// TelemetryPayload is the MQTT message payload for telemetry.
type TelemetryPayload struct {
	Telemetry TelemetryInner `json:"telemetry"`
}

// TelemetryInner contains the readings.
type TelemetryInner struct {
	Timestamp   string   `json:"timestamp"`
	Temperature *float64 `json:"temperature_c,omitempty"`
	Humidity    *float64 `json:"humidity_pct,omitempty"`
	SoilPercent int      `json:"soil_pct"`
	SoilRaw     int      `json:"soil_raw"`
	SoilLabel   string   `json:"soil_label"`
	Pump        string   `json:"pump"`
	Frozen      bool     `json:"frozen"`
}

// FormatTelemetry creates the JSON payload for a telemetry message.
func FormatTelemetry(t Telemetry) ([]byte, error) {
	inner := TelemetryInner{
		Timestamp:   t.Timestamp.UTC().Format(time.RFC3339),
		SoilPercent: t.SoilPercent,
		SoilRaw:     t.SoilRaw,
		SoilLabel:   t.SoilLabel,
		Pump:        onOff(t.PumpOn),
		Frozen:      t.Frozen,
	}
	if t.AirOK {
		temp, hum := t.Temperature, t.Humidity
		inner.Temperature = &temp
		inner.Humidity = &hum
	}
	return json.Marshal(TelemetryPayload{Telemetry: inner})
}

// AlertPayload is the MQTT message payload for alerts.
type AlertPayload struct {
	Alert AlertInner `json:"alert"`
}

// AlertInner contains the alert details.
type AlertInner struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	Event       string `json:"event"`
	Message     string `json:"message"`
	SoilRaw     int    `json:"soil_raw"`
	SoilPercent int    `json:"soil_pct"`
}

// FormatAlert creates the JSON payload for an alert.
func FormatAlert(a Alert) ([]byte, error) {
	return json.Marshal(AlertPayload{Alert: AlertInner{
		ID:          a.ID,
		Timestamp:   a.Timestamp.UTC().Format(time.RFC3339),
		Event:       a.Event,
		Message:     a.Message,
		SoilRaw:     a.SoilRaw,
		SoilPercent: a.SoilPercent,
	}})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ParseCommand decodes a pump command payload: an ASCII integer ("1") or a
// JSON object ({"value":1}). Like atoi, a leading integer followed by other
// text ("1.0", "1 on") yields that integer. A payload that is none of these
// yields 0, which the pump treats as "off"; ok reports whether the payload
// was understood.
func ParseCommand(payload []byte) (value int, ok bool) {
	p := bytes.TrimSpace(payload)

	if v, err := strconv.Atoi(string(p)); err == nil {
		return v, true
	}

	var obj struct {
		Value *int `json:"value"`
	}
	if err := json.Unmarshal(p, &obj); err == nil && obj.Value != nil {
		return *obj.Value, true
	}

	if v, err := strconv.Atoi(string(leadingInt(p))); err == nil {
		return v, true
	}
	return 0, false
}

// leadingInt returns the optional sign and digits that start p.
func leadingInt(p []byte) []byte {
	n := 0
	if n < len(p) && (p[n] == '+' || p[n] == '-') {
		n++
	}
	for n < len(p) && p[n] >= '0' && p[n] <= '9' {
		n++
	}
	return p[:n]
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
