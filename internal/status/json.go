package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Pump          string       `json:"pump"`
	Soil          *SoilJSON    `json:"soil,omitempty"`
	Air           *AirJSON     `json:"air,omitempty"`
	LastAlert     string       `json:"last_alert,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SoilJSON is the last stable soil reading.
type SoilJSON struct {
	Raw     int    `json:"raw"`
	Percent int    `json:"pct"`
	Label   string `json:"label"`
	Frozen  bool   `json:"frozen"`
}

// AirJSON is the last air sample.
type AirJSON struct {
	Temperature float64 `json:"temperature_c"`
	Humidity    float64 `json:"humidity_pct"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of counters.
type CountsJSON struct {
	Ticks       int `json:"ticks"`
	FrozenTicks int `json:"frozen_ticks"`
	SoilErrors  int `json:"soil_errors"`
	Alerts      int `json:"alerts"`
	PumpOn      int `json:"pump_on"`
	PumpOff     int `json:"pump_off"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs            int64  `json:"tick_ms"`
	HeartbeatMs       int64  `json:"heartbeat_ms"`
	AlertIntervalMs   int64  `json:"alert_interval_ms"`
	AlertRawThreshold int    `json:"alert_raw_threshold"`
	DryRaw            int    `json:"dry_raw"`
	WetRaw            int    `json:"wet_raw"`
	SoilDriver        string `json:"soil_driver"`
	AirDriver         string `json:"air_driver"`
	Broker            string `json:"broker"`
	HTTPPort          string `json:"http_port"`
}

// PumpLabel renders the pump state.
func (s Snapshot) PumpLabel() string {
	if s.PumpOn {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Pump:          snap.PumpLabel(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Ticks:       snap.Counts.Ticks,
			FrozenTicks: snap.Counts.FrozenTicks,
			SoilErrors:  snap.Counts.SoilErrors,
			Alerts:      snap.Counts.Alerts,
			PumpOn:      snap.Counts.PumpOn,
			PumpOff:     snap.Counts.PumpOff,
		},
		Config: ConfigJSON{
			TickMs:            snap.Config.TickMs,
			HeartbeatMs:       snap.Config.HeartbeatMs,
			AlertIntervalMs:   snap.Config.AlertIntervalMs,
			AlertRawThreshold: snap.Config.AlertRawThreshold,
			DryRaw:            snap.Config.DryRaw,
			WetRaw:            snap.Config.WetRaw,
			SoilDriver:        snap.Config.SoilDriver,
			AirDriver:         snap.Config.AirDriver,
			Broker:            snap.Config.Broker,
			HTTPPort:          snap.Config.HTTPPort,
		},
	}
	if snap.Sampled {
		inner.Soil = &SoilJSON{
			Raw:     snap.Soil.Raw,
			Percent: snap.Soil.Percent,
			Label:   string(snap.Soil.Label),
			Frozen:  snap.Soil.Frozen,
		}
		if snap.Air.OK {
			inner.Air = &AirJSON{Temperature: snap.Air.Temperature, Humidity: snap.Air.Humidity}
		}
	}
	if !snap.LastAlert.IsZero() {
		inner.LastAlert = snap.LastAlert.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
