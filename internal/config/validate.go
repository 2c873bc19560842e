package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// maxRaw bounds calibration endpoints and thresholds. Every supported ADC
// reports at most 16 bits.
const maxRaw = 65535

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return invalid("log_level %q: %v", cfg.LogLevel, err)
	}
	if cfg.Tick <= 0 {
		return invalid("tick must be positive, got %v", cfg.Tick)
	}
	if cfg.Heartbeat < 0 {
		return invalid("heartbeat must not be negative, got %v", cfg.Heartbeat)
	}
	if cfg.MQTT.Broker == "" {
		return invalid("mqtt.broker is required")
	}
	if cfg.MQTT.BufferSize < 0 {
		return invalid("mqtt.buffer_size must not be negative, got %d", cfg.MQTT.BufferSize)
	}

	// ---- calibration ----

	cal := cfg.Calibration
	if !inRawRange(cal.DryRaw) || !inRawRange(cal.WetRaw) {
		return invalid("calibration endpoints must be within [0, %d], got dry=%d wet=%d", maxRaw, cal.DryRaw, cal.WetRaw)
	}
	if cal.DryRaw == cal.WetRaw {
		return invalid("calibration dry_raw and wet_raw must differ, both are %d", cal.DryRaw)
	}
	if cal.DryPercent < 0 || cal.WetPercent > 100 || cal.DryPercent >= cal.WetPercent {
		return invalid("calibration thresholds need 0 <= dry_percent < wet_percent <= 100, got %d and %d", cal.DryPercent, cal.WetPercent)
	}

	// ---- alert ----

	if !inRawRange(cfg.Alert.RawThreshold) {
		return invalid("alert.raw_threshold must be within [0, %d], got %d", maxRaw, cfg.Alert.RawThreshold)
	}
	// The alert clock is a 32-bit millisecond counter; an interval at or
	// beyond half its range can no longer be told apart from a wrap.
	if cfg.Alert.Interval < time.Millisecond || cfg.Alert.Interval.Milliseconds() >= math.MaxInt32 {
		return invalid("alert.interval must be between 1ms and %v, got %v", time.Duration(math.MaxInt32-1)*time.Millisecond, cfg.Alert.Interval)
	}

	// ---- hardware ----

	if cfg.Pump.Pin < 0 {
		return invalid("pump.pin must not be negative, got %d", cfg.Pump.Pin)
	}

	switch cfg.Soil.Driver {
	case SoilADS1115:
		if cfg.Soil.ADS1115.Channel < 0 || cfg.Soil.ADS1115.Channel > 3 {
			return invalid("soil.ads1115.channel must be 0-3, got %d", cfg.Soil.ADS1115.Channel)
		}
	case SoilSerial:
		if cfg.Soil.Serial.Port == "" {
			return invalid("soil.serial.port is required")
		}
	case SoilModbus:
		if cfg.Soil.Modbus.Endpoint == "" {
			return invalid("soil.modbus.endpoint is required")
		}
		if cfg.Soil.Modbus.SlaveID == 0 || cfg.Soil.Modbus.SlaveID > 247 {
			return invalid("soil.modbus.slave_id must be 1-247, got %d", cfg.Soil.Modbus.SlaveID)
		}
	default:
		return invalid("soil.driver %q is not one of %s, %s, %s", cfg.Soil.Driver, SoilADS1115, SoilSerial, SoilModbus)
	}

	switch cfg.Air.Driver {
	case AirAHT20, AirNone:
	default:
		return invalid("air.driver %q is not one of %s, %s", cfg.Air.Driver, AirAHT20, AirNone)
	}

	return nil
}

func inRawRange(v int) bool {
	return v >= 0 && v <= maxRaw
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
