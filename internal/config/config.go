// Package config loads the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/plant-buddy/internal/logic"
)

// DefaultPath is where the daemon looks for its configuration file.
const DefaultPath = "/etc/plant-buddy.yaml"

// Soil sensor drivers.
const (
	SoilADS1115 = "ads1115"
	SoilSerial  = "serial"
	SoilModbus  = "modbus"
)

// Air sensor drivers.
const (
	AirAHT20 = "aht20"
	AirNone  = "none"
)

// Config represents the daemon configuration.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Tick        time.Duration     `yaml:"tick"`
	Heartbeat   time.Duration     `yaml:"heartbeat"`
	HTTPAddr    string            `yaml:"http"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Alert       AlertConfig       `yaml:"alert"`
	Pump        PumpConfig        `yaml:"pump"`
	Soil        SoilConfig        `yaml:"soil"`
	Air         AirConfig         `yaml:"air"`
}

// MQTTConfig contains broker and topic settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	BufferSize  int    `yaml:"buffer_size"` // telemetry kept while disconnected
}

// CalibrationConfig contains the soil probe calibration.
type CalibrationConfig struct {
	DryRaw     int `yaml:"dry_raw"`
	WetRaw     int `yaml:"wet_raw"`
	DryPercent int `yaml:"dry_percent"`
	WetPercent int `yaml:"wet_percent"`
}

// AlertConfig contains the low-moisture alert settings.
type AlertConfig struct {
	RawThreshold int           `yaml:"raw_threshold"`
	Interval     time.Duration `yaml:"interval"`
}

// PumpConfig contains the pump GPIO line.
type PumpConfig struct {
	Chip string `yaml:"chip"`
	Pin  int    `yaml:"pin"` // BCM numbering
}

// SoilConfig selects and configures the soil ADC transport.
type SoilConfig struct {
	Driver  string        `yaml:"driver"`
	ADS1115 ADS1115Config `yaml:"ads1115"`
	Serial  SerialConfig  `yaml:"serial"`
	Modbus  ModbusConfig  `yaml:"modbus"`
}

// ADS1115Config addresses an ADS1115 ADC on an I2C bus.
type ADS1115Config struct {
	Bus     string `yaml:"bus"` // empty selects the first bus
	Addr    uint16 `yaml:"addr"`
	Channel int    `yaml:"channel"`
}

// SerialConfig addresses a microcontroller that prints raw ADC lines.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ModbusConfig addresses a Modbus soil probe.
type ModbusConfig struct {
	// Endpoint is "tcp://host:port" or a serial device path for RTU.
	Endpoint string        `yaml:"endpoint"`
	SlaveID  byte          `yaml:"slave_id"`
	Register uint16        `yaml:"register"`
	BaudRate int           `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"`
}

// AirConfig selects and configures the temperature/humidity sensor.
type AirConfig struct {
	Driver string `yaml:"driver"`
	Bus    string `yaml:"bus"`
	Addr   uint16 `yaml:"addr"`
}

// Default returns the reference configuration.
func Default() *Config {
	cal := logic.DefaultCalibration()
	return &Config{
		LogLevel:  "info",
		Tick:      2 * time.Second,
		Heartbeat: 15 * time.Minute,
		HTTPAddr:  ":80",
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "plant-buddy",
			TopicPrefix: "garden/plant-buddy",
			BufferSize:  100,
		},
		Calibration: CalibrationConfig{
			DryRaw:     cal.DryRaw,
			WetRaw:     cal.WetRaw,
			DryPercent: cal.DryPercent,
			WetPercent: cal.WetPercent,
		},
		Alert: AlertConfig{
			RawThreshold: logic.DefaultAlertRawThreshold,
			Interval:     logic.DefaultAlertInterval,
		},
		Pump: PumpConfig{
			Chip: "gpiochip0",
			Pin:  26,
		},
		Soil: SoilConfig{
			Driver: SoilADS1115,
			ADS1115: ADS1115Config{
				Addr: 0x48,
			},
			Serial: SerialConfig{
				Port:     "/dev/ttyACM0",
				BaudRate: 115200,
			},
			Modbus: ModbusConfig{
				Endpoint: "/dev/ttyUSB0",
				SlaveID:  1,
				BaudRate: 9600,
				Timeout:  time.Second,
			},
		},
		Air: AirConfig{
			Driver: AirAHT20,
			Addr:   0x38,
		},
	}
}

// Load reads configuration from a YAML file over the defaults. A missing
// file yields the defaults. The result is validated.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Logic converts the configuration into pipeline thresholds.
func (c *Config) Logic() logic.Config {
	return logic.Config{
		Calibration: logic.Calibration{
			DryRaw:     c.Calibration.DryRaw,
			WetRaw:     c.Calibration.WetRaw,
			DryPercent: c.Calibration.DryPercent,
			WetPercent: c.Calibration.WetPercent,
		},
		AlertRawThreshold: c.Alert.RawThreshold,
		AlertInterval:     c.Alert.Interval,
	}
}

// ensureDefaults fills fields whose zero value is never meaningful.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Tick == 0 {
		c.Tick = def.Tick
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = def.MQTT.BufferSize
	}
	if c.Alert.Interval == 0 {
		c.Alert.Interval = def.Alert.Interval
	}
	if c.Pump.Chip == "" {
		c.Pump.Chip = def.Pump.Chip
	}
	if c.Soil.Driver == "" {
		c.Soil.Driver = def.Soil.Driver
	}
	if c.Soil.Serial.BaudRate == 0 {
		c.Soil.Serial.BaudRate = def.Soil.Serial.BaudRate
	}
	if c.Soil.Modbus.BaudRate == 0 {
		c.Soil.Modbus.BaudRate = def.Soil.Modbus.BaudRate
	}
	if c.Soil.Modbus.Timeout == 0 {
		c.Soil.Modbus.Timeout = def.Soil.Modbus.Timeout
	}
	if c.Air.Driver == "" {
		c.Air.Driver = def.Air.Driver
	}
}
