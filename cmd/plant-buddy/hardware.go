package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/sweeney/plant-buddy/internal/config"
	"github.com/sweeney/plant-buddy/internal/logic"
	"github.com/sweeney/plant-buddy/internal/sensor"
)

// openSoil opens the configured soil transport.
func openSoil(cfg *config.Config, buses *sensor.Buses, logger zerolog.Logger) (sensor.SoilReader, error) {
	switch cfg.Soil.Driver {
	case config.SoilADS1115:
		bus, err := buses.Get(cfg.Soil.ADS1115.Bus)
		if err != nil {
			return nil, err
		}
		return sensor.NewADS1115(bus, cfg.Soil.ADS1115.Addr, cfg.Soil.ADS1115.Channel)
	case config.SoilSerial:
		return sensor.OpenSerialSoil(cfg.Soil.Serial.Port, cfg.Soil.Serial.BaudRate, logger)
	case config.SoilModbus:
		m := cfg.Soil.Modbus
		return sensor.OpenModbusSoil(sensor.ModbusConfig{
			Endpoint: m.Endpoint,
			SlaveID:  m.SlaveID,
			Register: m.Register,
			BaudRate: m.BaudRate,
			Timeout:  m.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown soil driver %q", cfg.Soil.Driver)
	}
}

// openAir opens the configured air sensor. It returns nil, nil when the
// air sensor is disabled.
func openAir(cfg *config.Config, buses *sensor.Buses) (sensor.AirReader, error) {
	switch cfg.Air.Driver {
	case config.AirNone:
		return nil, nil
	case config.AirAHT20:
		bus, err := buses.Get(cfg.Air.Bus)
		if err != nil {
			return nil, err
		}
		return sensor.NewAHT20(bus, cfg.Air.Addr)
	default:
		return nil, fmt.Errorf("unknown air driver %q", cfg.Air.Driver)
	}
}

// readOnce prints one sample of every sensor.
func readOnce(cfg *config.Config, logger zerolog.Logger, out io.Writer) error {
	buses := sensor.NewBuses()
	defer buses.Close()

	soil, err := openSoil(cfg, buses, logger)
	if err != nil {
		return fmt.Errorf("open soil sensor: %w", err)
	}
	defer soil.Close()

	raw, err := soil.ReadRaw()
	if err != nil {
		return fmt.Errorf("read soil: %w", err)
	}
	cal := cfg.Logic().Calibration
	pct := cal.ComputePercent(raw)
	fmt.Fprintf(out, "Soil: raw=%d pct=%d label=%s\n", raw, pct, cal.Label(pct))

	air, err := openAir(cfg, buses)
	if err != nil {
		return fmt.Errorf("open air sensor: %w", err)
	}
	if air == nil {
		fmt.Fprintln(out, "Air: disabled")
		return nil
	}
	defer air.Close()

	sample := readAir(air, logger)
	if !sample.OK {
		fmt.Fprintln(out, "Air: unavailable")
		return nil
	}
	fmt.Fprintf(out, "Air: temperature=%.1fC humidity=%.1f%%\n", sample.Temperature, sample.Humidity)
	return nil
}

// readAir samples the air sensor. A nil reader or a failed read yields a
// sample with OK=false.
func readAir(air sensor.AirReader, logger zerolog.Logger) logic.AirSample {
	if air == nil {
		return logic.AirSample{}
	}
	temp, hum, err := air.Read()
	if err != nil {
		logger.Warn().Err(err).Msg("Air sensor read failed")
		return logic.AirSample{}
	}
	return logic.AirSample{Temperature: temp, Humidity: hum, OK: true}
}
