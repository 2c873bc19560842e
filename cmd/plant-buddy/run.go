package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/plant-buddy/internal/config"
	"github.com/sweeney/plant-buddy/internal/gpio"
	"github.com/sweeney/plant-buddy/internal/logic"
	"github.com/sweeney/plant-buddy/internal/mqtt"
	"github.com/sweeney/plant-buddy/internal/sensor"
	"github.com/sweeney/plant-buddy/internal/status"
	"github.com/sweeney/plant-buddy/internal/web"
)

func run(cfg *config.Config, logger zerolog.Logger) error {
	// Requesting the line as an output drives it low, so the pump is off
	// from boot until the first command.
	pump, err := gpio.NewRealPump(cfg.Pump.Chip, cfg.Pump.Pin)
	if err != nil {
		return fmt.Errorf("init pump: %w", err)
	}
	defer func() {
		if err := pump.Close(); err != nil {
			logger.Error().Err(err).Msg("Pump release failed")
		}
	}()
	logger.Info().Str("chip", cfg.Pump.Chip).Int("pin", cfg.Pump.Pin).Msg("Pump forced off")

	buses := sensor.NewBuses()
	defer buses.Close()

	soil, err := openSoil(cfg, buses, logger)
	if err != nil {
		return fmt.Errorf("init soil sensor: %w", err)
	}
	defer soil.Close()

	air, err := openAir(cfg, buses)
	if err != nil {
		// Telemetry carries soil alone until the next restart.
		logger.Error().Err(err).Str("driver", cfg.Air.Driver).Msg("Air sensor unavailable")
		air = nil
	}
	if air != nil {
		defer air.Close()
	}

	client, err := mqtt.NewRealClient(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		Topics:     mqtt.NewTopics(cfg.MQTT.TopicPrefix),
		BufferSize: cfg.MQTT.BufferSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:            cfg.Tick.Milliseconds(),
		HeartbeatMs:       cfg.Heartbeat.Milliseconds(),
		AlertIntervalMs:   cfg.Alert.Interval.Milliseconds(),
		AlertRawThreshold: cfg.Alert.RawThreshold,
		DryRaw:            cfg.Calibration.DryRaw,
		WetRaw:            cfg.Calibration.WetRaw,
		SoilDriver:        cfg.Soil.Driver,
		AirDriver:         cfg.Air.Driver,
		Broker:            cfg.MQTT.Broker,
		HTTPPort:          cfg.HTTPAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(client.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := client.PublishSystem(startup); err != nil {
		logger.Error().Err(err).Msg("Publish startup event failed")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("HTTP server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP status server listening")
	}

	logger.Info().
		Dur("tick", cfg.Tick).
		Dur("heartbeat", cfg.Heartbeat).
		Str("broker", cfg.MQTT.Broker).
		Str("soil", cfg.Soil.Driver).
		Str("air", cfg.Air.Driver).
		Msg("Started")

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		ctrl:       logic.NewController(cfg.Logic()),
		soil:       soil,
		air:        air,
		pump:       pump,
		publisher:  client,
		mqttStatus: client,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
		logger:     logger,
	}
	return l.run(ticker.C, client.Commands(), sigCh)
}

// loop owns the controller and serializes pump commands with ticks.
type loop struct {
	ctrl       *logic.Controller
	soil       sensor.SoilReader
	air        sensor.AirReader // nil when disabled
	pump       gpio.Pump
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // optional
	tracker    *status.Tracker       // optional
	heartbeat  time.Duration         // 0 disables
	now        func() time.Time
	logger     zerolog.Logger
}

// run processes commands and ticks one at a time until a signal arrives.
// A command that arrives while a tick is running is handled before the
// next tick starts.
func (l *loop) run(tick <-chan time.Time, commands <-chan int, sig <-chan os.Signal) error {
	start := l.now()
	heartbeat := logic.NewHeartbeat(l.heartbeat, start)
	sampled := false

	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case v := <-commands:
			l.handleCommand(v)

		case <-tick:
			t := l.now()
			if l.tick(t, sinceBoot(start, t)) {
				sampled = true
			}

			if hb := heartbeat.Check(t, sampled); hb != nil {
				l.publishHeartbeat(hb)
			}
		}
	}
}

// sinceBoot converts wall time into the controller's 32-bit millisecond
// clock. The conversion wraps like a free-running hardware counter.
func sinceBoot(start, t time.Time) logic.Millis {
	return logic.Millis(uint32(t.Sub(start).Milliseconds()))
}

func (l *loop) handleCommand(v int) {
	on := l.ctrl.HandleCommand(v)
	if err := l.pump.Set(on); err != nil {
		l.logger.Error().Err(err).Bool("on", on).Msg("Pump switch failed")
	}
	l.logger.Info().Int("value", v).Bool("pump_on", on).Msg("Pump command")

	if l.tracker != nil {
		l.tracker.SetPump(on)
		l.tracker.SetCounts(l.ctrl.CountsSnapshot())
	}
}

// tick runs one sampling cycle and reports whether it produced a reading.
func (l *loop) tick(t time.Time, now logic.Millis) bool {
	air := readAir(l.air, l.logger)

	res, err := l.ctrl.Tick(now, l.soil.ReadRaw, air)
	if err != nil {
		l.logger.Warn().Err(err).Msg("Soil read failed, skipping tick")
		if l.tracker != nil {
			l.tracker.SetCounts(l.ctrl.CountsSnapshot())
		}
		return false
	}

	if res.Soil.Frozen {
		l.logger.Debug().Msg("Pump is ON, using last recorded soil values")
	}
	ev := l.logger.Info()
	if air.OK {
		ev = ev.Float64("temperature_c", air.Temperature).Float64("humidity_pct", air.Humidity)
	}
	ev.Int("soil_raw", res.Soil.Raw).
		Int("soil_pct", res.Soil.Percent).
		Str("label", string(res.Soil.Label)).
		Bool("pump_on", res.PumpOn).
		Msg("Reading")

	if err := l.publisher.PublishTelemetry(mqtt.Telemetry{
		Timestamp:   t,
		Temperature: air.Temperature,
		Humidity:    air.Humidity,
		AirOK:       air.OK,
		SoilPercent: res.Soil.Percent,
		SoilRaw:     res.Soil.Raw,
		SoilLabel:   string(res.Soil.Label),
		PumpOn:      res.PumpOn,
		Frozen:      res.Soil.Frozen,
	}); err != nil {
		l.logger.Error().Err(err).Msg("Telemetry publish failed")
	}

	switch res.Alert {
	case logic.AlertEmit:
		alert := mqtt.NewLowMoistureAlert(t, res.Soil.Raw, res.Soil.Percent)
		if err := l.publisher.PublishAlert(alert); err != nil {
			l.logger.Error().Err(err).Msg("Alert publish failed")
		} else {
			l.logger.Warn().Str("id", alert.ID).Int("soil_raw", res.Soil.Raw).Msg("Soil moisture is low, alert sent")
		}
		if l.tracker != nil {
			l.tracker.SetLastAlert(t)
		}
	case logic.AlertCooldown:
		l.logger.Debug().Msg("Soil dry but alert already sent recently")
	case logic.AlertPumpRunning:
		l.logger.Debug().Msg("Skipping dry alert while pump is running")
	}

	if l.tracker != nil {
		l.tracker.Update(res, l.ctrl.CountsSnapshot())
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
	}
	return true
}

func (l *loop) publishHeartbeat(data *logic.HeartbeatData) {
	counts := l.ctrl.CountsSnapshot()
	l.logger.Info().
		Dur("uptime", data.Uptime).
		Int("ticks", counts.Ticks).
		Int("alerts", counts.Alerts).
		Int("soil_errors", counts.SoilErrors).
		Bool("pump_on", l.ctrl.PumpOn()).
		Msg("Heartbeat")

	hb := mqtt.SystemEvent{Timestamp: data.Timestamp, Event: "HEARTBEAT"}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			l.tracker.SetNetwork(net)
		}
		hb.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(hb); err != nil {
		l.logger.Error().Err(err).Msg("Heartbeat publish failed")
	}
}

func (l *loop) shutdown(s os.Signal) {
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	l.logger.Info().Str("signal", signalName).Msg("Shutting down")

	if l.ctrl.PumpOn() {
		l.ctrl.HandleCommand(0)
	}
	if err := l.pump.Set(false); err != nil {
		l.logger.Error().Err(err).Msg("Pump switch-off failed")
	}

	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if l.tracker != nil {
		l.tracker.SetPump(false)
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.logger.Error().Err(err).Msg("Publish shutdown event failed")
	}
}

// Network helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
