package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/plant-buddy/internal/config"
	"github.com/sweeney/plant-buddy/internal/gpio"
	"github.com/sweeney/plant-buddy/internal/logic"
	"github.com/sweeney/plant-buddy/internal/mqtt"
	"github.com/sweeney/plant-buddy/internal/sensor"
	"github.com/sweeney/plant-buddy/internal/status"
)

// TestEnvVarNames verifies the env var constants match what the network
// helper writes to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		assert.Equal(t, canonical, got)
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "Greenhouse")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "Greenhouse",
	}, *info)
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	assert.Nil(t, readNetworkInfo())
}

func TestSinceBootWraps(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, logic.Millis(2000), sinceBoot(start, start.Add(2*time.Second)))

	// 2^32 ms after boot the counter is back at zero.
	wrapped := start.Add(time.Duration(1<<32) * time.Millisecond)
	assert.Equal(t, logic.Millis(0), sinceBoot(start, wrapped))
}

// --- loop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Only called from the loop goroutine.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type harness struct {
	loop     *loop
	soil     *sensor.FakeSoilReader
	air      *sensor.FakeAirReader
	pump     *gpio.FakePump
	pub      *mqtt.FakePublisher
	tracker  *status.Tracker
	tick     chan time.Time
	commands chan int
	sig      chan os.Signal
	errCh    chan error
}

func newHarness(t *testing.T, cfg logic.Config, soil ...int) *harness {
	t.Helper()
	h := &harness{
		soil:     sensor.NewFakeSoilReader(soil...),
		air:      sensor.NewFakeAirReader(21.5, 48),
		pump:     gpio.NewFakePump(),
		pub:      mqtt.NewFakePublisher(),
		tracker:  status.NewTracker(time.Now(), status.Config{}),
		tick:     make(chan time.Time),
		commands: make(chan int),
		sig:      make(chan os.Signal),
		errCh:    make(chan error, 1),
	}
	h.pub.Connected = true
	h.loop = &loop{
		ctrl:       logic.NewController(cfg),
		soil:       h.soil,
		air:        h.air,
		pump:       h.pump,
		publisher:  h.pub,
		mqttStatus: h.pub,
		tracker:    h.tracker,
		now:        fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Second),
		logger:     zerolog.Nop(),
	}
	return h
}

func (h *harness) start() {
	go func() {
		h.errCh <- h.loop.run(h.tick, h.commands, h.sig)
	}()
}

func (h *harness) ticks(n int) {
	for i := 0; i < n; i++ {
		h.tick <- time.Time{}
	}
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.sig <- syscall.SIGTERM
	require.NoError(t, <-h.errCh)
}

func TestLoopDrySoilAlertsOnceThenTelemetryEveryTick(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 2400)
	h.start()
	h.ticks(3)
	h.stop(t)

	require.Len(t, h.pub.Alerts, 1)
	assert.Equal(t, mqtt.AlertLowMoisture, h.pub.Alerts[0].Event)
	assert.Equal(t, 2400, h.pub.Alerts[0].SoilRaw)

	require.Len(t, h.pub.Telemetry, 3)
	for _, tel := range h.pub.Telemetry {
		assert.Equal(t, 20, tel.SoilPercent)
		assert.Equal(t, "DRY", tel.SoilLabel)
		assert.True(t, tel.AirOK)
		assert.Equal(t, 21.5, tel.Temperature)
	}

	snap := h.tracker.Snapshot()
	assert.False(t, snap.LastAlert.IsZero())
	assert.Equal(t, 1, snap.Counts.Alerts)
}

func TestLoopTelemetryPublishedBeforeAlert(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 2400)
	h.start()
	h.ticks(2)
	h.stop(t)

	assert.Equal(t, []string{"telemetry", "alert", "telemetry", "system"}, h.pub.Order)
}

func TestLoopAlertCadence(t *testing.T) {
	cfg := logic.DefaultConfig()
	cfg.AlertInterval = 10 * time.Second
	h := newHarness(t, cfg, 2400)
	h.start()
	// Ticks at 2s..16s. Alert at 2s; 12s is exactly one interval later and
	// stays quiet; 14s is past it.
	h.ticks(8)
	h.stop(t)

	require.Len(t, h.pub.Alerts, 2)
	assert.Equal(t, 12*time.Second, h.pub.Alerts[1].Timestamp.Sub(h.pub.Alerts[0].Timestamp))
}

func TestLoopWetSoilNoAlert(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1300)
	h.start()
	h.ticks(5)
	h.stop(t)

	assert.Empty(t, h.pub.Alerts)
	require.Len(t, h.pub.Telemetry, 5)
	assert.Equal(t, 93, h.pub.Telemetry[0].SoilPercent)
	assert.Equal(t, "WET", h.pub.Telemetry[0].SoilLabel)
}

func TestLoopPumpCommandFreezesSoil(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1500, 2400)
	h.start()

	h.ticks(1)
	h.commands <- 1
	h.ticks(2)
	h.commands <- 0
	h.ticks(1)
	h.stop(t)

	assert.Equal(t, []bool{true, false, false}, h.pump.History, "on, off, forced off at shutdown")
	assert.Equal(t, 2, h.soil.Calls, "soil must not be sampled while the pump runs")

	require.Len(t, h.pub.Telemetry, 4)
	assert.False(t, h.pub.Telemetry[0].Frozen)
	for _, tel := range h.pub.Telemetry[1:3] {
		assert.True(t, tel.Frozen)
		assert.True(t, tel.PumpOn)
		assert.Equal(t, 1500, tel.SoilRaw)
	}
	assert.Equal(t, 2400, h.pub.Telemetry[3].SoilRaw)
	assert.False(t, h.pub.Telemetry[3].PumpOn)

	// Dry reading after the pump stops alerts immediately.
	require.Len(t, h.pub.Alerts, 1)
}

func TestLoopNonOneCommandTurnsPumpOff(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1500)
	h.start()
	h.commands <- 1
	h.commands <- 2
	h.stop(t)

	assert.Equal(t, []bool{true, false, false}, h.pump.History)
	snap := h.tracker.Snapshot()
	assert.False(t, snap.PumpOn)
	assert.Equal(t, 1, snap.Counts.PumpOn)
	assert.Equal(t, 1, snap.Counts.PumpOff)
}

func TestLoopShutdownForcesPumpOff(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1500)
	h.start()
	h.commands <- 1
	h.stop(t)

	assert.False(t, h.pump.On)
	require.Len(t, h.pub.SystemEvents, 1)
	ev := h.pub.SystemEvents[0]
	assert.Equal(t, "SHUTDOWN", ev.Event)
	assert.Equal(t, "SIGTERM", ev.Reason)
	assert.True(t, ev.Retained)
	assert.Contains(t, string(h.pub.SystemPayloads[0]), `"pump":"OFF"`)
	assert.Contains(t, string(h.pub.SystemPayloads[0]), `"reason":"SIGTERM"`)
}

func TestLoopSoilErrorSkipsTick(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 2400)
	h.soil.ReadError = errors.New("i2c: nack")
	h.start()
	h.ticks(3)
	h.stop(t)

	assert.Empty(t, h.pub.Telemetry)
	assert.Empty(t, h.pub.Alerts)
	snap := h.tracker.Snapshot()
	assert.Equal(t, 3, snap.Counts.SoilErrors)
	assert.False(t, snap.Sampled)
}

func TestLoopAirFailureOmitsAir(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1800)
	h.air.ReadError = errors.New("aht20: busy")
	h.start()
	h.ticks(1)
	h.stop(t)

	require.Len(t, h.pub.Telemetry, 1)
	assert.False(t, h.pub.Telemetry[0].AirOK)
	assert.Equal(t, 1800, h.pub.Telemetry[0].SoilRaw)
}

func TestLoopWithoutAirSensor(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1800)
	h.loop.air = nil
	h.start()
	h.ticks(1)
	h.stop(t)

	require.Len(t, h.pub.Telemetry, 1)
	assert.False(t, h.pub.Telemetry[0].AirOK)
}

func TestLoopPublishFailureDoesNotStop(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 2400)
	h.pub.PublishError = errors.New("broker down")
	h.start()
	h.ticks(3)
	h.stop(t)

	assert.Equal(t, 3, h.soil.Calls)
	assert.Equal(t, 1, h.tracker.Snapshot().Counts.Alerts, "alert is consumed even if the publish fails")
}

func TestLoopPumpSetFailureStillTracksState(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1500)
	h.pump.SetError = errors.New("gpio: line busy")
	h.start()
	h.commands <- 1
	h.ticks(1)
	h.stop(t)

	require.Len(t, h.pub.Telemetry, 1)
	assert.True(t, h.pub.Telemetry[0].PumpOn)
}

func TestLoopHeartbeat(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1500)
	h.loop.heartbeat = 4 * time.Second
	h.start()
	// Ticks at 2s..10s: heartbeats at 4s and 8s.
	h.ticks(5)
	h.stop(t)

	var heartbeats int
	for i, ev := range h.pub.SystemEvents {
		if ev.Event == "HEARTBEAT" {
			heartbeats++
			assert.Contains(t, string(h.pub.SystemPayloads[i]), `"event":"HEARTBEAT"`)
		}
	}
	assert.Equal(t, 2, heartbeats)
}

func TestLoopNoHeartbeatBeforeFirstReading(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1500)
	h.loop.heartbeat = 4 * time.Second
	h.soil.ReadError = errors.New("serial soil: no sample available")
	h.start()
	h.ticks(4)
	h.stop(t)

	require.Len(t, h.pub.SystemEvents, 1)
	assert.Equal(t, "SHUTDOWN", h.pub.SystemEvents[0].Event)
}

func TestLoopHeartbeatDisabled(t *testing.T) {
	h := newHarness(t, logic.DefaultConfig(), 1500)
	h.start()
	h.ticks(10)
	h.stop(t)

	require.Len(t, h.pub.SystemEvents, 1)
	assert.Equal(t, "SHUTDOWN", h.pub.SystemEvents[0].Event)
}

// --- CLI tests ---

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cmd := runCmd
	t.Cleanup(func() { cmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false }) })

	require.NoError(t, cmd.Flags().Set("broker", "tcp://10.0.0.5:1883"))
	require.NoError(t, cmd.Flags().Set("http", "off"))
	require.NoError(t, cmd.Flags().Set("tick", "5s"))
	require.NoError(t, cmd.Flags().Set("heartbeat", "-1s"))
	require.NoError(t, cmd.Flags().Set("pin-pump", "17"))
	require.NoError(t, applyFlags(cmd, cfg))

	assert.Equal(t, "tcp://10.0.0.5:1883", cfg.MQTT.Broker)
	assert.Equal(t, "", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.Tick)
	assert.Equal(t, time.Duration(0), cfg.Heartbeat)
	assert.Equal(t, 17, cfg.Pump.Pin)
	assert.Equal(t, config.SoilADS1115, cfg.Soil.Driver, "unset flags leave config alone")
}

func TestConfigCommandPrintsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant-buddy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alert:\n  raw_threshold: 2100\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--config", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "raw_threshold: 2100")
	assert.Contains(t, out.String(), "topic_prefix: garden/plant-buddy")
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud")
	assert.Error(t, err)

	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn")
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.True(t, strings.Contains(buf.String(), `"message":"shown"`))
}
