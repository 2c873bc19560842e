package logic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tickMs = Millis(2000)

func fixedSoil(raw int) SoilReadFunc {
	return func() (int, error) { return raw, nil }
}

func TestNewControllerPumpOff(t *testing.T) {
	c := NewController(DefaultConfig())

	assert.False(t, c.PumpOn())
	assert.Equal(t, Reading{Label: LabelDry}, c.LastReading())
	_, ok := c.LastAlert()
	assert.False(t, ok)
}

func TestHandleCommand(t *testing.T) {
	c := NewController(DefaultConfig())

	assert.True(t, c.HandleCommand(1))
	assert.True(t, c.PumpOn())

	assert.False(t, c.HandleCommand(0))
	assert.False(t, c.PumpOn())

	c.HandleCommand(1)
	assert.False(t, c.HandleCommand(2), "only 1 means on")
	c.HandleCommand(1)
	assert.False(t, c.HandleCommand(-1))

	counts := c.CountsSnapshot()
	assert.Equal(t, 3, counts.PumpOn)
	assert.Equal(t, 3, counts.PumpOff)
}

// Boot, pump off, probe sitting at the dry endpoint for over half an hour.
func TestTickDryEndpointAlertCadence(t *testing.T) {
	c := NewController(DefaultConfig())
	air := AirSample{Temperature: 21.5, Humidity: 40, OK: true}

	var emitted []Millis
	ticks := int((DefaultAlertInterval.Milliseconds()/int64(tickMs))*2 + 2)
	for i := 1; i <= ticks; i++ {
		now := Millis(i) * tickMs
		res, err := c.Tick(now, fixedSoil(2400), air)
		require.NoError(t, err)

		assert.Equal(t, 20, res.Soil.Percent)
		assert.Equal(t, LabelDry, res.Soil.Label)
		assert.Equal(t, air, res.Air)
		if res.Alert == AlertEmit {
			emitted = append(emitted, now)
		}
	}

	require.Len(t, emitted, 2)
	assert.Equal(t, tickMs, emitted[0], "first alert on tick 1")
	assert.Greater(t, emitted[1].Since(emitted[0]), Millis(DefaultAlertInterval.Milliseconds()))
	assert.LessOrEqual(t, emitted[1].Since(emitted[0]), Millis(DefaultAlertInterval.Milliseconds())+tickMs)

	counts := c.CountsSnapshot()
	assert.Equal(t, ticks, counts.Ticks)
	assert.Equal(t, 2, counts.Alerts)
}

// Pump switched on mid-run: soil percent stays at the pre-command value.
func TestTickFreezesOnPumpCommand(t *testing.T) {
	c := NewController(DefaultConfig())

	before, err := c.Tick(1*tickMs, fixedSoil(2100), AirSample{})
	require.NoError(t, err)
	assert.Equal(t, 40, before.Soil.Percent)

	c.HandleCommand(1)

	res, err := c.Tick(2*tickMs, fixedSoil(1300), AirSample{})
	require.NoError(t, err)
	assert.True(t, res.PumpOn)
	assert.True(t, res.Soil.Frozen)
	assert.Equal(t, before.Soil.Percent, res.Soil.Percent)
	assert.Equal(t, before.Soil.Raw, res.Soil.Raw)
	assert.Equal(t, AlertPumpRunning, res.Alert)

	c.HandleCommand(0)

	res, err = c.Tick(3*tickMs, fixedSoil(1300), AirSample{})
	require.NoError(t, err)
	assert.False(t, res.Soil.Frozen)
	assert.Equal(t, 1300, res.Soil.Raw)
	assert.Equal(t, 93, res.Soil.Percent)

	counts := c.CountsSnapshot()
	assert.Equal(t, 1, counts.FrozenTicks)
}

func TestTickPumpOnSuppressesAlertOnDryFrozenReading(t *testing.T) {
	c := NewController(DefaultConfig())

	res, err := c.Tick(tickMs, fixedSoil(2500), AirSample{})
	require.NoError(t, err)
	require.Equal(t, AlertEmit, res.Alert)

	c.HandleCommand(1)
	for i := 2; i < 2000; i++ {
		res, err := c.Tick(Millis(i)*tickMs, fixedSoil(2500), AirSample{})
		require.NoError(t, err)
		assert.NotEqual(t, AlertEmit, res.Alert)
	}

	last, _ := c.LastAlert()
	assert.Equal(t, tickMs, last)
}

func TestTickSoilErrorSkipsAlert(t *testing.T) {
	c := NewController(DefaultConfig())

	_, err := c.Tick(tickMs, func() (int, error) { return 0, errors.New("bus error") }, AirSample{})
	require.Error(t, err)

	_, ok := c.LastAlert()
	assert.False(t, ok)
	counts := c.CountsSnapshot()
	assert.Equal(t, 1, counts.Ticks)
	assert.Equal(t, 1, counts.SoilErrors)
}

func TestControllerCustomThresholds(t *testing.T) {
	cfg := Config{
		Calibration:       Calibration{DryRaw: 1000, WetRaw: 3000, DryPercent: 30, WetPercent: 90},
		AlertRawThreshold: 1500,
		AlertInterval:     DefaultAlertInterval,
	}
	c := NewController(cfg)

	res, err := c.Tick(tickMs, fixedSoil(2000), AirSample{})
	require.NoError(t, err)
	// Endpoints normalize to dry=3000, wet=1000: (2000-3000)*80/(1000-3000)+20 = 60.
	assert.Equal(t, 60, res.Soil.Percent)
	assert.Equal(t, LabelOK, res.Soil.Label)
	assert.Equal(t, AlertEmit, res.Alert)
	assert.Equal(t, cfg.Calibration, c.Calibration())
}
