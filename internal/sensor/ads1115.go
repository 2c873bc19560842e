package sensor

import (
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultADS1115Addr is the ADS1115 address with ADDR tied to GND.
const DefaultADS1115Addr = 0x48

const (
	adsRegConversion = 0x00
	adsRegConfig     = 0x01

	// Single-ended AINx vs GND, ±4.096 V, continuous conversion, 128 SPS,
	// comparator disabled. The channel is OR'ed into MUX bits 12-13.
	adsConfigBase = 0x4000 | 0x0200 | 0x0080 | 0x0003

	// Conversion time at 128 SPS is 7.8 ms.
	adsSettle = 10 * time.Millisecond
)

// ADS1115 reads a capacitive soil probe through one channel of an ADS1115.
// Counts are scaled to 12 bits (1 mV per count at ±4.096 V), the same
// order of magnitude as a microcontroller's on-chip ADC, so reference
// calibrations carry over.
type ADS1115 struct {
	dev i2c.Dev
}

// NewADS1115 configures continuous conversion on channel (0-3).
func NewADS1115(bus i2c.Bus, addr uint16, channel int) (*ADS1115, error) {
	if channel < 0 || channel > 3 {
		return nil, fmt.Errorf("ads1115: channel %d out of range 0-3", channel)
	}
	if addr == 0 {
		addr = DefaultADS1115Addr
	}

	a := &ADS1115{dev: i2c.Dev{Bus: bus, Addr: addr}}

	cfg := uint16(adsConfigBase | channel<<12)
	w := []byte{adsRegConfig, byte(cfg >> 8), byte(cfg)}
	if err := a.dev.Tx(w, nil); err != nil {
		return nil, fmt.Errorf("ads1115: write config: %w", err)
	}
	time.Sleep(adsSettle)
	return a, nil
}

// ReadRaw returns the latest conversion. Readings below ground clamp to 0.
func (a *ADS1115) ReadRaw() (int, error) {
	r := make([]byte, 2)
	if err := a.dev.Tx([]byte{adsRegConversion}, r); err != nil {
		return 0, fmt.Errorf("ads1115: read conversion: %w", err)
	}

	v := int16(binary.BigEndian.Uint16(r))
	if v < 0 {
		return 0, nil
	}
	return int(v) >> 3, nil
}

// Close is a no-op; the bus is owned by the caller.
func (a *ADS1115) Close() error {
	return nil
}
