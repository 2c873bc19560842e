package sensor

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAHT20Addr is the fixed AHT20 (DHT20) I2C address.
const DefaultAHT20Addr = 0x38

const (
	ahtStatusBusy       = 0x80
	ahtStatusCalibrated = 0x08

	// A measurement takes up to 80 ms.
	ahtMeasureTime = 80 * time.Millisecond
	ahtInitTime    = 10 * time.Millisecond
)

var (
	ahtCmdInit    = []byte{0xBE, 0x08, 0x00}
	ahtCmdTrigger = []byte{0xAC, 0x33, 0x00}
)

// ErrAHT20Busy is returned when a measurement is still in progress.
var ErrAHT20Busy = errors.New("aht20: measurement in progress")

// AHT20 reads temperature and humidity from an AHT20/DHT20.
//
// Reads are pipelined: Read collects the measurement triggered by the
// previous call and immediately triggers the next one, so a tick never
// waits the 80 ms conversion time.
type AHT20 struct {
	dev   i2c.Dev
	sleep func(time.Duration)
}

// NewAHT20 initializes the sensor and triggers the first measurement.
func NewAHT20(bus i2c.Bus, addr uint16) (*AHT20, error) {
	return newAHT20(bus, addr, time.Sleep)
}

func newAHT20(bus i2c.Bus, addr uint16, sleep func(time.Duration)) (*AHT20, error) {
	if addr == 0 {
		addr = DefaultAHT20Addr
	}
	a := &AHT20{dev: i2c.Dev{Bus: bus, Addr: addr}, sleep: sleep}

	status := make([]byte, 1)
	if err := a.dev.Tx(nil, status); err != nil {
		return nil, fmt.Errorf("aht20: read status: %w", err)
	}
	if status[0]&ahtStatusCalibrated == 0 {
		if err := a.dev.Tx(ahtCmdInit, nil); err != nil {
			return nil, fmt.Errorf("aht20: calibrate: %w", err)
		}
		a.sleep(ahtInitTime)
	}

	if err := a.trigger(); err != nil {
		return nil, err
	}
	a.sleep(ahtMeasureTime)
	return a, nil
}

func (a *AHT20) trigger() error {
	if err := a.dev.Tx(ahtCmdTrigger, nil); err != nil {
		return fmt.Errorf("aht20: trigger: %w", err)
	}
	return nil
}

// Read returns the pending measurement and starts the next one.
func (a *AHT20) Read() (float64, float64, error) {
	buf := make([]byte, 7)
	if err := a.dev.Tx(nil, buf); err != nil {
		return 0, 0, fmt.Errorf("aht20: read: %w", err)
	}
	if buf[0]&ahtStatusBusy != 0 {
		return 0, 0, ErrAHT20Busy
	}

	// The next measurement is started even if this one fails its checksum.
	trigErr := a.trigger()

	if crc8(buf[:6]) != buf[6] {
		return 0, 0, errors.New("aht20: checksum mismatch")
	}
	temp, hum := decodeAHT20(buf)
	return temp, hum, trigErr
}

// Close is a no-op; the bus is owned by the caller.
func (a *AHT20) Close() error {
	return nil
}

// decodeAHT20 unpacks the two 20-bit fields of a measurement frame.
func decodeAHT20(buf []byte) (temperature, humidity float64) {
	rawHum := uint32(buf[1])<<12 | uint32(buf[2])<<4 | uint32(buf[3])>>4
	rawTemp := uint32(buf[3]&0x0F)<<16 | uint32(buf[4])<<8 | uint32(buf[5])

	humidity = float64(rawHum) * 100 / (1 << 20)
	temperature = float64(rawTemp)*200/(1<<20) - 50
	return temperature, humidity
}

// crc8 is the AHT20 checksum: polynomial 0x31, init 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
