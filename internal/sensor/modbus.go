package sensor

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goburrow/modbus"
)

// registerReader is the subset of modbus.Client used here.
type registerReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// ModbusSoil reads an RS485 or Modbus TCP soil probe that exposes its raw
// moisture count in one input register.
type ModbusSoil struct {
	client   registerReader
	conn     io.Closer
	register uint16
}

// ModbusConfig addresses the probe.
type ModbusConfig struct {
	// Endpoint is "tcp://host:port" for Modbus TCP, otherwise a serial
	// device path for Modbus RTU (8N1).
	Endpoint string
	SlaveID  byte
	Register uint16
	BaudRate int
	Timeout  time.Duration
}

// OpenModbusSoil connects to the probe.
func OpenModbusSoil(cfg ModbusConfig) (*ModbusSoil, error) {
	if addr, ok := strings.CutPrefix(cfg.Endpoint, "tcp://"); ok {
		h := modbus.NewTCPClientHandler(addr)
		h.SlaveId = cfg.SlaveID
		h.Timeout = cfg.Timeout
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("modbus: connect %s: %w", addr, err)
		}
		return &ModbusSoil{client: modbus.NewClient(h), conn: h, register: cfg.Register}, nil
	}

	h := modbus.NewRTUClientHandler(cfg.Endpoint)
	h.BaudRate = cfg.BaudRate
	h.DataBits = 8
	h.Parity = "N"
	h.StopBits = 1
	h.SlaveId = cfg.SlaveID
	h.Timeout = cfg.Timeout
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus: open %s: %w", cfg.Endpoint, err)
	}
	return &ModbusSoil{client: modbus.NewClient(h), conn: h, register: cfg.Register}, nil
}

// ReadRaw reads the moisture register.
func (m *ModbusSoil) ReadRaw() (int, error) {
	b, err := m.client.ReadInputRegisters(m.register, 1)
	if err != nil {
		return 0, fmt.Errorf("modbus: read register %d: %w", m.register, err)
	}
	if len(b) < 2 {
		return 0, fmt.Errorf("modbus: short response (%d bytes)", len(b))
	}
	return int(binary.BigEndian.Uint16(b)), nil
}

// Close releases the connection.
func (m *ModbusSoil) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
