// Package mcp9808 implements the high-accuracy temperature sensor driver
// described in spec §4.B.2: a single 2-byte big-endian register read with a
// sign bit and a 12-bit magnitude.
//
// Adapted from google-periph's experimental/devices/mcp9808/mcp9808.go,
// trimmed from that driver's alert-threshold/SenseContinuous streaming API
// (out of scope here — spec §4.B.2 names exactly one read operation) down
// to the single Sense() call, confirmed against
// original_source/src/i2c/mcp9808.rs. Unlike bmp085 and mcp23017, this
// driver builds its register access on conn/mmr.Dev8 rather than calling
// internal/bus.Serializer's Write/Read directly: a single 16-bit register
// read is exactly what Dev8.ReadUint16 exists for, so there's nothing to
// hand-roll here.
package mcp9808

import (
	"encoding/binary"

	"github.com/homepi/controller/conn/mmr"
	"github.com/homepi/controller/internal/bus"
)

const regAmbientTemp = 0x05

const (
	signBit   = 0x1000
	magnitude = 0x0FFF
)

// Dev is an MCP9808 temperature sensor on addr.
type Dev struct {
	reg mmr.Dev8
}

// New constructs a Dev. The MCP9808 needs no reset: it has no calibration
// state and starts every conversion continuously on power-up.
func New(serializer *bus.Serializer, addr uint16) *Dev {
	return &Dev{reg: mmr.Dev8{Conn: serializer.Conn(addr), Order: binary.BigEndian}}
}

// Sense reads the ambient temperature register and returns °C (spec §4.B.2).
func (d *Dev) Sense() (float64, error) {
	raw, err := d.reg.ReadUint16(regAmbientTemp)
	if err != nil {
		return 0, err
	}
	mag := float64(raw&magnitude) / 16.0
	if raw&signBit != 0 {
		return -(256.0 - mag), nil
	}
	return mag, nil
}
