// Package mcp23017 implements the 16-channel GPIO expander driver described
// in spec §4.B.3: two 8-pin banks, each with a cached per-pin direction, a
// last-written value bitmap, and a flag marking whether any write has yet
// occurred.
//
// Adapted from the register-offset table and registerCache
// read-only-if-changed pattern in google-periph's
// experimental/devices/mcp23xxx/registers.go (that file's registerAccess
// abstraction itself is not carried forward: it spans both I²C and SPI and
// is built on conn/spi, which has no role in a pure-I²C controller), and
// confirmed against original_source/src/i2c/mcp23017.rs for the exact
// register map and reset sequence.
//
// Bit order: pin k's value lands at wire bit k directly (1<<k) — see
// DESIGN.md for why this is the correct reading of spec §4.B.3/§9's
// "bit position 7-k" phrasing, which labels bit positions MSB-first rather
// than instructing a bit reversal.
package mcp23017

import (
	"github.com/homepi/controller/internal/apperrors"
	"github.com/homepi/controller/internal/model"
)

const (
	regIODirA = 0x00
	regIODirB = 0x01
	regIPolA  = 0x02
	regIPolB  = 0x03
	regGPPUA  = 0x0C
	regGPPUB  = 0x0D
	regGPIOA  = 0x12
	regGPIOB  = 0x13
	regOLatA  = 0x14
	regOLatB  = 0x15
)

// Bus is the subset of internal/bus.Serializer the driver depends on.
type Bus interface {
	Write(addr uint16, command uint8, payload []byte) error
	Read(addr uint16, command uint8, size int) ([]byte, error)
}

// bankState is the cached state of one 8-pin bank (spec §3 "per-device
// cached state").
type bankState struct {
	dir     [8]model.Direction
	value   uint8 // last-written wire byte; see spec §4.B.3
	written bool  // has any write to olat happened yet
}

// Dev is an MCP23017-style GPIO expander on addr.
type Dev struct {
	bus  Bus
	addr uint16

	a, b bankState
}

// New constructs a Dev. Call Reset before using any pin.
func New(bus Bus, addr uint16) *Dev {
	return &Dev{bus: bus, addr: addr}
}

func (d *Dev) bank(bank model.Bank) *bankState {
	if bank == model.BankA {
		return &d.a
	}
	return &d.b
}

func regsFor(bank model.Bank) (iodir, ipol, gppu, gpio, olat uint8) {
	if bank == model.BankA {
		return regIODirA, regIPolA, regGPPUA, regGPIOA, regOLatA
	}
	return regIODirB, regIPolB, regGPPUB, regGPIOB, regOLatB
}

// Reset clears both bank states to (all-directions OutH, all-values zero,
// unwritten) and writes the direction, polarity, and pull-up registers for
// both banks unconditionally (spec §4.B.3).
func (d *Dev) Reset() error {
	d.a = bankState{}
	d.b = bankState{}
	for _, bk := range [2]model.Bank{model.BankA, model.BankB} {
		if err := d.writeDirectionRegs(bk); err != nil {
			return err
		}
	}
	return nil
}

// directionByte computes the iodir/gppu wire bytes for a bank's cached
// directions: iodir bit set iff the pin is an input variant, gppu bit set
// iff InWithPD, polarity always zero.
func directionByte(dir *[8]model.Direction) (iodir, gppu uint8) {
	for k := 0; k < 8; k++ {
		if dir[k].IsInput() {
			iodir |= 1 << uint(k)
		}
		if dir[k] == model.InWithPD {
			gppu |= 1 << uint(k)
		}
	}
	return iodir, gppu
}

func (d *Dev) writeDirectionRegs(bk model.Bank) error {
	st := d.bank(bk)
	iodirReg, ipolReg, gppuReg, _, _ := regsFor(bk)
	iodir, gppu := directionByte(&st.dir)
	if err := d.bus.Write(d.addr, iodirReg, []byte{iodir}); err != nil {
		return err
	}
	if err := d.bus.Write(d.addr, ipolReg, []byte{0x00}); err != nil {
		return err
	}
	if err := d.bus.Write(d.addr, gppuReg, []byte{gppu}); err != nil {
		return err
	}
	return nil
}

// SetDirection compares the requested direction to the cached one; if
// different, updates the cache and rewrites the bank's direction/polarity/
// pull-up registers (spec §4.B.3).
func (d *Dev) SetDirection(bk model.Bank, pin int, dir model.Direction) error {
	if pin < 0 || pin > 7 {
		return &apperrors.OutOfBounds{Index: pin}
	}
	st := d.bank(bk)
	if st.dir[pin] == dir {
		return nil
	}
	st.dir[pin] = dir
	return d.writeDirectionRegs(bk)
}

// Direction returns the cached direction of a pin.
func (d *Dev) Direction(bk model.Bank, pin int) (model.Direction, error) {
	if pin < 0 || pin > 7 {
		return 0, &apperrors.OutOfBounds{Index: pin}
	}
	return d.bank(bk).dir[pin], nil
}

// WriteBool sets a pin's logical value (spec §4.B.3's "Set pin value").
//
// If the cached direction is an Input variant, fails with
// InvalidPinDirection. OutL stores the logical complement; OutH stores the
// value verbatim. The bank's output register is only rewritten if this is
// the bank's first write, or the resulting wire byte differs from the
// previous one (idempotent-write invariant, spec §8).
func (d *Dev) WriteBool(bk model.Bank, pin int, value bool) error {
	if pin < 0 || pin > 7 {
		return &apperrors.OutOfBounds{Index: pin}
	}
	st := d.bank(bk)
	dir := st.dir[pin]
	if dir.IsInput() {
		return &apperrors.InvalidPinDirection{Reason: "pin is configured as an input"}
	}
	stored := value
	if dir == model.OutL {
		stored = !value
	}
	next := st.value
	if stored {
		next |= 1 << uint(pin)
	} else {
		next &^= 1 << uint(pin)
	}
	if !st.written || next != st.value {
		_, _, _, _, olatReg := regsFor(bk)
		if err := d.bus.Write(d.addr, olatReg, []byte{next}); err != nil {
			return err
		}
	}
	st.value = next
	st.written = true
	return nil
}

// ReadBool returns a pin's logical value (spec §4.B.3's "Get pin value").
//
// OutH returns the cached bit verbatim; OutL returns its logical
// complement; an Input variant reads the bank's gpio register fresh from
// the bus and does not update the value cache.
func (d *Dev) ReadBool(bk model.Bank, pin int) (bool, error) {
	if pin < 0 || pin > 7 {
		return false, &apperrors.OutOfBounds{Index: pin}
	}
	st := d.bank(bk)
	dir := st.dir[pin]
	switch dir {
	case model.OutH:
		return st.value&(1<<uint(pin)) != 0, nil
	case model.OutL:
		return st.value&(1<<uint(pin)) == 0, nil
	default:
		_, _, _, gpioReg, _ := regsFor(bk)
		b, err := d.bus.Read(d.addr, gpioReg, 1)
		if err != nil {
			return false, err
		}
		return b[0]&(1<<uint(pin)) != 0, nil
	}
}
