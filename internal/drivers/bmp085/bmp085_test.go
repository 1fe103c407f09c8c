package bmp085

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/homepi/controller/internal/apperrors"
	"github.com/homepi/controller/internal/model"
)

// fakeBus is a minimal in-memory register file satisfying Bus, so the
// calibration arithmetic can be exercised without a real serializer.
type fakeBus struct {
	regs     map[uint8][]byte
	failNext bool
	writes   [][]byte
}

func newFakeBus() *fakeBus { return &fakeBus{regs: map[uint8][]byte{}} }

func (f *fakeBus) Write(addr uint16, command uint8, payload []byte) error {
	if f.failNext {
		f.failNext = false
		return errors.New("simulated")
	}
	f.writes = append(f.writes, append([]byte{command}, payload...))
	return nil
}

func (f *fakeBus) Read(addr uint16, command uint8, size int) ([]byte, error) {
	if f.failNext {
		f.failNext = false
		return nil, errors.New("simulated")
	}
	b, ok := f.regs[command]
	if !ok || len(b) < size {
		return make([]byte, size), nil
	}
	return b[:size], nil
}

func (f *fakeBus) Delay(time.Duration) error { return nil }

func put16(m map[uint8][]byte, reg uint8, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	m[reg] = b[:]
}

func validCal() map[uint8][]byte {
	m := map[uint8][]byte{}
	put16(m, 0xAA, uint16(int16(408)))   // AC1
	put16(m, 0xAC, uint16(int16(-72)))   // AC2
	put16(m, 0xAE, uint16(int16(-14383))) // AC3
	put16(m, 0xB0, 32741)                 // AC4
	put16(m, 0xB2, 32757)                 // AC5
	put16(m, 0xB4, 23153)                 // AC6
	put16(m, 0xB6, uint16(int16(6515)))   // B1
	put16(m, 0xB8, uint16(int16(55)))     // B2
	put16(m, 0xBA, uint16(int16(-32768))) // MB
	put16(m, 0xBC, uint16(int16(-8711)))  // MC
	put16(m, 0xBE, uint16(int16(2868)))   // MD
	return m
}

func TestResetAndTemperature(t *testing.T) {
	f := newFakeBus()
	f.regs = validCal()
	d := New(f, 0x77, model.UltraLowPower)
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	put16(f.regs, 0xF6, 27898) // UT, datasheet worked example
	temp, err := d.Temperature()
	if err != nil {
		t.Fatalf("temperature: %v", err)
	}
	if temp < 14.9 || temp > 15.1 {
		t.Fatalf("expected ~15.0C, got %v", temp)
	}
}

func TestResetAtomicOnFailure(t *testing.T) {
	f := newFakeBus()
	f.regs = validCal()
	d := New(f, 0x77, model.UltraLowPower)
	if err := d.Reset(); err != nil {
		t.Fatalf("initial reset: %v", err)
	}
	before := d.cal

	f.failNext = true
	if err := d.Reset(); err == nil {
		t.Fatal("expected reset to fail")
	}
	if d.cal != before {
		t.Fatalf("calibration mutated on a failed reset: before=%+v after=%+v", before, d.cal)
	}
}

func TestTemperatureDivisionByZero(t *testing.T) {
	f := newFakeBus()
	m := validCal()
	// Force x1+md == 0 by setting MD to the negation of x1 for this UT.
	put16(m, 0xF6, 0)
	f.regs = m
	d := New(f, 0x77, model.UltraLowPower)
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	// x1 = ((0 - AC6)*AC5)>>15 is some nonzero value for the fixture above;
	// pin MD to its negation so x1+md == 0 exactly.
	x1 := ((int64(0) - int64(d.cal.AC6)) * int64(d.cal.AC5)) >> 15
	d.cal.MD = int16(-x1)

	_, err := d.Temperature()
	if err == nil {
		t.Fatal("expected a DeviceReadError")
	}
	var dre *apperrors.DeviceReadError
	if !errorsAsDeviceReadError(err, &dre) {
		t.Fatalf("expected DeviceReadError, got %T: %v", err, err)
	}
}

func errorsAsDeviceReadError(err error, target **apperrors.DeviceReadError) bool {
	if dre, ok := err.(*apperrors.DeviceReadError); ok {
		*target = dre
		return true
	}
	return false
}
