package mcp23017

import (
	"testing"

	"github.com/homepi/controller/internal/apperrors"
	"github.com/homepi/controller/internal/model"
)

type write struct {
	command uint8
	payload []byte
}

type fakeBus struct {
	writes []write
	reads  map[uint8][]byte
}

func newFakeBus() *fakeBus { return &fakeBus{reads: map[uint8][]byte{}} }

func (f *fakeBus) Write(addr uint16, command uint8, payload []byte) error {
	f.writes = append(f.writes, write{command: command, payload: append([]byte{}, payload...)})
	return nil
}

func (f *fakeBus) Read(addr uint16, command uint8, size int) ([]byte, error) {
	if b, ok := f.reads[command]; ok {
		return b, nil
	}
	return make([]byte, size), nil
}

// S2 from spec §8: bank A pin 0 OutH, write(true) produces exactly one
// write to register 0x14 with payload [0x01].
func TestS2GpioToggle(t *testing.T) {
	f := newFakeBus()
	d := New(f, 0x20)
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := d.SetDirection(model.BankA, 0, model.OutH); err != nil {
		t.Fatalf("set direction: %v", err)
	}
	f.writes = nil // discard the direction-register rewrite; only count olat writes below

	if err := d.WriteBool(model.BankA, 0, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := d.ReadBool(model.BankA, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !got {
		t.Fatal("expected true")
	}

	var olatWrites []write
	for _, w := range f.writes {
		if w.command == regOLatA {
			olatWrites = append(olatWrites, w)
		}
	}
	if len(olatWrites) != 1 {
		t.Fatalf("expected exactly one olat write, got %d", len(olatWrites))
	}
	if len(olatWrites[0].payload) != 1 || olatWrites[0].payload[0] != 0x01 {
		t.Fatalf("expected payload [0x01], got %#v", olatWrites[0].payload)
	}
}

// S3 from spec §8: pin 1 OutL, write(true) stores the logical complement,
// so the wire byte's bit 1 (position 7-1=6) is clear, and read returns true.
func TestS3ActiveLow(t *testing.T) {
	f := newFakeBus()
	d := New(f, 0x20)
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := d.SetDirection(model.BankA, 1, model.OutL); err != nil {
		t.Fatalf("set direction: %v", err)
	}
	f.writes = nil

	if err := d.WriteBool(model.BankA, 1, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	if d.a.value&(1<<1) != 0 {
		t.Fatal("expected wire bit 1 to be clear for a logical-true OutL write")
	}
	got, err := d.ReadBool(model.BankA, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !got {
		t.Fatal("expected CurrentOutputValue to read back true")
	}
}

func TestWriteToInputFails(t *testing.T) {
	f := newFakeBus()
	d := New(f, 0x20)
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := d.SetDirection(model.BankA, 2, model.In); err != nil {
		t.Fatalf("set direction: %v", err)
	}
	f.writes = nil
	err := d.WriteBool(model.BankA, 2, true)
	if _, ok := err.(*apperrors.InvalidPinDirection); !ok {
		t.Fatalf("expected InvalidPinDirection, got %v", err)
	}
	if len(f.writes) != 0 {
		t.Fatalf("expected no bus write, got %v", f.writes)
	}
}

func TestFirstWriteAlwaysEmittedEvenIfZero(t *testing.T) {
	f := newFakeBus()
	d := New(f, 0x20)
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := d.SetDirection(model.BankA, 0, model.OutH); err != nil {
		t.Fatalf("set direction: %v", err)
	}
	f.writes = nil

	if err := d.WriteBool(model.BankA, 0, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	var olatWrites int
	for _, w := range f.writes {
		if w.command == regOLatA {
			olatWrites++
		}
	}
	if olatWrites != 1 {
		t.Fatalf("expected the first all-zero write to still be emitted, got %d olat writes", olatWrites)
	}
}

func TestIdempotentWriteSkipsBus(t *testing.T) {
	f := newFakeBus()
	d := New(f, 0x20)
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := d.SetDirection(model.BankA, 0, model.OutH); err != nil {
		t.Fatalf("set direction: %v", err)
	}
	if err := d.WriteBool(model.BankA, 0, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.writes = nil
	if err := d.WriteBool(model.BankA, 0, true); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if len(f.writes) != 0 {
		t.Fatalf("expected no bus write on an identical repeated write, got %v", f.writes)
	}
}

func TestSetDirectionRoundTrip(t *testing.T) {
	f := newFakeBus()
	d := New(f, 0x20)
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := d.SetDirection(model.BankB, 5, model.InWithPD); err != nil {
		t.Fatalf("set direction: %v", err)
	}
	got, err := d.Direction(model.BankB, 5)
	if err != nil {
		t.Fatalf("direction: %v", err)
	}
	if got != model.InWithPD {
		t.Fatalf("expected InWithPD, got %v", got)
	}
}
