package bus

import (
	"errors"
	"testing"
	"time"

	"github.com/homepi/controller/conn/i2c/i2ctest"
)

func TestWriteRead(t *testing.T) {
	p := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x18, Write: []byte{0x10, 0xAB}},
			{Addr: 0x18, Write: []byte{0x05}, Read: []byte{0x01, 0x91}},
		},
	}
	s := New(p)
	defer s.Close()

	if err := s.Write(0x18, 0x10, []byte{0xAB}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := s.Read(0x18, 0x05, 2)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != 2 || data[0] != 0x01 || data[1] != 0x91 {
		t.Fatalf("unexpected read data: %#v", data)
	}
}

// fakeBus implements i2c.Bus directly to exercise failure recovery and delay
// ordering without needing an exact Playback script.
type fakeBus struct {
	txs  []call
	fail bool
}

type call struct {
	addr uint16
	w, r []byte
}

func (f *fakeBus) String() string { return "fake" }
func (f *fakeBus) Speed(int64) error { return nil }
func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	f.txs = append(f.txs, call{addr: addr, w: append([]byte{}, w...), r: r})
	if f.fail {
		return errors.New("simulated failure")
	}
	return nil
}

func TestFailedReadReleasesSerializer(t *testing.T) {
	f := &fakeBus{fail: true}
	s := New(f)
	defer s.Close()

	if _, err := s.Read(0x20, 0x12, 1); err == nil {
		t.Fatal("expected a bus error")
	}
	f.fail = false
	if err := s.Write(0x20, 0x14, []byte{0x01}); err != nil {
		t.Fatalf("serializer did not recover after a failed read: %v", err)
	}
}

func TestDelayBlocksSubsequentOps(t *testing.T) {
	f := &fakeBus{}
	s := New(f)
	defer s.Close()

	start := time.Now()
	if err := s.Delay(30 * time.Millisecond); err != nil {
		t.Fatalf("delay: %v", err)
	}
	if err := s.Write(0x20, 0x00, []byte{0x00}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("write observed before delay elapsed")
	}
}

func TestNilBusFailsEveryOperation(t *testing.T) {
	s := New(nil)
	defer s.Close()
	if err := s.Write(0x20, 0x00, []byte{0x00}); err == nil {
		t.Fatal("expected an i2c error when no physical bus is present")
	}
}
