package mcp9808

import (
	"testing"

	"github.com/homepi/controller/internal/bus"
)

type fakeI2C struct{ data []byte }

func (f *fakeI2C) String() string       { return "fake" }
func (f *fakeI2C) Speed(hz int64) error { return nil }

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	copy(r, f.data)
	return nil
}

func TestSenseBoundaries(t *testing.T) {
	cases := []struct {
		raw  []byte
		want float64
	}{
		{[]byte{0x00, 0x00}, 0.0},
		{[]byte{0x1F, 0x60}, -10.0},
		{[]byte{0x07, 0xD0}, 125.0},
	}
	for _, c := range cases {
		serializer := bus.New(&fakeI2C{data: c.raw})
		d := New(serializer, 0x18)
		got, err := d.Sense()
		serializer.Close()
		if err != nil {
			t.Fatalf("sense: %v", err)
		}
		if diff := got - c.want; diff > 0.1 || diff < -0.1 {
			t.Errorf("raw %#v: got %v, want %v", c.raw, got, c.want)
		}
	}
}
