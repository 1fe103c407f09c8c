// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mmr

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// playback is a conn.Conn fake, trimmed from the teacher's
// conn/conntest.Playback down to what this tree's half-duplex-only conn.Conn
// needs: record the write, hand back a canned read.
type playback struct {
	wantW []byte
	r     []byte
	gotW  []byte
}

func (p *playback) String() string { return "playback" }

func (p *playback) Tx(w, r []byte) error {
	p.gotW = append([]byte{}, w...)
	copy(r, p.r)
	return nil
}

type packed struct {
	U32 uint32
	U16 uint16
}

func TestDev8_ReadUint16(t *testing.T) {
	c := &playback{r: []byte{0x12, 0x34}}
	d := Dev8{Conn: c, Order: binary.BigEndian}
	v, err := d.ReadUint16(0x05)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x1234 {
		t.Fatalf("got %#x, want 0x1234", v)
	}
	if !bytes.Equal(c.gotW, []byte{0x05}) {
		t.Fatalf("wrote %#v, want register byte alone", c.gotW)
	}
}

func TestDev8_WriteUint16(t *testing.T) {
	c := &playback{}
	d := Dev8{Conn: c, Order: binary.BigEndian}
	if err := d.WriteUint16(0x05, 0x1234); err != nil {
		t.Fatal(err)
	}
	if want := []byte{0x05, 0x12, 0x34}; !bytes.Equal(c.gotW, want) {
		t.Fatalf("wrote %#v, want %#v", c.gotW, want)
	}
}

func TestDev8_ReadStruct(t *testing.T) {
	c := &playback{r: []byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc}}
	d := Dev8{Conn: c, Order: binary.BigEndian}
	p := &packed{}
	if err := d.ReadStruct(0x05, p); err != nil {
		t.Fatal(err)
	}
	if p.U32 != 0x12345678 || p.U16 != 0x9abc {
		t.Fatalf("got %#v", p)
	}
}

func TestDev8_check(t *testing.T) {
	d := Dev8{}
	if _, err := d.ReadUint8(0); err == nil {
		t.Fatal("expected an error with a nil Conn")
	}
	d = Dev8{Conn: &playback{}}
	if _, err := d.ReadUint16(0); err == nil {
		t.Fatal("expected an error with a nil Order")
	}
}

func TestDev16_ReadUint16(t *testing.T) {
	c := &playback{r: []byte{0x12, 0x34}}
	d := Dev16{Conn: c, Order: binary.BigEndian}
	v, err := d.ReadUint16(0x0102)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x1234 {
		t.Fatalf("got %#x, want 0x1234", v)
	}
	if want := []byte{0x01, 0x02}; !bytes.Equal(c.gotW, want) {
		t.Fatalf("wrote %#v, want %#v", c.gotW, want)
	}
}

func TestDev16_WriteUint8(t *testing.T) {
	c := &playback{}
	d := Dev16{Conn: c, Order: binary.BigEndian}
	if err := d.WriteUint8(0x0102, 0x56); err != nil {
		t.Fatal(err)
	}
	if want := []byte{0x01, 0x02, 0x56}; !bytes.Equal(c.gotW, want) {
		t.Fatalf("wrote %#v, want %#v", c.gotW, want)
	}
}
