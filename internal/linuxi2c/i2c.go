// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package linuxi2c opens a real I²C bus through the Linux sysfs/i2c-dev
// interface. It is the only component of the controller that talks to the
// kernel; everything above it (the bus serializer, the device drivers)
// depends only on i2c.Bus and never on this package directly.
package linuxi2c

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/homepi/controller/conn/i2c"
	"github.com/homepi/controller/conn/i2c/i2creg"
)

// I2C is an open I²C bus via sysfs.
//
// It can be used to communicate with multiple devices from multiple
// goroutines, though in this controller only the bus serializer ever touches
// it directly.
type I2C struct {
	f         *os.File
	busNumber int

	mu sync.Mutex // the kernel likely serializes internally too, but don't take chances.
	fn functionality
}

// Open opens an I²C bus via its sysfs interface as described at
// https://www.kernel.org/doc/Documentation/i2c/dev-interface.
//
// busNumber is the bus number as exported by sysfs. For example if the path
// is /dev/i2c-1, busNumber should be 1.
func Open(busNumber int) (*I2C, error) {
	if !isLinux {
		return nil, errors.New("linuxi2c: not supported on this platform")
	}
	f, err := os.OpenFile(fmt.Sprintf("/dev/i2c-%d", busNumber), os.O_RDWR, os.ModeExclusive)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("linuxi2c: bus #%d is not configured: %w", busNumber, err)
		}
		return nil, fmt.Errorf("linuxi2c: are you a member of group 'plugdev'? %w", err)
	}
	i := &I2C{f: f, busNumber: busNumber}
	if err = i.ioctl(ioctlFuncs, uintptr(unsafe.Pointer(&i.fn))); err != nil {
		f.Close()
		return nil, err
	}
	return i, nil
}

// Close closes the handle to the I²C driver. It is not a requirement to close
// before process termination.
func (i *I2C) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	err := i.f.Close()
	i.f = nil
	return err
}

func (i *I2C) String() string {
	return fmt.Sprintf("I2C%d", i.busNumber)
}

// Tx executes a transaction as a single operation unit. It implements i2c.Bus
// and is the single point where bytes cross into the kernel.
func (i *I2C) Tx(addr uint16, w, r []byte) error {
	if addr >= 0x400 || (addr >= 0x80 && i.fn&func10BitAddr == 0) {
		return fmt.Errorf("linuxi2c: address %#x out of range for this adapter", addr)
	}
	if len(w) == 0 && len(r) == 0 {
		return nil
	}

	var buf [2]i2cMsg
	msgs := buf[0:0]
	if len(w) != 0 {
		msgs = buf[:1]
		buf[0].addr = addr
		buf[0].length = uint16(len(w))
		buf[0].buf = uintptr(unsafe.Pointer(&w[0]))
	}
	if len(r) != 0 {
		l := len(msgs)
		msgs = msgs[:l+1]
		buf[l].addr = addr
		buf[l].flags = flagRD
		buf[l].length = uint16(len(r))
		buf[l].buf = uintptr(unsafe.Pointer(&r[0]))
	}
	p := rdwrIoctlData{
		msgs:  uintptr(unsafe.Pointer(&msgs[0])),
		nmsgs: uint32(len(msgs)),
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ioctl(ioctlRdwr, uintptr(unsafe.Pointer(&p)))
}

// Speed implements i2c.Bus. Most Linux I²C adapters fix the bus speed at the
// kernel/device-tree level; there is no portable ioctl to change it per-bus.
func (i *I2C) Speed(hz int64) error {
	return errors.New("linuxi2c: speed change not supported")
}

func (i *I2C) ioctl(op uint, arg uintptr) error {
	if err := ioctl(i.f.Fd(), op, arg); err != nil {
		return fmt.Errorf("linuxi2c: ioctl: %w", err)
	}
	return nil
}

// Discover globs /dev/i2c-* and registers each bus found under i2creg, so
// that a bus can be opened by name through i2creg.Open.
func Discover() error {
	if !isLinux {
		return errors.New("linuxi2c: discovery not supported on this platform")
	}
	const prefix = "/dev/i2c-"
	items, err := filepath.Glob(prefix + "*")
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("linuxi2c: no I²C bus found")
	}
	sort.Strings(items)
	for _, item := range items {
		busNumber, err := strconv.Atoi(strings.TrimPrefix(item, prefix))
		if err != nil {
			continue
		}
		name := fmt.Sprintf("I2C%d", busNumber)
		if err := i2creg.Register(name, nil, busNumber, func() (i2c.BusCloser, error) {
			return Open(busNumber)
		}); err != nil {
			return err
		}
	}
	return nil
}

// i2cdev driver IOCTL control codes. See /usr/include/linux/i2c-dev.h and
// /usr/include/linux/i2c.h.
const (
	ioctlSlave = 0x703
	ioctlFuncs = 0x705
	ioctlRdwr  = 0x707
)

const (
	flagRD = 0x0001 // read data, from slave to master
)

type functionality uint64

const (
	funcI2C       = 0x00000001
	func10BitAddr = 0x00000002
)

type rdwrIoctlData struct {
	msgs  uintptr // pointer to the first i2cMsg
	nmsgs uint32
}

type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	buf    uintptr
}

var _ i2c.Bus = &I2C{}
