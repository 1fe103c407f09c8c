// Package bus implements the I²C bus serializer described in spec §4.A: a
// single owner of the physical bus that linearizes read, write, and delay
// requests from many concurrent callers and tracks the current slave
// address, switching it lazily only when an incoming request targets a
// different address.
//
// Grounded on original_source/src/i2c/bus.rs, which runs this exact loop on
// a dedicated OS thread reading from an mpsc channel of {Write, Read, Delay}
// messages, each carrying a oneshot reply. Here a single goroutine plays the
// role of that thread; conn/i2c.Bus is the transport it drives, so a real
// internal/linuxi2c.I2C or a conn/i2c/i2ctest.Playback/Record are
// interchangeable underneath it.
package bus

import (
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/homepi/controller/conn"
	"github.com/homepi/controller/conn/i2c"
	"github.com/homepi/controller/internal/apperrors"
)

// opKind distinguishes the three operations the serializer accepts.
type opKind int

const (
	opWrite opKind = iota
	opRead
	opDelay
)

type request struct {
	kind    opKind
	addr    uint16
	command uint8
	payload []byte // write payload, or read size via len(payload) for opRead
	delay   time.Duration
	reply   chan result
}

// result is the single-use reply to a Write/Read/Delay call.
type result struct {
	data []byte // populated for Read
	err  error
}

// Serializer owns a conn/i2c.Bus and serializes all access to it through one
// goroutine. Zero value is not usable; construct with New.
type Serializer struct {
	requests chan request
	done     chan struct{}
}

// New starts the serializer goroutine over phys. If phys is nil (the bus
// was unavailable at startup), the serializer logs once and continues;
// every subsequent Write and Read then fails with an I2cError (Delay still
// only waits), matching spec
// §4.A's "logs and continues" startup-failure rule.
func New(phys i2c.Bus) *Serializer {
	s := &Serializer{
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	if phys == nil {
		golog.Global().Debugw("bus serializer starting without a physical bus; all operations will fail")
	}
	go s.run(phys)
	return s
}

// Close stops the serializer loop. In-flight requests already accepted are
// completed; requests submitted after Close returns see a closed channel
// and must not be sent (callers own not sending after Close).
func (s *Serializer) Close() {
	close(s.requests)
	<-s.done
}

func (s *Serializer) run(phys i2c.Bus) {
	defer close(s.done)
	var currentAddr uint16
	haveAddr := false
	for req := range s.requests {
		if req.kind == opDelay {
			time.Sleep(req.delay)
			req.reply <- result{}
			continue
		}
		if phys == nil {
			req.reply <- result{err: apperrors.NewI2cError(errors.New("no physical bus available"))}
			continue
		}
		if !haveAddr || currentAddr != req.addr {
			currentAddr = req.addr
			haveAddr = true
		}
		switch req.kind {
		case opWrite:
			w := append([]byte{req.command}, req.payload...)
			err := phys.Tx(currentAddr, w, nil)
			if err != nil {
				err = apperrors.NewI2cError(errors.Wrapf(err, "write addr=%#x cmd=%#x", currentAddr, req.command))
				golog.Global().Debugw("i2c write failed", "addr", currentAddr, "command", req.command, "err", err)
			}
			req.reply <- result{err: err}
		case opRead:
			r := make([]byte, len(req.payload))
			err := phys.Tx(currentAddr, []byte{req.command}, r)
			if err != nil {
				err = apperrors.NewI2cError(errors.Wrapf(err, "read addr=%#x cmd=%#x", currentAddr, req.command))
				golog.Global().Debugw("i2c read failed", "addr", currentAddr, "command", req.command, "err", err)
				req.reply <- result{err: err}
				continue
			}
			req.reply <- result{data: r}
		}
	}
}

// Write sets the slave address if it differs from the one currently in
// effect, then block-writes payload to register command (spec §4.A).
func (s *Serializer) Write(addr uint16, command uint8, payload []byte) error {
	reply := make(chan result, 1)
	s.requests <- request{kind: opWrite, addr: addr, command: command, payload: payload, reply: reply}
	res := <-reply
	return res.err
}

// Read sets the slave address if it differs, then block-reads size bytes
// from register command.
func (s *Serializer) Read(addr uint16, command uint8, size int) ([]byte, error) {
	reply := make(chan result, 1)
	s.requests <- request{kind: opRead, addr: addr, command: command, payload: make([]byte, size), reply: reply}
	res := <-reply
	return res.data, res.err
}

// Delay blocks the bus for d; no other operation observes the bus during
// the delay, since the serializer processes one request at a time.
func (s *Serializer) Delay(d time.Duration) error {
	reply := make(chan result, 1)
	s.requests <- request{kind: opDelay, delay: d, reply: reply}
	<-reply
	return nil
}

// Conn returns a conn.Conn bound to addr, letting register-abstraction
// helpers like conn/mmr.Dev8 drive this serializer through its single Tx
// call instead of the split Write/Read API above. w's first byte is always
// the register command; the rest of w is the write payload when r is
// empty, and r's length is the read size when r is non-empty.
func (s *Serializer) Conn(addr uint16) conn.Conn {
	return serializerConn{s: s, addr: addr}
}

type serializerConn struct {
	s    *Serializer
	addr uint16
}

func (c serializerConn) String() string { return "bus.Serializer" }

func (c serializerConn) Tx(w, r []byte) error {
	command := w[0]
	if len(r) == 0 {
		return c.s.Write(c.addr, command, w[1:])
	}
	data, err := c.s.Read(c.addr, command, len(r))
	if err != nil {
		return err
	}
	copy(r, data)
	return nil
}
