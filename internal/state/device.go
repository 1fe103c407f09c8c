package state

import (
	"github.com/homepi/controller/internal/apperrors"
	"github.com/homepi/controller/internal/bus"
	"github.com/homepi/controller/internal/drivers/bmp085"
	"github.com/homepi/controller/internal/drivers/mcp23017"
	"github.com/homepi/controller/internal/drivers/mcp9808"
	"github.com/homepi/controller/internal/model"
)

// deviceHandle is the tagged variant over the three concrete driver states
// named in spec §9 ("Express as a tagged variant over the three concrete
// driver states rather than deep dynamic dispatch; the set of supported
// models is closed and fixed"). Exactly one of the three driver fields is
// non-nil, selected by cfg.Kind.
type deviceHandle struct {
	cfg model.Device

	barometer *bmp085.Dev
	tempSens  *mcp9808.Dev
	expander  *mcp23017.Dev
}

func newDeviceHandle(cfg model.Device, serializer *bus.Serializer) *deviceHandle {
	h := &deviceHandle{cfg: cfg}
	switch cfg.Kind {
	case model.KindBarometer:
		h.barometer = bmp085.New(serializer, cfg.Barometer.Addr, cfg.Barometer.Mode)
	case model.KindTempSensor:
		h.tempSens = mcp9808.New(serializer, cfg.TempSens.Addr)
	case model.KindGpioExpander:
		h.expander = mcp23017.New(serializer, cfg.Expander.Addr)
	}
	return h
}

// reset re-runs the driver's reset procedure. For the GPIO expander it also
// reapplies the configured per-pin directions, since mcp23017.Reset()
// starts every pin at OutH (spec §4.B.3).
func (h *deviceHandle) reset() error {
	switch h.cfg.Kind {
	case model.KindBarometer:
		return h.barometer.Reset()
	case model.KindTempSensor:
		return nil // no on-chip state to (re)initialize
	case model.KindGpioExpander:
		if err := h.expander.Reset(); err != nil {
			return err
		}
		for pin, dir := range h.cfg.Expander.BankA {
			if err := h.expander.SetDirection(model.BankA, pin, dir); err != nil {
				return err
			}
		}
		for pin, dir := range h.cfg.Expander.BankB {
			if err := h.expander.SetDirection(model.BankB, pin, dir); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// readSensor dispatches a numeric read to channel (spec §3's channel-index
// mapping). The expander has no numeric channels.
func (h *deviceHandle) readSensor(channel int) (model.Dimensioned, error) {
	switch h.cfg.Kind {
	case model.KindBarometer:
		switch channel {
		case 0:
			v, err := h.barometer.Temperature()
			if err != nil {
				return model.Dimensioned{}, err
			}
			return model.DegCValue(v), nil
		case 1:
			v, err := h.barometer.Pressure()
			if err != nil {
				return model.Dimensioned{}, err
			}
			return model.KPaValue(v), nil
		default:
			return model.Dimensioned{}, &apperrors.OutOfBounds{Index: channel}
		}
	case model.KindTempSensor:
		if channel != 0 {
			return model.Dimensioned{}, &apperrors.OutOfBounds{Index: channel}
		}
		v, err := h.tempSens.Sense()
		if err != nil {
			return model.Dimensioned{}, err
		}
		return model.DegCValue(v), nil
	default:
		return model.Dimensioned{}, &apperrors.OutOfBounds{Index: channel}
	}
}

// bankAndPin maps a GPIO expander channel index 0..15 to (bank, pin) per
// spec §3: 0-7 are bank A pins 0-7, 8-15 are bank B pins 0-7.
func bankAndPin(channel int) (model.Bank, int, error) {
	switch {
	case channel >= 0 && channel <= 7:
		return model.BankA, channel, nil
	case channel >= 8 && channel <= 15:
		return model.BankB, channel - 8, nil
	default:
		return 0, 0, &apperrors.OutOfBounds{Index: channel}
	}
}

func (h *deviceHandle) readBool(channel int) (bool, error) {
	if h.cfg.Kind != model.KindGpioExpander {
		return false, &apperrors.OutOfBounds{Index: channel}
	}
	bank, pin, err := bankAndPin(channel)
	if err != nil {
		return false, err
	}
	return h.expander.ReadBool(bank, pin)
}

func (h *deviceHandle) writeBool(channel int, value bool) error {
	if h.cfg.Kind != model.KindGpioExpander {
		return &apperrors.InvalidPinDirection{Reason: "device has no writable channels"}
	}
	bank, pin, err := bankAndPin(channel)
	if err != nil {
		return err
	}
	return h.expander.WriteBool(bank, pin, value)
}

func (h *deviceHandle) setDirection(channel int, dir model.Direction) error {
	if h.cfg.Kind != model.KindGpioExpander {
		return &apperrors.InvalidPinDirection{Reason: "device has no pin directions"}
	}
	bank, pin, err := bankAndPin(channel)
	if err != nil {
		return err
	}
	return h.expander.SetDirection(bank, pin, dir)
}
