package state

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/homepi/controller/internal/apperrors"
	"github.com/homepi/controller/internal/bus"
	"github.com/homepi/controller/internal/expr"
	"github.com/homepi/controller/internal/model"
	"github.com/homepi/controller/internal/storage"
)

// lenientBus is an i2c.Bus that accepts every transaction and answers every
// read with zeroed bytes. It stands in for a real bus in actor-level tests
// that exercise mailbox/cascade/sweep plumbing rather than a specific
// driver's register arithmetic.
type lenientBus struct{}

func (lenientBus) String() string { return "lenient" }
func (lenientBus) Speed(hz int64) error { return nil }
func (lenientBus) Tx(addr uint16, w, r []byte) error {
	for i := range r {
		r[i] = 0
	}
	return nil
}

// stubParser maps automation source text to a pre-built expr.BoolExpr,
// standing in for the external grammar parser spec §6 places out of scope.
type stubParser struct {
	exprs map[string]expr.BoolExpr
}

func (p *stubParser) ParseBoolExpr(text string) (expr.BoolExpr, error) {
	e, ok := p.exprs[text]
	if !ok {
		return nil, apperrors.NewParseError(nil)
	}
	return e, nil
}

func newTestActor(t *testing.T, clock clockwork.Clock, parser Parser) *Actor {
	t.Helper()
	store := storage.New()
	if parser == nil {
		parser = &stubParser{exprs: map[string]expr.BoolExpr{}}
	}
	serializer := bus.New(lenientBus{})
	t.Cleanup(serializer.Close)
	a, err := New(serializer, store, parser, clock, nil)
	if err != nil {
		t.Fatalf("new actor: %v", err)
	}
	go a.Run()
	t.Cleanup(a.Terminate)
	return a
}

// Spec §4.E/§6: the handle exposes credential_hash_for(user_id) against
// the read-only map it was constructed with, without the core verifying
// anything itself.
func TestCredentialHashFor(t *testing.T) {
	store := storage.New()
	a, err := New(nil, store, &stubParser{exprs: map[string]expr.BoolExpr{}}, clockwork.NewFakeClock(),
		map[string]string{"alice": "hash-of-alices-password"})
	if err != nil {
		t.Fatalf("new actor: %v", err)
	}

	hash, ok := a.CredentialHashFor("alice")
	if !ok || hash != "hash-of-alices-password" {
		t.Fatalf("expected alice's hash, got %q, ok=%v", hash, ok)
	}
	if _, ok := a.CredentialHashFor("bob"); ok {
		t.Fatal("expected no hash for an unknown user")
	}
}

// S1 from spec §8: add a temp sensor, add a DegC input on its single
// channel, read it back through the full mailbox round trip.
func TestReadValueRoundTripPlumbing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := newTestActor(t, clock, nil)

	dev, err := a.AddDevice(model.Device{
		Kind:     model.KindTempSensor,
		TempSens: model.TempSensorModel{Addr: 0x18},
	})
	if err != nil {
		t.Fatalf("add device: %v", err)
	}
	in, err := a.AddInput(model.Input{DeviceID: dev.ID, Channel: 0, Unit: model.DegC})
	if err != nil {
		t.Fatalf("add input: %v", err)
	}

	d := a.ReadValue(in.ID, model.DegC)
	if d.Err != nil {
		t.Fatalf("unexpected error: %v", d.Err)
	}
	if d.Value != 0 {
		t.Fatalf("expected 0.0 degC from an all-zero register, got %v", d.Value)
	}
}

// S6 from spec §8 at the actor level: requesting a unit the input wasn't
// declared with fails with a unit error even though the underlying read
// itself succeeds.
func TestReadValueUnitMismatchAtActor(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := newTestActor(t, clock, nil)

	dev, err := a.AddDevice(model.Device{Kind: model.KindTempSensor, TempSens: model.TempSensorModel{Addr: 0x18}})
	if err != nil {
		t.Fatalf("add device: %v", err)
	}
	in, err := a.AddInput(model.Input{DeviceID: dev.ID, Channel: 0, Unit: model.DegC})
	if err != nil {
		t.Fatalf("add input: %v", err)
	}

	d := a.ReadValue(in.ID, model.KPa)
	if _, ok := d.Err.(*apperrors.UnitError); !ok {
		t.Fatalf("expected UnitError, got %v", d.Err)
	}
}

// Invariant 1 from spec §8: removing a device cascades to every input and
// output that references it, so no input or output is left dangling.
func TestRemoveDeviceCascadesAtActor(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := newTestActor(t, clock, nil)

	dev, err := a.AddDevice(model.Device{Kind: model.KindGpioExpander, Expander: model.GpioExpanderModel{Addr: 0x20}})
	if err != nil {
		t.Fatalf("add device: %v", err)
	}
	in, err := a.AddInput(model.Input{DeviceID: dev.ID, Channel: 0, Unit: model.Boolean})
	if err != nil {
		t.Fatalf("add input: %v", err)
	}
	out, err := a.AddOutput(model.Output{DeviceID: dev.ID, Channel: 1})
	if err != nil {
		t.Fatalf("add output: %v", err)
	}

	if err := a.RemoveDevice(dev.ID); err != nil {
		t.Fatalf("remove device: %v", err)
	}

	for _, i := range a.GetInputs() {
		if i.ID == in.ID {
			t.Fatal("expected input to be cascade-deleted")
		}
	}
	for _, o := range a.GetOutputs() {
		if o.ID == out.ID {
			t.Fatal("expected output to be cascade-deleted")
		}
	}
	if _, err := a.ReadBoolean(in.ID); err == nil {
		t.Fatal("expected reading a cascade-deleted input to fail")
	}
}

// S4 from spec §8: an output with an automation expression flips as the
// actor's clock crosses the expression's threshold, once the 700ms sweep
// gate has elapsed.
func TestAutomationSweepFollowsClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	daytime := expr.And{
		A: expr.MoreThan{A: expr.HourOfDay{}, B: expr.ConstValue(6)},
		B: expr.LessThan{A: expr.HourOfDay{}, B: expr.ConstValue(20)},
	}
	parser := &stubParser{exprs: map[string]expr.BoolExpr{"daytime": daytime}}
	a := newTestActor(t, clock, parser)

	dev, err := a.AddDevice(model.Device{Kind: model.KindGpioExpander, Expander: model.GpioExpanderModel{Addr: 0x20}})
	if err != nil {
		t.Fatalf("add device: %v", err)
	}
	out, err := a.AddOutput(model.Output{DeviceID: dev.ID, Channel: 0, Automation: "daytime"})
	if err != nil {
		t.Fatalf("add output: %v", err)
	}

	noon := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	a.SetTime(noon)
	clock.Advance(800 * time.Millisecond)
	waitForSweep(a)

	v, err := a.CurrentOutputValue(out.ID)
	if err != nil {
		t.Fatalf("current output value: %v", err)
	}
	if !v {
		t.Fatal("expected the daytime automation to be true at noon")
	}

	night := time.Date(2024, 6, 15, 22, 0, 0, 0, time.UTC)
	a.SetTime(night)
	clock.Advance(800 * time.Millisecond)
	waitForSweep(a)

	v, err = a.CurrentOutputValue(out.ID)
	if err != nil {
		t.Fatalf("current output value: %v", err)
	}
	if v {
		t.Fatal("expected the daytime automation to be false at 22:00")
	}
}

// waitForSweep gives the actor goroutine a chance to drain its ticker
// channel and run a sweep after the fake clock advances; a round trip
// through the mailbox guarantees the actor has processed everything queued
// ahead of this call.
func waitForSweep(a *Actor) {
	_ = a.GetTime()
}

// Invariant 6 from spec §8: the actor's clock is monotonic across SetTime
// events driven by its own ticker (never runs backwards under normal
// advancement).
func TestClockAdvancesMonotonically(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := newTestActor(t, clock, nil)

	first := a.GetTime()
	clock.Advance(2 * time.Second)
	waitForSweep(a)
	second := a.GetTime()
	if second.Before(first) {
		t.Fatalf("clock went backwards: %v then %v", first, second)
	}
}
