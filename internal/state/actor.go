// Package state implements the single-owner application actor described in
// spec §4.D/§4.E: one goroutine holds the device registry, input/output
// catalogues, current time, and bus serializer, and services a typed
// request mailbox plus a periodic automation sweep.
//
// Grounded on original_source/src/app/{state.rs,channel.rs}: state.rs's
// State struct and its add_device/remove_device/emit_automations methods map
// directly onto Actor and its request handlers; channel.rs's oneshot-backed
// message enum maps onto the request/reply pair in request.go. Where the
// Rust original runs State's methods directly on whatever thread calls them
// (synchronized by the caller owning a Mutex<State>), this package instead
// follows spec §4.D's explicit actor-with-mailbox design: one goroutine, one
// channel, everything else reaches in only through send.
package state

import (
	"time"

	"github.com/edaniels/golog"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/homepi/controller/internal/apperrors"
	"github.com/homepi/controller/internal/bus"
	"github.com/homepi/controller/internal/expr"
	"github.com/homepi/controller/internal/model"
	"github.com/homepi/controller/internal/storage"
)

// automationGate is the minimum interval between automation sweeps (spec
// §4.D/§9: "After processing each request, if more than 700 ms has elapsed
// since last emit, it runs the sweep").
const automationGate = 700 * time.Millisecond

// clockTick is the period of the actor's own wall-clock SetTime heartbeat,
// so automations keep evaluating even when no caller is sending requests.
const clockTick = 1 * time.Second

// Parser is the configuration-language collaborator named in spec §6: "A
// parser exposes parse_bool_expr(text) → BoolExpr". Its grammar is out of
// scope (spec §1's explicit Non-goal); the actor depends only on this
// narrow interface, matching the boundary-only treatment the spec gives
// every external collaborator in §6.
type Parser interface {
	ParseBoolExpr(text string) (expr.BoolExpr, error)
}

// Actor is the application state machine (spec §4.D). Construct with New
// and start its loop with Run; every other interaction goes through the
// exported request methods, which are safe to call concurrently from many
// goroutines.
type Actor struct {
	clock  clockwork.Clock
	bus    *bus.Serializer
	store  *storage.Storage
	parser Parser

	// credentials is the read-only user-id -> credential-hash map the
	// request-channel handle carries for the authentication collaborator
	// (spec §4.E/§6). The actor loop never touches it; CredentialHashFor
	// reads it directly.
	credentials map[string]string

	requests chan request

	devices map[string]*deviceHandle
	inputs  map[string]model.Input
	outputs map[string]model.Output

	now time.Time

	lastEmit  time.Time
	parsedAut map[string]expr.BoolExpr // output id -> cached parse of its automation text
}

// New constructs an Actor over the bus serializer phys (the serializer
// itself handles a physical bus that could not be opened at startup, per
// spec §4.A's degraded-start rule), loading every
// device/input/output record already present in store. credentials is the
// read-only user-id -> credential-hash map the handle carries for the
// authentication collaborator (spec §4.E); it may be nil. Call Run to start
// the actor loop.
func New(phys *bus.Serializer, store *storage.Storage, parser Parser, clock clockwork.Clock, credentials map[string]string) (*Actor, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	a := &Actor{
		clock:       clock,
		bus:         phys,
		store:       store,
		parser:      parser,
		credentials: credentials,
		requests:    make(chan request),
		devices:     map[string]*deviceHandle{},
		inputs:      map[string]model.Input{},
		outputs:     map[string]model.Output{},
		now:         clock.Now(),
		parsedAut:   map[string]expr.BoolExpr{},
	}
	for _, d := range store.ListDevices() {
		a.devices[d.ID] = newDeviceHandle(d, phys)
	}
	for _, in := range store.ListInputs() {
		a.inputs[in.ID] = in
	}
	for _, out := range store.ListOutputs() {
		a.outputs[out.ID] = out
	}
	for _, h := range a.devices {
		if h.cfg.Disabled {
			continue
		}
		if err := h.reset(); err != nil {
			// Spec §7/propagation policy: "Reset failures during startup are
			// reported but the system continues with the affected device in
			// a degraded state."
			golog.Global().Debugw("device reset failed at startup", "device", h.cfg.ID, "err", err)
		}
	}
	return a, nil
}

// Run drives the actor's mailbox and clock-tick loop until a Terminate
// request arrives or the mailbox itself is closed (spec §7: "Only mailbox-closure is
// treated as terminal for the actor loop"). It returns once the loop exits.
func (a *Actor) Run() {
	ticker := a.clock.NewTicker(clockTick)
	defer ticker.Stop()
	tickCh := ticker.Chan()

	for {
		select {
		case req, ok := <-a.requests:
			if !ok {
				return
			}
			if req.kind == reqTerminate {
				req.replyCh <- reply{}
				return
			}
			a.handle(req)
			a.maybeSweep()

		case t := <-tickCh:
			a.now = t
			a.maybeSweep()
		}
	}
}

// maybeSweep runs the automation pass if automationGate has elapsed since
// the last sweep (spec §4.D/§9).
func (a *Actor) maybeSweep() {
	if a.now.Sub(a.lastEmit) <= automationGate {
		return
	}
	a.lastEmit = a.now
	a.sweep()
}

// sweep evaluates every output's automation expression and writes the
// result, logging and continuing past any single output's failure (spec
// §4.D: "Parse and evaluation errors are logged and do not abort the
// sweep"). Iteration order over the output catalogue is whatever Go's map
// iteration gives, matching spec §9's "need not be stable across sweeps".
func (a *Actor) sweep() {
	for id, out := range a.outputs {
		if out.Automation == "" {
			continue
		}
		b, ok := a.parsedAut[id]
		if !ok {
			parsed, err := a.parser.ParseBoolExpr(out.Automation)
			if err != nil {
				golog.Global().Debugw("automation parse failed", "output", id, "err", err)
				continue
			}
			a.parsedAut[id] = parsed
			b = parsed
		}
		value, err := expr.EvaluateBool(a, b)
		if err != nil {
			golog.Global().Debugw("automation evaluation failed", "output", id, "err", err)
			continue
		}
		if err := a.writeOutputBool(out, value); err != nil {
			golog.Global().Debugw("automation write failed", "output", id, "err", err)
		}
	}
}

// writeOutputBool writes value to out's device channel, applying the
// active-low inversion at the output (not the driver) layer (spec §3/§4.D).
func (a *Actor) writeOutputBool(out model.Output, value bool) error {
	h, ok := a.devices[out.DeviceID]
	if !ok {
		return &apperrors.NonExistent{ID: out.DeviceID}
	}
	wire := value
	if out.ActiveLow {
		wire = !wire
	}
	return h.writeBool(out.Channel, wire)
}

// readOutputBool reads out's current logical value back, undoing the
// active-low inversion.
func (a *Actor) readOutputBool(out model.Output) (bool, error) {
	h, ok := a.devices[out.DeviceID]
	if !ok {
		return false, &apperrors.NonExistent{ID: out.DeviceID}
	}
	wire, err := h.readBool(out.Channel)
	if err != nil {
		return false, err
	}
	if out.ActiveLow {
		wire = !wire
	}
	return wire, nil
}

// Context implementation (internal/expr.Context), so the actor serves as
// its own expression-evaluation context (spec §4.C/§9: "not a global
// singleton").

func (a *Actor) Now() time.Time { return a.now }

func (a *Actor) ReadInputValue(id string) (float64, model.Unit, error) {
	in, ok := a.inputs[id]
	if !ok {
		return 0, 0, &apperrors.InputNotFound{ID: id}
	}
	h, ok := a.devices[in.DeviceID]
	if !ok {
		return 0, 0, &apperrors.NonExistent{ID: in.DeviceID}
	}
	d, err := h.readSensor(in.Channel)
	if err != nil {
		return 0, 0, err
	}
	if d.Err != nil {
		return 0, 0, d.Err
	}
	return d.Value, d.Unit, nil
}

func (a *Actor) ReadInputBool(id string) (bool, error) {
	in, ok := a.inputs[id]
	if !ok {
		return false, &apperrors.InputNotFound{ID: id}
	}
	h, ok := a.devices[in.DeviceID]
	if !ok {
		return false, &apperrors.NonExistent{ID: in.DeviceID}
	}
	return h.readBool(in.Channel)
}

var _ expr.Context = (*Actor)(nil)

// handle dispatches one request to its handler and delivers the reply
// non-blockingly (spec §4.E: "a reply the caller may have given up
// waiting on is dropped rather than blocking the actor"). Since every
// replyCh is buffered by one (see send in request.go), this send never
// actually blocks, but the select keeps that invariant explicit rather
// than implicit in the buffer size.
func (a *Actor) handle(req request) {
	r := a.dispatch(req)
	select {
	case req.replyCh <- r:
	default:
	}
}

func (a *Actor) dispatch(req request) reply {
	switch req.kind {
	case reqAddDevice:
		args := req.args.(addDeviceArgs)
		stored, err := a.store.AddDevice(args.device)
		if err != nil {
			return reply{err: err}
		}
		h := newDeviceHandle(stored, a.bus)
		if !stored.Disabled {
			if err := h.reset(); err != nil {
				golog.Global().Debugw("device reset failed on add", "device", stored.ID, "err", err)
			}
		}
		a.devices[stored.ID] = h
		return reply{device: stored}

	case reqRemoveDevice:
		args := req.args.(removeDeviceArgs)
		if err := a.store.RemoveDevice(args.id); err != nil {
			return reply{err: err}
		}
		delete(a.devices, args.id)
		for id, in := range a.inputs {
			if in.DeviceID == args.id {
				delete(a.inputs, id)
			}
		}
		for id, out := range a.outputs {
			if out.DeviceID == args.id {
				delete(a.outputs, id)
				delete(a.parsedAut, id)
			}
		}
		return reply{}

	case reqResetDevice:
		args := req.args.(resetDeviceArgs)
		h, ok := a.devices[args.id]
		if !ok {
			return reply{err: &apperrors.NonExistent{ID: args.id}}
		}
		return reply{err: h.reset()}

	case reqAddInput:
		args := req.args.(addInputArgs)
		stored, err := a.store.AddInput(args.input)
		if err != nil {
			return reply{err: err}
		}
		a.inputs[stored.ID] = stored
		return reply{input: stored}

	case reqAddOutput:
		args := req.args.(addOutputArgs)
		stored, err := a.store.AddOutput(args.output)
		if err != nil {
			return reply{err: err}
		}
		a.outputs[stored.ID] = stored
		return reply{output: stored}

	case reqRemoveInput:
		args := req.args.(removeInputArgs)
		if err := a.store.RemoveInput(args.id); err != nil {
			return reply{err: err}
		}
		delete(a.inputs, args.id)
		return reply{}

	case reqRemoveOutput:
		args := req.args.(removeOutputArgs)
		if err := a.store.RemoveOutput(args.id); err != nil {
			return reply{err: err}
		}
		delete(a.outputs, args.id)
		delete(a.parsedAut, args.id)
		return reply{}

	case reqUpdateOutput:
		args := req.args.(updateOutputArgs)
		out, err := a.store.UpdateOutput(args.id, func(o *model.Output) {
			if args.channel != nil {
				o.Channel = *args.channel
			}
			if args.activeLow != nil {
				o.ActiveLow = *args.activeLow
			}
			if args.automation != nil {
				o.Automation = *args.automation
			}
		})
		if err != nil {
			return reply{err: err}
		}
		a.outputs[out.ID] = out
		delete(a.parsedAut, out.ID) // source text may have changed; reparse lazily
		return reply{output: out}

	case reqReadBoolean:
		args := req.args.(readBooleanArgs)
		v, err := a.ReadInputBool(args.id)
		return reply{boolVal: v, err: err}

	case reqReadBooleans:
		args := req.args.(readBooleansArgs)
		out := make(map[string]bool, len(args.ids))
		for _, id := range args.ids {
			v, err := a.ReadInputBool(id)
			if err != nil {
				out[id] = false
				continue
			}
			out[id] = v
		}
		return reply{boolMap: out}

	case reqReadValue:
		args := req.args.(readValueArgs)
		v, unit, err := a.ReadInputValue(args.id)
		if err != nil {
			return reply{dimensioned: model.Err(err), err: err}
		}
		if unit != args.expectedUnit || a.inputs[args.id].Unit != args.expectedUnit {
			ue := &apperrors.UnitError{Expected: args.expectedUnit.String()}
			return reply{dimensioned: model.Err(ue), err: ue}
		}
		return reply{dimensioned: model.Dimensioned{Unit: unit, Value: v}, floatVal: v}

	case reqWriteBoolean:
		args := req.args.(writeBooleanArgs)
		out, ok := a.outputs[args.id]
		if !ok {
			return reply{err: &apperrors.OutputNotFound{ID: args.id}}
		}
		err := a.writeOutputBool(out, args.value)
		return reply{err: err}

	case reqCurrentOutputValue:
		args := req.args.(currentOutputValueArgs)
		out, ok := a.outputs[args.id]
		if !ok {
			return reply{err: &apperrors.OutputNotFound{ID: args.id}}
		}
		v, err := a.readOutputBool(out)
		return reply{boolVal: v, err: err}

	case reqEvaluateExpression:
		args := req.args.(evaluateExpressionArgs)
		v, err := expr.EvaluateValue(a, args.expr)
		return reply{floatVal: v, err: err}

	case reqEvaluateBoolExpression:
		args := req.args.(evaluateBoolExpressionArgs)
		v, err := expr.EvaluateBool(a, args.expr)
		return reply{boolVal: v, err: err}

	case reqGetTime:
		return reply{t: a.now}

	case reqSetTime:
		args := req.args.(setTimeArgs)
		a.now = args.t
		return reply{}

	case reqGetDevice:
		args := req.args.(getDeviceArgs)
		h, ok := a.devices[args.id]
		if !ok {
			return reply{err: &apperrors.NonExistent{ID: args.id}}
		}
		return reply{device: h.cfg}

	case reqGetDevices:
		out := make([]model.Device, 0, len(a.devices))
		for _, h := range a.devices {
			out = append(out, h.cfg)
		}
		return reply{devices: out}

	case reqGetInputs:
		out := make([]model.Input, 0, len(a.inputs))
		for _, in := range a.inputs {
			out = append(out, in)
		}
		return reply{inputs: out}

	case reqGetOutputs:
		out := make([]model.Output, 0, len(a.outputs))
		for _, o := range a.outputs {
			out = append(out, o)
		}
		return reply{outputs: out}

	case reqGetInputsForDevice:
		args := req.args.(getInputsForDeviceArgs)
		var out []model.Input
		for _, in := range a.inputs {
			if in.DeviceID == args.deviceID {
				out = append(out, in)
			}
		}
		return reply{inputs: out}

	case reqGetOutputsForDevice:
		args := req.args.(getOutputsForDeviceArgs)
		var out []model.Output
		for _, o := range a.outputs {
			if o.DeviceID == args.deviceID {
				out = append(out, o)
			}
		}
		return reply{outputs: out}

	case reqGetSlotsForDevice:
		args := req.args.(getSlotsForDeviceArgs)
		h, ok := a.devices[args.deviceID]
		if !ok {
			return reply{err: &apperrors.NonExistent{ID: args.deviceID}}
		}
		return reply{slots: slotsForKind(h.cfg.Kind)}

	default:
		return reply{err: errors.Errorf("state: unknown request kind %v", req.kind)}
	}
}

// slotsForKind lists the valid channel indices for a device kind (spec §3).
func slotsForKind(kind model.ModelKind) []int {
	switch kind {
	case model.KindBarometer:
		return []int{0, 1}
	case model.KindTempSensor:
		return []int{0}
	case model.KindGpioExpander:
		s := make([]int, 16)
		for i := range s {
			s[i] = i
		}
		return s
	default:
		return nil
	}
}
