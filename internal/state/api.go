package state

import (
	"time"

	"github.com/homepi/controller/internal/expr"
	"github.com/homepi/controller/internal/model"
)

// AddDevice registers a new device (spec §4.D). The driver's reset
// procedure runs immediately unless the device is disabled; a reset
// failure is logged, not returned,
// matching the startup degraded-state rule.
func (a *Actor) AddDevice(d model.Device) (model.Device, error) {
	r := a.send(reqAddDevice, addDeviceArgs{device: d})
	return r.device, r.err
}

// RemoveDevice deletes a device and cascades to its inputs and outputs.
func (a *Actor) RemoveDevice(id string) error {
	return a.send(reqRemoveDevice, removeDeviceArgs{id: id}).err
}

// ResetDevice re-runs a device's driver reset procedure.
func (a *Actor) ResetDevice(id string) error {
	return a.send(reqResetDevice, resetDeviceArgs{id: id}).err
}

// AddInput registers a new readable channel on an existing device.
func (a *Actor) AddInput(in model.Input) (model.Input, error) {
	r := a.send(reqAddInput, addInputArgs{input: in})
	return r.input, r.err
}

// AddOutput registers a new writable channel on an existing device.
func (a *Actor) AddOutput(out model.Output) (model.Output, error) {
	r := a.send(reqAddOutput, addOutputArgs{output: out})
	return r.output, r.err
}

// RemoveInput deletes an input record.
func (a *Actor) RemoveInput(id string) error {
	return a.send(reqRemoveInput, removeInputArgs{id: id}).err
}

// RemoveOutput deletes an output record.
func (a *Actor) RemoveOutput(id string) error {
	return a.send(reqRemoveOutput, removeOutputArgs{id: id}).err
}

// UpdateOutput applies an optional channel/active-low/automation-text
// change to an existing output. A nil pointer leaves that field unchanged.
func (a *Actor) UpdateOutput(id string, channel *int, activeLow *bool, automation *string) (model.Output, error) {
	r := a.send(reqUpdateOutput, updateOutputArgs{id: id, channel: channel, activeLow: activeLow, automation: automation})
	return r.output, r.err
}

// ReadBoolean resolves an input to its device/driver and returns its bit.
func (a *Actor) ReadBoolean(id string) (bool, error) {
	r := a.send(reqReadBoolean, readBooleanArgs{id: id})
	return r.boolVal, r.err
}

// ReadBooleans reads several boolean inputs in one mailbox round trip.
// Inputs that error are reported as false in the map; callers that need
// per-input errors should use ReadBoolean individually.
func (a *Actor) ReadBooleans(ids []string) map[string]bool {
	r := a.send(reqReadBooleans, readBooleansArgs{ids: ids})
	return r.boolMap
}

// ReadValue resolves a numeric input, failing with a unit error if the
// input's declared unit, or the unit the device reports for it, doesn't
// match expectedUnit.
func (a *Actor) ReadValue(id string, expectedUnit model.Unit) model.Dimensioned {
	r := a.send(reqReadValue, readValueArgs{id: id, expectedUnit: expectedUnit})
	return r.dimensioned
}

// WriteBoolean writes value to an output, applying active-low inversion at
// the output layer.
func (a *Actor) WriteBoolean(id string, value bool) error {
	return a.send(reqWriteBoolean, writeBooleanArgs{id: id, value: value}).err
}

// CurrentOutputValue reads an output's current logical value back.
func (a *Actor) CurrentOutputValue(id string) (bool, error) {
	r := a.send(reqCurrentOutputValue, currentOutputValueArgs{id: id})
	return r.boolVal, r.err
}

// EvaluateExpression evaluates a pre-parsed numeric expression tree against
// the actor's live state.
func (a *Actor) EvaluateExpression(e expr.ValueExpr) (float64, error) {
	r := a.send(reqEvaluateExpression, evaluateExpressionArgs{expr: e})
	return r.floatVal, r.err
}

// EvaluateBoolExpression evaluates a pre-parsed boolean expression tree
// against the actor's live state.
func (a *Actor) EvaluateBoolExpression(e expr.BoolExpr) (bool, error) {
	r := a.send(reqEvaluateBoolExpression, evaluateBoolExpressionArgs{expr: e})
	return r.boolVal, r.err
}

// GetTime returns the actor's current notion of wall-clock time.
func (a *Actor) GetTime() time.Time {
	return a.send(reqGetTime, nil).t
}

// SetTime overrides the actor's clock. The actor's own 1-second ticker
// advances the clock inside Run, not through this request.
func (a *Actor) SetTime(t time.Time) {
	a.send(reqSetTime, setTimeArgs{t: t})
}

// GetDevice returns a single device record.
func (a *Actor) GetDevice(id string) (model.Device, error) {
	r := a.send(reqGetDevice, getDeviceArgs{id: id})
	return r.device, r.err
}

// GetDevices lists every registered device.
func (a *Actor) GetDevices() []model.Device {
	return a.send(reqGetDevices, nil).devices
}

// GetInputs lists every registered input.
func (a *Actor) GetInputs() []model.Input {
	return a.send(reqGetInputs, nil).inputs
}

// GetOutputs lists every registered output.
func (a *Actor) GetOutputs() []model.Output {
	return a.send(reqGetOutputs, nil).outputs
}

// GetInputsForDevice lists the inputs registered against deviceID.
func (a *Actor) GetInputsForDevice(deviceID string) []model.Input {
	return a.send(reqGetInputsForDevice, getInputsForDeviceArgs{deviceID: deviceID}).inputs
}

// GetOutputsForDevice lists the outputs registered against deviceID.
func (a *Actor) GetOutputsForDevice(deviceID string) []model.Output {
	return a.send(reqGetOutputsForDevice, getOutputsForDeviceArgs{deviceID: deviceID}).outputs
}

// GetSlotsForDevice lists the valid channel indices for a device.
func (a *Actor) GetSlotsForDevice(deviceID string) ([]int, error) {
	r := a.send(reqGetSlotsForDevice, getSlotsForDeviceArgs{deviceID: deviceID})
	return r.slots, r.err
}

// Terminate stops the actor loop. It is the only request kind Run treats as
// terminal besides the mailbox channel itself closing (spec §7).
func (a *Actor) Terminate() {
	a.send(reqTerminate, nil)
}

// CredentialHashFor resolves a user identifier to its credential hash for
// the authentication collaborator (spec §4.E/§6: "The request-channel
// handle exposes credential_hash_for(user_id) → optional hash. The core
// does not verify credentials itself."). It reads the handle's read-only
// map directly rather than going through the mailbox: the map never
// changes after New, so no actor-owned state is at risk.
func (a *Actor) CredentialHashFor(userID string) (string, bool) {
	hash, ok := a.credentials[userID]
	return hash, ok
}
