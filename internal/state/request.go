package state

import (
	"time"

	"github.com/homepi/controller/internal/expr"
	"github.com/homepi/controller/internal/model"
)

// requestKind tags which operation a request carries, covering every entry
// in spec §4.D's request table.
type requestKind int

const (
	reqAddDevice requestKind = iota
	reqRemoveDevice
	reqResetDevice
	reqAddInput
	reqAddOutput
	reqRemoveInput
	reqRemoveOutput
	reqUpdateOutput
	reqReadBoolean
	reqReadBooleans
	reqReadValue
	reqWriteBoolean
	reqCurrentOutputValue
	reqEvaluateExpression
	reqEvaluateBoolExpression
	reqGetTime
	reqSetTime
	reqGetDevice
	reqGetDevices
	reqGetInputs
	reqGetOutputs
	reqGetInputsForDevice
	reqGetOutputsForDevice
	reqGetSlotsForDevice
	reqTerminate
)

// reply is the single-use, typed result of a request. Only the field(s)
// relevant to the originating requestKind are populated.
type reply struct {
	err error

	dimensioned model.Dimensioned
	boolVal     bool
	boolMap     map[string]bool
	floatVal    float64
	t           time.Time

	device  model.Device
	devices []model.Device
	input   model.Input
	inputs  []model.Input
	output  model.Output
	outputs []model.Output
	slots   []int
}

// request is one message in the actor's mailbox. replyCh is buffered by one
// so the actor's send never blocks on a caller that gave up waiting.
type request struct {
	kind requestKind
	args any
	replyCh chan reply
}

type addDeviceArgs struct{ device model.Device }
type removeDeviceArgs struct{ id string }
type resetDeviceArgs struct{ id string }
type addInputArgs struct{ input model.Input }
type addOutputArgs struct{ output model.Output }
type removeInputArgs struct{ id string }
type removeOutputArgs struct{ id string }
type updateOutputArgs struct {
	id         string
	channel    *int
	activeLow  *bool
	automation *string
}
type readBooleanArgs struct{ id string }
type readBooleansArgs struct{ ids []string }
type readValueArgs struct {
	id           string
	expectedUnit model.Unit
}
type writeBooleanArgs struct {
	id    string
	value bool
}
type currentOutputValueArgs struct{ id string }
type evaluateExpressionArgs struct{ expr expr.ValueExpr }
type evaluateBoolExpressionArgs struct{ expr expr.BoolExpr }
type setTimeArgs struct{ t time.Time }
type getDeviceArgs struct{ id string }
type getInputsForDeviceArgs struct{ deviceID string }
type getOutputsForDeviceArgs struct{ deviceID string }
type getSlotsForDeviceArgs struct{ deviceID string }

// send submits req to the actor's mailbox and waits for its reply. Exported
// methods on Actor build the args and call this.
func (a *Actor) send(kind requestKind, args any) reply {
	replyCh := make(chan reply, 1)
	a.requests <- request{kind: kind, args: args, replyCh: replyCh}
	return <-replyCh
}
