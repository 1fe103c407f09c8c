// Package expr implements the typed expression engine described in spec
// §4.C: two mutually recursive evaluators, ValueExpr and BoolExpr, evaluated
// against a Context that exposes the current wall-clock time and two
// input-reading capabilities. Grounded on
// original_source/src/config/{value.rs,boolean.rs,sched.rs}.
package expr

import (
	"time"

	"github.com/homepi/controller/internal/model"
)

// Context is implemented by the state actor (internal/state.Actor). It is
// deliberately not a global singleton (spec §9) so tests can substitute a
// mock that stubs ReadInputValue/ReadInputBool and controls the clock.
type Context interface {
	Now() time.Time
	ReadInputValue(id string) (float64, model.Unit, error)
	ReadInputBool(id string) (bool, error)
}
