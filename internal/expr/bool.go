package expr

import (
	"github.com/pkg/errors"

	"github.com/homepi/controller/internal/apperrors"
)

// BoolExpr is the boolean expression tree (spec §3/§4.C). Comparisons
// >=/<= are named explicitly in spec §4.C's operator list though
// original_source/src/config/boolean.rs only carries </> — added here to
// match the distilled spec faithfully, implemented the same way as
// MoreThan/LessThan.
type BoolExpr interface{ isBoolExpr() }

type ConstBool bool

type Equal struct{ A, B ValueExpr }
type NotEqualZero struct{ A ValueExpr }
type EqualZero struct{ A ValueExpr }
type LessThan struct{ A, B ValueExpr }
type MoreThan struct{ A, B ValueExpr }
type LessOrEqual struct{ A, B ValueExpr }
type GreaterOrEqual struct{ A, B ValueExpr }
type Between struct{ A, B, C ValueExpr }
type EqualPlusOrMinus struct{ A, B, Tol ValueExpr }

type And struct{ A, B BoolExpr }
type Or struct{ A, B BoolExpr }
type Xor struct{ A, B BoolExpr }
type Not struct{ A BoolExpr }
type BoolEqual struct{ A, B BoolExpr }

type ReadBooleanInput struct{ ID string }

func (ConstBool) isBoolExpr()        {}
func (Equal) isBoolExpr()            {}
func (NotEqualZero) isBoolExpr()     {}
func (EqualZero) isBoolExpr()        {}
func (LessThan) isBoolExpr()         {}
func (MoreThan) isBoolExpr()         {}
func (LessOrEqual) isBoolExpr()      {}
func (GreaterOrEqual) isBoolExpr()   {}
func (Between) isBoolExpr()          {}
func (EqualPlusOrMinus) isBoolExpr() {}
func (And) isBoolExpr()              {}
func (Or) isBoolExpr()               {}
func (Xor) isBoolExpr()              {}
func (Not) isBoolExpr()              {}
func (BoolEqual) isBoolExpr()        {}
func (ReadBooleanInput) isBoolExpr() {}

// EvaluateBool evaluates a BoolExpr against ctx (spec §4.C). Comparisons
// delegate to EvaluateValue; and/or short-circuit.
func EvaluateBool(ctx Context, e BoolExpr) (bool, error) {
	switch b := e.(type) {
	case ConstBool:
		return bool(b), nil

	case ReadBooleanInput:
		return ctx.ReadInputBool(b.ID)

	case EqualZero:
		a, err := EvaluateValue(ctx, b.A)
		return a == 0, err

	case NotEqualZero:
		a, err := EvaluateValue(ctx, b.A)
		return a != 0, err

	case Equal:
		a, err := EvaluateValue(ctx, b.A)
		if err != nil {
			return false, err
		}
		bv, err := EvaluateValue(ctx, b.B)
		if err != nil {
			return false, err
		}
		return a == bv, nil

	case EqualPlusOrMinus:
		a, err := EvaluateValue(ctx, b.A)
		if err != nil {
			return false, err
		}
		bv, err := EvaluateValue(ctx, b.B)
		if err != nil {
			return false, err
		}
		tol, err := EvaluateValue(ctx, b.Tol)
		if err != nil {
			return false, err
		}
		diff := a - bv
		if diff < 0 {
			diff = -diff
		}
		return diff < tol, nil

	case MoreThan:
		a, err := EvaluateValue(ctx, b.A)
		if err != nil {
			return false, err
		}
		bv, err := EvaluateValue(ctx, b.B)
		if err != nil {
			return false, err
		}
		return a > bv, nil

	case LessThan:
		a, err := EvaluateValue(ctx, b.A)
		if err != nil {
			return false, err
		}
		bv, err := EvaluateValue(ctx, b.B)
		if err != nil {
			return false, err
		}
		return a < bv, nil

	case GreaterOrEqual:
		a, err := EvaluateValue(ctx, b.A)
		if err != nil {
			return false, err
		}
		bv, err := EvaluateValue(ctx, b.B)
		if err != nil {
			return false, err
		}
		return a >= bv, nil

	case LessOrEqual:
		a, err := EvaluateValue(ctx, b.A)
		if err != nil {
			return false, err
		}
		bv, err := EvaluateValue(ctx, b.B)
		if err != nil {
			return false, err
		}
		return a <= bv, nil

	case Between:
		a, err := EvaluateValue(ctx, b.A)
		if err != nil {
			return false, err
		}
		bv, err := EvaluateValue(ctx, b.B)
		if err != nil {
			return false, err
		}
		c, err := EvaluateValue(ctx, b.C)
		if err != nil {
			return false, err
		}
		return a <= bv && bv <= c, nil

	case And:
		a, err := EvaluateBool(ctx, b.A)
		if err != nil {
			return false, err
		}
		if !a {
			return false, nil
		}
		return EvaluateBool(ctx, b.B)

	case Or:
		a, err := EvaluateBool(ctx, b.A)
		if err != nil {
			return false, err
		}
		if a {
			return true, nil
		}
		return EvaluateBool(ctx, b.B)

	case Xor:
		a, err := EvaluateBool(ctx, b.A)
		if err != nil {
			return false, err
		}
		bv, err := EvaluateBool(ctx, b.B)
		if err != nil {
			return false, err
		}
		return a != bv, nil

	case Not:
		a, err := EvaluateBool(ctx, b.A)
		if err != nil {
			return false, err
		}
		return !a, nil

	case BoolEqual:
		a, err := EvaluateBool(ctx, b.A)
		if err != nil {
			return false, err
		}
		bv, err := EvaluateBool(ctx, b.B)
		if err != nil {
			return false, err
		}
		return a == bv, nil

	default:
		return false, errors.Errorf("expr: unknown BoolExpr %T", e)
	}
}

// ExtractWrappedValue implements spec §4.C's config-string entry point for
// numeric expressions: the system wraps user-supplied numeric text as
// `boolean(expr == 0)` before handing it to the external parser, then
// extracts the left operand back out for numeric evaluation. A parse that
// didn't come back in that shape is a ParseError.
func ExtractWrappedValue(parsed BoolExpr) (ValueExpr, error) {
	switch b := parsed.(type) {
	case EqualZero:
		return b.A, nil
	case Equal:
		if zero, ok := b.B.(ConstValue); ok && float64(zero) == 0 {
			return b.A, nil
		}
		return nil, &apperrors.ParseError{Cause: errors.New("expected expr == 0")}
	default:
		return nil, &apperrors.ParseError{Cause: errors.New("expected a boolean(expr == 0) wrapper")}
	}
}
