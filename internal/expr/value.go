package expr

import (
	"time"

	"github.com/pkg/errors"

	"github.com/homepi/controller/internal/apperrors"
	"github.com/homepi/controller/internal/model"
)

// ValueExpr is the numeric expression tree (spec §3/§4.C). It has no
// methods of its own; EvaluateValue dispatches on the concrete type, in the
// spirit of spec §9's "tagged variant over concrete driver states" note
// applied here to expression nodes instead of device drivers.
type ValueExpr interface{ isValueExpr() }

type ConstValue float64

type ReadInput struct {
	ID           string
	ExpectedUnit model.Unit
}

type Add struct{ A, B ValueExpr }
type Sub struct{ A, B ValueExpr }
type Mul struct{ A, B ValueExpr }

// Div(a,b) = Mul(a, Inverse(b)), fail-on-zero-divisor — resolved Open
// Question, spec §9: the source has two variants that diverge (one
// includes Div, the other omits it in favor of Inverse/Mul); the richer set
// is implemented here, with Div defined in terms of Inverse.
type Div struct{ A, B ValueExpr }
type Inverse struct{ A ValueExpr }
type Trunc struct{ A ValueExpr }

// Lerp is linear interpolation A*(1-t) + B*t.
type Lerp struct{ A, T, B ValueExpr }

// Linear is the affine transform A*X + B.
type Linear struct{ A, X, B ValueExpr }

type HourOfDay struct{}
type DayOfYear struct{}
type MonthOfYear struct{}
type WeekDayFromMonday struct{}
type Year struct{}
type DayOfMonth struct{}

type NoonSunDeclinationAngle struct{ DayOfYear ValueExpr }
type HourAngleSunrise struct{ Lat, DayOfYear ValueExpr }
type HoursOfDaylight struct{ Lat, DayOfYear ValueExpr }
type HourOfSunrise struct{ Lat, Long, DayOfYear ValueExpr }
type HourOfSunset struct{ Lat, Long, DayOfYear ValueExpr }
type OffsetForLong struct{ Long ValueExpr }

func (ConstValue) isValueExpr()              {}
func (ReadInput) isValueExpr()               {}
func (Add) isValueExpr()                     {}
func (Sub) isValueExpr()                     {}
func (Mul) isValueExpr()                     {}
func (Div) isValueExpr()                     {}
func (Inverse) isValueExpr()                 {}
func (Trunc) isValueExpr()                   {}
func (Lerp) isValueExpr()                    {}
func (Linear) isValueExpr()                  {}
func (HourOfDay) isValueExpr()               {}
func (DayOfYear) isValueExpr()               {}
func (MonthOfYear) isValueExpr()             {}
func (WeekDayFromMonday) isValueExpr()       {}
func (Year) isValueExpr()                    {}
func (DayOfMonth) isValueExpr()              {}
func (NoonSunDeclinationAngle) isValueExpr() {}
func (HourAngleSunrise) isValueExpr()        {}
func (HoursOfDaylight) isValueExpr()         {}
func (HourOfSunrise) isValueExpr()           {}
func (HourOfSunset) isValueExpr()            {}
func (OffsetForLong) isValueExpr()           {}

// EvaluateValue evaluates a ValueExpr against ctx (spec §4.C).
func EvaluateValue(ctx Context, e ValueExpr) (float64, error) {
	switch v := e.(type) {
	case ConstValue:
		return float64(v), nil

	case ReadInput:
		val, unit, err := ctx.ReadInputValue(v.ID)
		if err != nil {
			return 0, err
		}
		if unit != v.ExpectedUnit {
			return 0, &apperrors.UnitError{Expected: v.ExpectedUnit.String()}
		}
		return val, nil

	case Add:
		a, err := EvaluateValue(ctx, v.A)
		if err != nil {
			return 0, err
		}
		b, err := EvaluateValue(ctx, v.B)
		if err != nil {
			return 0, err
		}
		return a + b, nil

	case Sub:
		a, err := EvaluateValue(ctx, v.A)
		if err != nil {
			return 0, err
		}
		b, err := EvaluateValue(ctx, v.B)
		if err != nil {
			return 0, err
		}
		return a - b, nil

	case Mul:
		a, err := EvaluateValue(ctx, v.A)
		if err != nil {
			return 0, err
		}
		b, err := EvaluateValue(ctx, v.B)
		if err != nil {
			return 0, err
		}
		return a * b, nil

	case Div:
		return EvaluateValue(ctx, Mul{A: v.A, B: Inverse{A: v.B}})

	case Inverse:
		a, err := EvaluateValue(ctx, v.A)
		if err != nil {
			return 0, err
		}
		if a == 0 {
			return 0, errors.New("expr: division by zero")
		}
		return 1.0 / a, nil

	case Trunc:
		a, err := EvaluateValue(ctx, v.A)
		if err != nil {
			return 0, err
		}
		return float64(int64(a)), nil

	case Lerp:
		a, err := EvaluateValue(ctx, v.A)
		if err != nil {
			return 0, err
		}
		t, err := EvaluateValue(ctx, v.T)
		if err != nil {
			return 0, err
		}
		b, err := EvaluateValue(ctx, v.B)
		if err != nil {
			return 0, err
		}
		return a*(1-t) + b*t, nil

	case Linear:
		a, err := EvaluateValue(ctx, v.A)
		if err != nil {
			return 0, err
		}
		x, err := EvaluateValue(ctx, v.X)
		if err != nil {
			return 0, err
		}
		b, err := EvaluateValue(ctx, v.B)
		if err != nil {
			return 0, err
		}
		return a*x + b, nil

	case HourOfDay:
		return hourOfDay(ctx.Now()), nil

	case DayOfYear:
		now := ctx.Now()
		return float64(now.YearDay()) + hourOfDay(now)/24, nil

	case MonthOfYear:
		return float64(ctx.Now().Month()), nil

	case WeekDayFromMonday:
		wd := ctx.Now().Weekday()
		if wd == time.Sunday {
			return 7, nil
		}
		return float64(wd), nil

	case Year:
		return float64(ctx.Now().Year()), nil

	case DayOfMonth:
		return float64(ctx.Now().Day()), nil

	case NoonSunDeclinationAngle:
		doy, err := EvaluateValue(ctx, v.DayOfYear)
		if err != nil {
			return 0, err
		}
		return noonDeclSun(doy), nil

	case HourAngleSunrise:
		lat, err := EvaluateValue(ctx, v.Lat)
		if err != nil {
			return 0, err
		}
		doy, err := EvaluateValue(ctx, v.DayOfYear)
		if err != nil {
			return 0, err
		}
		return radToDeg(hourAngleSunrise(degToRad(lat), noonDeclSun(doy))), nil

	case HoursOfDaylight:
		lat, err := EvaluateValue(ctx, v.Lat)
		if err != nil {
			return 0, err
		}
		doy, err := EvaluateValue(ctx, v.DayOfYear)
		if err != nil {
			return 0, err
		}
		return dayLengthHrs(lat, doy), nil

	case OffsetForLong:
		long, err := EvaluateValue(ctx, v.Long)
		if err != nil {
			return 0, err
		}
		return exactOffsetHours(long), nil

	case HourOfSunrise:
		return evalSolarEvent(ctx, v.Lat, v.Long, v.DayOfYear, false)

	case HourOfSunset:
		return evalSolarEvent(ctx, v.Lat, v.Long, v.DayOfYear, true)

	default:
		return 0, errors.Errorf("expr: unknown ValueExpr %T", e)
	}
}

func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// evalSolarEvent computes the local hour-of-day of sunrise (sunset=false)
// or sunset (sunset=true) at the given latitude/longitude and day-of-year,
// anchored at midnight in the fixed UTC offset implied by the longitude,
// and reported in ctx's timezone (spec §4.C).
func evalSolarEvent(ctx Context, latExpr, longExpr, doyExpr ValueExpr, sunset bool) (float64, error) {
	lat, err := EvaluateValue(ctx, latExpr)
	if err != nil {
		return 0, err
	}
	long, err := EvaluateValue(ctx, longExpr)
	if err != nil {
		return 0, err
	}
	doy, err := EvaluateValue(ctx, doyExpr)
	if err != nil {
		return 0, err
	}

	now := ctx.Now()
	h := radToDeg(hourAngleSunrise(degToRad(lat), noonDeclSun(doy))) / 15

	var solarOffsetSec float64
	if sunset {
		solarOffsetSec = (12 + h) * 3600
	} else {
		solarOffsetSec = (12 - h) * 3600
	}

	exactOffsetSec := int(exactOffsetHours(long) * 3600)
	loc := time.FixedZone("solar", exactOffsetSec)
	midnight := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc).AddDate(0, 0, int(doy)-1)
	solarDt := midnight.Add(time.Duration(solarOffsetSec) * time.Second)
	local := solarDt.In(now.Location())
	return hourOfDay(local), nil
}
