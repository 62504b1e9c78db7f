package temporal

import (
	"math"
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
)

// Concrete lifted operators: temporal arithmetic, comparisons, boolean
// connectives and distance. Each builds a LiftedFuncInfo and hands it to
// the lifting engine.

// ArithOp enumerates the lifted arithmetic operators.
type ArithOp uint8

const (
	OpAdd ArithOp = iota + 1
	OpSub
	OpMult
	OpDiv
)

func (op ArithOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMult:
		return "*"
	case OpDiv:
		return "/"
	}
	return "?"
}

func numericResultType(a, b span.BaseType) (span.BaseType, error) {
	numeric := func(t span.BaseType) bool {
		return t == span.TypeInt32 || t == span.TypeInt64 || t == span.TypeFloat64
	}
	if !numeric(a) || !numeric(b) {
		return 0, terrors.New(terrors.UnsupportedOperation, "arithmetic over %s and %s", a, b)
	}
	if a == span.TypeFloat64 || b == span.TypeFloat64 {
		return span.TypeFloat64, nil
	}
	if a == span.TypeInt64 || b == span.TypeInt64 {
		return span.TypeInt64, nil
	}
	return span.TypeInt32, nil
}

func arithFn(op ArithOp, result span.BaseType) Func2 {
	return func(a, b span.Value, _ []span.Value) (span.Value, error) {
		if result == span.TypeFloat64 {
			x, y := a.AsFloat(), b.AsFloat()
			var r float64
			switch op {
			case OpAdd:
				r = x + y
			case OpSub:
				r = x - y
			case OpMult:
				r = x * y
			case OpDiv:
				if y == 0 {
					return span.Value{}, terrors.New(terrors.OutOfRange, "temporal division by zero")
				}
				r = x / y
			}
			return span.NewFloat64(r), nil
		}
		x, y := a.Int(), b.Int()
		var r int64
		switch op {
		case OpAdd:
			r = x + y
		case OpSub:
			r = x - y
		case OpMult:
			r = x * y
		case OpDiv:
			if y == 0 {
				return span.Value{}, terrors.New(terrors.OutOfRange, "temporal division by zero")
			}
			r = x / y
		}
		if result == span.TypeInt32 {
			return span.NewInt32(int32(r)), nil
		}
		return span.NewInt64(r), nil
	}
}

// multTurnpoint finds the vertex of the quadratic a(t)*b(t) between two
// synchronized linear segments.
func multTurnpoint(a1, a2, b1, b2 span.Value, t1, t2 time.Time) (time.Time, bool) {
	x1, x2 := a1.AsFloat(), a2.AsFloat()
	y1, y2 := b1.AsFloat(), b2.AsFloat()
	dx, dy := x2-x1, y2-y1
	den := 2 * dx * dy
	if den == 0 {
		return time.Time{}, false
	}
	f := -(x1*dy + y1*dx) / den
	if f <= 0 || f >= 1 {
		return time.Time{}, false
	}
	return timeAtFraction(t1, t2, f), true
}

func arithInfo(op ArithOp, at, bt span.BaseType) (*LiftedFuncInfo, error) {
	result, err := numericResultType(at, bt)
	if err != nil {
		return nil, err
	}
	info := &LiftedFuncInfo{
		Arity:      2,
		ArgTypes:   [2]span.BaseType{at, bt},
		ResultType: result,
		Fn2:        arithFn(op, result),
	}
	if op == OpMult || op == OpDiv {
		info.Turnpoint = multTurnpoint
	}
	return info, nil
}

// Arith applies a lifted arithmetic operator over two temporal numerics.
func Arith(a, b Temporal, op ArithOp) (Temporal, error) {
	info, err := arithInfo(op, a.BaseType(), b.BaseType())
	if err != nil {
		return nil, err
	}
	return TFuncTemporalTemporal(a, b, info)
}

// ArithValue applies a lifted arithmetic operator against a constant.
// invert computes v op tm instead of tm op v.
func ArithValue(tm Temporal, v span.Value, op ArithOp, invert bool) (Temporal, error) {
	info, err := arithInfo(op, tm.BaseType(), v.Type())
	if err != nil {
		return nil, err
	}
	info.Invert = invert
	return TFuncTemporalValue(tm, v, info)
}

// CompOp enumerates the lifted comparison operators.
type CompOp uint8

const (
	OpEq CompOp = iota + 1
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op CompOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

func compFn(op CompOp) Func2 {
	return func(a, b span.Value, _ []span.Value) (span.Value, error) {
		var r bool
		if op == OpEq || op == OpNe {
			eq := a.Equal(b)
			r = eq == (op == OpEq)
			return span.NewBool(r), nil
		}
		c := a.Compare(b)
		switch op {
		case OpLt:
			r = c < 0
		case OpLe:
			r = c <= 0
		case OpGt:
			r = c > 0
		case OpGe:
			r = c >= 0
		}
		return span.NewBool(r), nil
	}
}

// compSegmentIntersect finds the timestamp at which two synchronized
// linear segments become equal, the discontinuity point of every lifted
// comparison.
func compSegmentIntersect(a1, a2, b1, b2 span.Value, t1, t2 time.Time) (time.Time, bool) {
	f, ok := crossingFraction(a1, a2, b1, b2, a1.Type())
	if !ok {
		return time.Time{}, false
	}
	return timeAtFraction(t1, t2, f), true
}

func compInfo(op CompOp, at, bt span.BaseType) *LiftedFuncInfo {
	return &LiftedFuncInfo{
		Arity:            2,
		ArgTypes:         [2]span.BaseType{at, bt},
		ResultType:       span.TypeBool,
		Discont:          true,
		Fn2:              compFn(op),
		SegmentIntersect: compSegmentIntersect,
	}
}

// Compare applies a lifted comparison over two temporal values.
func Compare(a, b Temporal, op CompOp) (Temporal, error) {
	return TFuncTemporalTemporal(a, b, compInfo(op, a.BaseType(), b.BaseType()))
}

// CompareValue applies a lifted comparison against a constant. invert
// computes v op tm instead of tm op v.
func CompareValue(tm Temporal, v span.Value, op CompOp, invert bool) (Temporal, error) {
	info := compInfo(op, tm.BaseType(), v.Type())
	info.Invert = invert
	return TFuncTemporalValue(tm, v, info)
}

// EverCompareValue reports whether the comparison against the constant is
// satisfied at any point of the time domain, short-circuiting on the first
// hit.
func EverCompareValue(tm Temporal, v span.Value, op CompOp) (bool, error) {
	return EFuncTemporalValue(tm, v, compInfo(op, tm.BaseType(), v.Type()))
}

// AlwaysCompareValue reports whether the comparison holds over the whole
// time domain.
func AlwaysCompareValue(tm Temporal, v span.Value, op CompOp) (bool, error) {
	ever, err := EverCompareValue(tm, v, negateComp(op))
	if err != nil {
		return false, err
	}
	return !ever, nil
}

func negateComp(op CompOp) CompOp {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	}
	return op
}

// BoolOp enumerates the lifted boolean connectives.
type BoolOp uint8

const (
	OpAnd BoolOp = iota + 1
	OpOr
)

func boolFn(op BoolOp) Func2 {
	return func(a, b span.Value, _ []span.Value) (span.Value, error) {
		if a.Type() != span.TypeBool || b.Type() != span.TypeBool {
			return span.Value{}, terrors.New(terrors.UnsupportedOperation, "boolean connective over %s and %s", a.Type(), b.Type())
		}
		if op == OpAnd {
			return span.NewBool(a.Bool() && b.Bool()), nil
		}
		return span.NewBool(a.Bool() || b.Bool()), nil
	}
}

// Bool applies a lifted boolean connective over two temporal booleans.
func Bool(a, b Temporal, op BoolOp) (Temporal, error) {
	info := &LiftedFuncInfo{
		Arity:      2,
		ArgTypes:   [2]span.BaseType{span.TypeBool, span.TypeBool},
		ResultType: span.TypeBool,
		Fn2:        boolFn(op),
	}
	return TFuncTemporalTemporal(a, b, info)
}

// Not negates a temporal boolean.
func Not(tm Temporal) (Temporal, error) {
	info := &LiftedFuncInfo{
		Arity:      1,
		ArgTypes:   [2]span.BaseType{span.TypeBool},
		ResultType: span.TypeBool,
		Fn1: func(v span.Value, _ []span.Value) (span.Value, error) {
			return span.NewBool(!v.Bool()), nil
		},
	}
	return TFuncTemporal(tm, info)
}

func distanceFn(a, b span.Value, _ []span.Value) (span.Value, error) {
	if isPointType(a.Type()) {
		pa, pb := a.Point(), b.Point()
		dx, dy := pa.X-pb.X, pa.Y-pb.Y
		d := dx*dx + dy*dy
		if a.Type() == span.TypeGeom3D || a.Type() == span.TypeGeog3D {
			dz := pa.Z - pb.Z
			d += dz * dz
		}
		return span.NewFloat64(math.Sqrt(d)), nil
	}
	d, err := a.Distance(b)
	if err != nil {
		return span.Value{}, err
	}
	return span.NewFloat64(d), nil
}

// distanceTurnpoint finds the closest-approach timestamp between two
// synchronized linear segments: for numbers the crossing (distance zero),
// for points the minimum of the relative-motion quadratic.
func distanceTurnpoint(a1, a2, b1, b2 span.Value, t1, t2 time.Time) (time.Time, bool) {
	if isPointType(a1.Type()) {
		pa1, pa2, pb1, pb2 := a1.Point(), a2.Point(), b1.Point(), b2.Point()
		dpx, dpy, dpz := pa1.X-pb1.X, pa1.Y-pb1.Y, pa1.Z-pb1.Z
		dvx := (pa2.X - pa1.X) - (pb2.X - pb1.X)
		dvy := (pa2.Y - pa1.Y) - (pb2.Y - pb1.Y)
		dvz := (pa2.Z - pa1.Z) - (pb2.Z - pb1.Z)
		hasZ := a1.Type() == span.TypeGeom3D || a1.Type() == span.TypeGeog3D
		if !hasZ {
			dpz, dvz = 0, 0
		}
		den := dvx*dvx + dvy*dvy + dvz*dvz
		if den == 0 {
			return time.Time{}, false
		}
		f := -(dpx*dvx + dpy*dvy + dpz*dvz) / den
		if f <= 0 || f >= 1 {
			return time.Time{}, false
		}
		return timeAtFraction(t1, t2, f), true
	}
	f, ok := crossingFraction(a1, a2, b1, b2, a1.Type())
	if !ok {
		return time.Time{}, false
	}
	return timeAtFraction(t1, t2, f), true
}

func distanceInfo(at, bt span.BaseType) *LiftedFuncInfo {
	return &LiftedFuncInfo{
		Arity:              2,
		ArgTypes:           [2]span.BaseType{at, bt},
		ResultType:         span.TypeFloat64,
		ResultInterpLinear: at.Continuous() && bt.Continuous(),
		Fn2:                distanceFn,
		Turnpoint:          distanceTurnpoint,
	}
}

// Distance lifts the scalar distance between two temporal values of the
// same family.
func Distance(a, b Temporal) (Temporal, error) {
	return TFuncTemporalTemporal(a, b, distanceInfo(a.BaseType(), b.BaseType()))
}

// DistanceValue lifts the scalar distance against a constant.
func DistanceValue(tm Temporal, v span.Value) (Temporal, error) {
	return TFuncTemporalValue(tm, v, distanceInfo(tm.BaseType(), v.Type()))
}
