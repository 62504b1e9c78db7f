package temporal

import (
	"math"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// Bounding boxes of temporal values, computed on demand (values do not
// cache them): the plain bounding period for bool/text payloads, TBox for
// numerics, STBox for points. Restriction and the binary span operators
// test these first and bail out on trivial reject.

// TBox bounds a temporal numeric in value and time.
type TBox struct {
	ValueSpan span.Span
	Period    timeset.Period
}

// STBox bounds a temporal point in space and time.
type STBox struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
	HasZ       bool
	Geodetic   bool
	SRID       int32
	Period     timeset.Period
}

// NewTBox computes the numeric-temporal bounding box of tm, whose base type
// must be i32, i64 or f64.
func NewTBox(tm Temporal) (TBox, error) {
	bt := tm.BaseType()
	if bt != span.TypeInt32 && bt != span.TypeInt64 && bt != span.TypeFloat64 {
		return TBox{}, terrors.New(terrors.UnsupportedOperation, "numeric bounding box over %s", bt)
	}
	min, max := tm.InstantN(0).value, tm.InstantN(0).value
	for i := 1; i < tm.NumInstants(); i++ {
		v := tm.InstantN(i).value
		if v.Less(min) {
			min = v
		}
		if max.Less(v) {
			max = v
		}
	}
	vs, err := span.New(min, max, true, true)
	if err != nil {
		return TBox{}, err
	}
	return TBox{ValueSpan: vs, Period: tm.Period()}, nil
}

func (b TBox) Overlaps(o TBox) bool {
	return b.ValueSpan.Overlaps(o.ValueSpan) && b.Period.Overlaps(o.Period)
}

func (b TBox) Contains(o TBox) bool {
	return b.ValueSpan.Contains(o.ValueSpan) && b.Period.Contains(o.Period)
}

// ExtendToInclude grows the box in place to cover o.
func (b *TBox) ExtendToInclude(o TBox) {
	b.ValueSpan.ExtendToInclude(o.ValueSpan)
	b.Period.ExtendToInclude(o.Period)
}

// NewSTBox computes the spatiotemporal bounding box of a temporal point.
func NewSTBox(tm Temporal) (STBox, error) {
	if !isPointType(tm.BaseType()) {
		return STBox{}, terrors.New(terrors.UnsupportedOperation, "spatiotemporal bounding box over %s", tm.BaseType())
	}
	flags := tm.Flags()
	first := tm.InstantN(0).value.Point()
	box := STBox{
		XMin: first.X, XMax: first.X,
		YMin: first.Y, YMax: first.Y,
		ZMin: first.Z, ZMax: first.Z,
		HasZ:     flags.HasZ(),
		Geodetic: flags.Geodetic(),
		SRID:     first.SRID,
		Period:   tm.Period(),
	}
	for i := 1; i < tm.NumInstants(); i++ {
		p := tm.InstantN(i).value.Point()
		box.XMin = math.Min(box.XMin, p.X)
		box.XMax = math.Max(box.XMax, p.X)
		box.YMin = math.Min(box.YMin, p.Y)
		box.YMax = math.Max(box.YMax, p.Y)
		box.ZMin = math.Min(box.ZMin, p.Z)
		box.ZMax = math.Max(box.ZMax, p.Z)
	}
	return box, nil
}

// ContainsPoint applies the closed-box point test. With borderInc false the
// max faces are treated as outside, which keeps at/minus restrictions
// complementary when adjacent boxes tile space.
func (b STBox) ContainsPoint(p span.Point, borderInc bool) bool {
	inMax := func(v, max float64) bool {
		if borderInc {
			return v <= max
		}
		return v < max
	}
	if p.X < b.XMin || !inMax(p.X, b.XMax) {
		return false
	}
	if p.Y < b.YMin || !inMax(p.Y, b.YMax) {
		return false
	}
	if b.HasZ && (p.Z < b.ZMin || !inMax(p.Z, b.ZMax)) {
		return false
	}
	return true
}

func (b STBox) Overlaps(o STBox) bool {
	if b.XMax < o.XMin || o.XMax < b.XMin || b.YMax < o.YMin || o.YMax < b.YMin {
		return false
	}
	if b.HasZ && o.HasZ && (b.ZMax < o.ZMin || o.ZMax < b.ZMin) {
		return false
	}
	return b.Period.Overlaps(o.Period)
}
