package span

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/tempora-db/tempora/pkg/terrors"
)

// BaseType enumerates the payload types a temporal value can carry per
// instant and a span can range over.
type BaseType uint8

const (
	TypeUnknown BaseType = iota
	TypeBool
	TypeInt32
	TypeInt64
	TypeFloat64
	TypeDate
	TypeTimestampTZ
	TypeText
	TypeGeom2D
	TypeGeom3D
	TypeGeog2D
	TypeGeog3D
	TypeNPoint
)

func (t BaseType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt32:
		return "i32"
	case TypeInt64:
		return "i64"
	case TypeFloat64:
		return "f64"
	case TypeDate:
		return "date"
	case TypeTimestampTZ:
		return "timestamptz"
	case TypeText:
		return "text"
	case TypeGeom2D:
		return "geometry2d"
	case TypeGeom3D:
		return "geometry3d"
	case TypeGeog2D:
		return "geography2d"
	case TypeGeog3D:
		return "geography3d"
	case TypeNPoint:
		return "network-point"
	}
	return fmt.Sprintf("basetype(%d)", uint8(t))
}

// Continuous reports whether values of this type vary continuously, which
// is what makes linear interpolation legal for them.
func (t BaseType) Continuous() bool {
	switch t {
	case TypeFloat64, TypeGeom2D, TypeGeom3D, TypeGeog2D, TypeGeog3D:
		return true
	}
	return false
}

// Ordered reports whether the type carries a total order usable for spans
// and comparison lifting. Text is lexicographically ordered; geometries are
// not ordered.
func (t BaseType) Ordered() bool {
	switch t {
	case TypeInt32, TypeInt64, TypeFloat64, TypeDate, TypeTimestampTZ, TypeText:
		return true
	}
	return false
}

// step returns the unit increment for discrete orderable types, used to
// canonicalize exclusive span bounds. Types without a unit step return false.
func (t BaseType) step() (int64, bool) {
	switch t {
	case TypeInt32, TypeInt64:
		return 1, true
	case TypeDate:
		return 1, true // one day
	}
	return 0, false
}

// Point is a 2D/3D cartesian or geodetic coordinate.
type Point struct {
	X, Y, Z float64
	SRID    int32
}

// NPoint is a position along a route of a transport network, with Pos
// expressed as a fraction of the route length in [0, 1].
type NPoint struct {
	RouteID int64
	Pos     float64
}

// Value is a tagged base-type value. The zero Value has TypeUnknown and is
// not valid as an operand.
type Value struct {
	typ BaseType

	b  bool
	i  int64
	f  float64
	t  time.Time
	s  string
	pt Point
	np NPoint
}

func NewBool(v bool) Value        { return Value{typ: TypeBool, b: v} }
func NewInt32(v int32) Value      { return Value{typ: TypeInt32, i: int64(v)} }
func NewInt64(v int64) Value      { return Value{typ: TypeInt64, i: v} }
func NewFloat64(v float64) Value  { return Value{typ: TypeFloat64, f: v} }
func NewText(v string) Value      { return Value{typ: TypeText, s: v} }
func NewNPoint(v NPoint) Value    { return Value{typ: TypeNPoint, np: v} }

func NewDate(v time.Time) Value {
	y, m, d := v.Date()
	return Value{typ: TypeDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func NewTimestamp(v time.Time) Value {
	return Value{typ: TypeTimestampTZ, t: v}
}

func NewPoint(typ BaseType, p Point) Value {
	return Value{typ: typ, pt: p}
}

func (v Value) Type() BaseType  { return v.typ }
func (v Value) Bool() bool      { return v.b }
func (v Value) Int() int64      { return v.i }
func (v Value) Float() float64  { return v.f }
func (v Value) Time() time.Time { return v.t }
func (v Value) Text() string    { return v.s }
func (v Value) Point() Point    { return v.pt }
func (v Value) NPoint() NPoint  { return v.np }

// AsFloat widens numeric payloads to float64. Used by the lifting engine for
// mixed int/float arithmetic and by the numeric bounding box.
func (v Value) AsFloat() float64 {
	switch v.typ {
	case TypeInt32, TypeInt64:
		return float64(v.i)
	case TypeFloat64:
		return v.f
	}
	return math.NaN()
}

// Compare orders two values of the same type. Bool orders false < true,
// text lexicographically, points are not ordered and compare by (X, Y, Z)
// only to give a deterministic order for canonical output.
func (v Value) Compare(o Value) int {
	switch v.typ {
	case TypeBool:
		switch {
		case v.b == o.b:
			return 0
		case !v.b:
			return -1
		}
		return 1
	case TypeInt32, TypeInt64:
		return cmpInt64(v.i, o.i)
	case TypeFloat64:
		return cmpFloat64(v.f, o.f)
	case TypeDate, TypeTimestampTZ:
		return v.t.Compare(o.t)
	case TypeText:
		switch {
		case v.s == o.s:
			return 0
		case v.s < o.s:
			return -1
		}
		return 1
	case TypeGeom2D, TypeGeom3D, TypeGeog2D, TypeGeog3D:
		if c := cmpFloat64(v.pt.X, o.pt.X); c != 0 {
			return c
		}
		if c := cmpFloat64(v.pt.Y, o.pt.Y); c != 0 {
			return c
		}
		return cmpFloat64(v.pt.Z, o.pt.Z)
	case TypeNPoint:
		if c := cmpInt64(v.np.RouteID, o.np.RouteID); c != 0 {
			return c
		}
		return cmpFloat64(v.np.Pos, o.np.Pos)
	}
	return 0
}

func (v Value) Equal(o Value) bool {
	return v.typ == o.typ && v.Compare(o) == 0
}

func (v Value) Less(o Value) bool {
	return v.Compare(o) < 0
}

// succ returns the next representable value for unit-step discrete types.
func (v Value) succ() Value {
	switch v.typ {
	case TypeInt32, TypeInt64:
		v.i++
	case TypeDate:
		v.t = v.t.AddDate(0, 0, 1)
	}
	return v
}

// pred returns the previous representable value for unit-step discrete types.
func (v Value) pred() Value {
	switch v.typ {
	case TypeInt32, TypeInt64:
		v.i--
	case TypeDate:
		v.t = v.t.AddDate(0, 0, -1)
	}
	return v
}

// Distance returns the scalar distance between two values of the same
// orderable type: absolute difference for numerics, seconds for timestamps,
// days for dates. Unordered types return an error.
func (v Value) Distance(o Value) (float64, error) {
	if v.typ != o.typ {
		return 0, terrors.New(terrors.InvalidInput, "distance between %s and %s", v.typ, o.typ)
	}
	switch v.typ {
	case TypeInt32, TypeInt64:
		return math.Abs(float64(v.i - o.i)), nil
	case TypeFloat64:
		return math.Abs(v.f - o.f), nil
	case TypeTimestampTZ:
		return math.Abs(v.t.Sub(o.t).Seconds()), nil
	case TypeDate:
		return math.Abs(v.t.Sub(o.t).Hours() / 24), nil
	}
	return 0, terrors.New(terrors.UnsupportedOperation, "distance over %s", v.typ)
}

// Hash returns a 64-bit identity hash of the value. The digest covers the
// type tag and the canonical payload bytes; for points it also covers the
// SRID, which Compare and Equal ignore, so equal points with different
// SRIDs hash differently.
func (v Value) Hash() uint64 {
	h := xxhash.New()
	var buf [8]byte
	_, _ = h.Write([]byte{byte(v.typ)})
	switch v.typ {
	case TypeBool:
		if v.b {
			_, _ = h.Write([]byte{1})
		} else {
			_, _ = h.Write([]byte{0})
		}
	case TypeInt32, TypeInt64:
		binary.LittleEndian.PutUint64(buf[:], uint64(v.i))
		_, _ = h.Write(buf[:])
	case TypeFloat64:
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.f))
		_, _ = h.Write(buf[:])
	case TypeDate, TypeTimestampTZ:
		binary.LittleEndian.PutUint64(buf[:], uint64(v.t.UnixNano()))
		_, _ = h.Write(buf[:])
	case TypeText:
		_, _ = h.WriteString(v.s)
	case TypeGeom2D, TypeGeom3D, TypeGeog2D, TypeGeog3D:
		for _, f := range []float64{v.pt.X, v.pt.Y, v.pt.Z, float64(v.pt.SRID)} {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
			_, _ = h.Write(buf[:])
		}
	case TypeNPoint:
		binary.LittleEndian.PutUint64(buf[:], uint64(v.np.RouteID))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.np.Pos))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeInt32, TypeInt64:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeDate:
		return v.t.Format("2006-01-02")
	case TypeTimestampTZ:
		return v.t.Format("2006-01-02T15:04:05.999999999Z07:00")
	case TypeText:
		return strconv.Quote(v.s)
	case TypeGeom2D, TypeGeog2D:
		return fmt.Sprintf("Point(%g %g)", v.pt.X, v.pt.Y)
	case TypeGeom3D, TypeGeog3D:
		return fmt.Sprintf("Point(%g %g %g)", v.pt.X, v.pt.Y, v.pt.Z)
	case TypeNPoint:
		return fmt.Sprintf("NPoint(%d,%g)", v.np.RouteID, v.np.Pos)
	}
	return "<unknown>"
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
