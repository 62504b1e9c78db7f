package wkb

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/temporal"
)

// reader decodes a WKB stream, tracking the byte offset for error
// reporting.
type reader struct {
	buf []byte
	pos int
	o   binary.ByteOrder
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return codecErr(r.pos, "truncated input: need %d bytes, have %d", n, len(r.buf)-r.pos)
	}
	return nil
}

func (r *reader) u8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.o.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.o.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.o.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) f64() (float64, error) {
	v, err := r.u64()
	return math.Float64frombits(v), err
}

func (r *reader) timestamp() (time.Time, error) {
	n, err := r.u64()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, int64(n)).UTC(), nil
}

// envelope reads the endian byte, type code and flags, switching the
// reader's byte order to the stream's.
func (r *reader) envelope() (kind, span.BaseType, byte, error) {
	e, err := r.u8()
	if err != nil {
		return 0, 0, 0, err
	}
	switch ByteOrder(e) {
	case NDR:
		r.o = binary.LittleEndian
	case XDR:
		r.o = binary.BigEndian
	default:
		return 0, 0, 0, codecErr(r.pos-1, "invalid endian flag %d", e)
	}
	code, err := r.u16()
	if err != nil {
		return 0, 0, 0, err
	}
	flags, err := r.u8()
	if err != nil {
		return 0, 0, 0, err
	}
	k, bt := splitTypeCode(code)
	return k, bt, flags, nil
}

func (r *reader) value(bt span.BaseType, srid int32) (span.Value, error) {
	start := r.pos
	switch bt {
	case span.TypeBool:
		b, err := r.u8()
		if err != nil {
			return span.Value{}, err
		}
		return span.NewBool(b != 0), nil
	case span.TypeInt32:
		v, err := r.u32()
		if err != nil {
			return span.Value{}, err
		}
		return span.NewInt32(int32(v)), nil
	case span.TypeInt64:
		v, err := r.u64()
		if err != nil {
			return span.Value{}, err
		}
		return span.NewInt64(int64(v)), nil
	case span.TypeFloat64:
		v, err := r.f64()
		if err != nil {
			return span.Value{}, err
		}
		return span.NewFloat64(v), nil
	case span.TypeDate:
		t, err := r.timestamp()
		if err != nil {
			return span.Value{}, err
		}
		return span.NewDate(t), nil
	case span.TypeTimestampTZ:
		t, err := r.timestamp()
		if err != nil {
			return span.Value{}, err
		}
		return span.NewTimestamp(t), nil
	case span.TypeText:
		n, err := r.u32()
		if err != nil {
			return span.Value{}, err
		}
		if err := r.need(int(n)); err != nil {
			return span.Value{}, err
		}
		s := string(r.buf[r.pos : r.pos+int(n)])
		r.pos += int(n)
		return span.NewText(s), nil
	case span.TypeGeom2D, span.TypeGeog2D, span.TypeGeom3D, span.TypeGeog3D:
		x, err := r.f64()
		if err != nil {
			return span.Value{}, err
		}
		y, err := r.f64()
		if err != nil {
			return span.Value{}, err
		}
		p := span.Point{X: x, Y: y, SRID: srid}
		if bt == span.TypeGeom3D || bt == span.TypeGeog3D {
			p.Z, err = r.f64()
			if err != nil {
				return span.Value{}, err
			}
		}
		return span.NewPoint(bt, p), nil
	case span.TypeNPoint:
		route, err := r.u64()
		if err != nil {
			return span.Value{}, err
		}
		pos, err := r.f64()
		if err != nil {
			return span.Value{}, err
		}
		return span.NewNPoint(span.NPoint{RouteID: int64(route), Pos: pos}), nil
	}
	return span.Value{}, codecErr(start, "cannot decode base type %d", bt)
}

func (r *reader) spanBody(bt span.BaseType) (span.Span, error) {
	bounds, err := r.u8()
	if err != nil {
		return span.Span{}, err
	}
	lowerInc, upperInc := unpackBounds(bounds)
	lower, err := r.value(bt, 0)
	if err != nil {
		return span.Span{}, err
	}
	upper, err := r.value(bt, 0)
	if err != nil {
		return span.Span{}, err
	}
	return span.New(lower, upper, lowerInc, upperInc)
}

// UnmarshalSpan decodes a span.
func UnmarshalSpan(b []byte) (span.Span, error) {
	r := &reader{buf: b, o: binary.BigEndian}
	k, bt, _, err := r.envelope()
	if err != nil {
		return span.Span{}, err
	}
	if k != kindSpan {
		return span.Span{}, codecErr(1, "expected span type code, got kind %d", k)
	}
	return r.spanBody(bt)
}

// UnmarshalSpanSet decodes a span set.
func UnmarshalSpanSet(b []byte) (span.SpanSet, error) {
	r := &reader{buf: b, o: binary.BigEndian}
	k, bt, _, err := r.envelope()
	if err != nil {
		return span.SpanSet{}, err
	}
	if k != kindSpanSet {
		return span.SpanSet{}, codecErr(1, "expected span set type code, got kind %d", k)
	}
	n, err := r.u32()
	if err != nil {
		return span.SpanSet{}, err
	}
	spans := make([]span.Span, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.spanBody(bt)
		if err != nil {
			return span.SpanSet{}, err
		}
		spans = append(spans, s)
	}
	return span.NewSpanSet(spans)
}

func (r *reader) instant(bt span.BaseType, srid int32) (temporal.Instant, error) {
	v, err := r.value(bt, srid)
	if err != nil {
		return temporal.Instant{}, err
	}
	t, err := r.timestamp()
	if err != nil {
		return temporal.Instant{}, err
	}
	return temporal.NewInstant(v, t)
}

func (r *reader) sequence(bt span.BaseType, srid int32, interp temporal.Interp) (temporal.Sequence, error) {
	n, err := r.u32()
	if err != nil {
		return temporal.Sequence{}, err
	}
	bounds, err := r.u8()
	if err != nil {
		return temporal.Sequence{}, err
	}
	lowerInc, upperInc := unpackBounds(bounds)
	instants := make([]temporal.Instant, 0, n)
	for i := uint32(0); i < n; i++ {
		in, err := r.instant(bt, srid)
		if err != nil {
			return temporal.Sequence{}, err
		}
		instants = append(instants, in)
	}
	return temporal.NewSequence(instants, lowerInc, upperInc, interp)
}

// UnmarshalTemporal decodes a temporal value of any subtype.
func UnmarshalTemporal(b []byte) (temporal.Temporal, error) {
	r := &reader{buf: b, o: binary.BigEndian}
	k, bt, flags, err := r.envelope()
	if err != nil {
		return nil, err
	}
	if k != kindTemporal {
		return nil, codecErr(1, "expected temporal type code, got kind %d", k)
	}
	var srid int32
	if flags&flagHasSRID != 0 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		srid = int32(v)
	}
	interp := unpackInterp(flags)
	switch unpackSubtype(flags) {
	case temporal.SubInstant:
		in, err := r.instant(bt, srid)
		if err != nil {
			return nil, err
		}
		return in, nil
	case temporal.SubInstantSet:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		instants := make([]temporal.Instant, 0, n)
		for i := uint32(0); i < n; i++ {
			in, err := r.instant(bt, srid)
			if err != nil {
				return nil, err
			}
			instants = append(instants, in)
		}
		set, err := temporal.NewInstantSet(instants)
		if err != nil {
			return nil, err
		}
		return set, nil
	case temporal.SubSequence:
		s, err := r.sequence(bt, srid, interp)
		if err != nil {
			return nil, err
		}
		return s, nil
	case temporal.SubSequenceSet:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		seqs := make([]temporal.Sequence, 0, n)
		for i := uint32(0); i < n; i++ {
			s, err := r.sequence(bt, srid, interp)
			if err != nil {
				return nil, err
			}
			seqs = append(seqs, s)
		}
		set, err := temporal.NewSequenceSet(seqs)
		if err != nil {
			return nil, err
		}
		return set, nil
	}
	return nil, codecErr(3, "invalid subtype bits")
}

// UnmarshalTBox decodes a numeric-temporal bounding box.
func UnmarshalTBox(b []byte) (temporal.TBox, error) {
	r := &reader{buf: b, o: binary.BigEndian}
	k, bt, _, err := r.envelope()
	if err != nil {
		return temporal.TBox{}, err
	}
	if k != kindTBox {
		return temporal.TBox{}, codecErr(1, "expected tbox type code, got kind %d", k)
	}
	vs, err := r.spanBody(bt)
	if err != nil {
		return temporal.TBox{}, err
	}
	p, err := r.spanBody(span.TypeTimestampTZ)
	if err != nil {
		return temporal.TBox{}, err
	}
	return temporal.TBox{ValueSpan: vs, Period: p}, nil
}

// UnmarshalSTBox decodes a spatiotemporal bounding box.
func UnmarshalSTBox(b []byte) (temporal.STBox, error) {
	r := &reader{buf: b, o: binary.BigEndian}
	k, _, flags, err := r.envelope()
	if err != nil {
		return temporal.STBox{}, err
	}
	if k != kindSTBox {
		return temporal.STBox{}, codecErr(1, "expected stbox type code, got kind %d", k)
	}
	box := temporal.STBox{
		HasZ:     flags&flagHasZ != 0,
		Geodetic: flags&flagGeodetic != 0,
	}
	if flags&flagHasSRID != 0 {
		v, err := r.u32()
		if err != nil {
			return temporal.STBox{}, err
		}
		box.SRID = int32(v)
	}
	for _, dst := range []*float64{&box.XMin, &box.XMax, &box.YMin, &box.YMax} {
		if *dst, err = r.f64(); err != nil {
			return temporal.STBox{}, err
		}
	}
	if box.HasZ {
		if box.ZMin, err = r.f64(); err != nil {
			return temporal.STBox{}, err
		}
		if box.ZMax, err = r.f64(); err != nil {
			return temporal.STBox{}, err
		}
	}
	box.Period, err = r.spanBody(span.TypeTimestampTZ)
	if err != nil {
		return temporal.STBox{}, err
	}
	return box, nil
}
