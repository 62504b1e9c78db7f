package wkb

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/temporal"
	"github.com/tempora-db/tempora/pkg/terrors"
)

type writer struct {
	buf  bytes.Buffer
	o    binary.ByteOrder
	opts Options
}

func newWriter(opts Options) *writer {
	return &writer{o: opts.Order.order(), opts: opts}
}

func (w *writer) u8(v byte)    { w.buf.WriteByte(v) }
func (w *writer) u16(v uint16) { var b [2]byte; w.o.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *writer) u32(v uint32) { var b [4]byte; w.o.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *writer) u64(v uint64) { var b [8]byte; w.o.PutUint64(b[:], v); w.buf.Write(b[:]) }
func (w *writer) f64(v float64) {
	w.u64(math.Float64bits(v))
}

func (w *writer) envelope(k kind, bt span.BaseType, flags byte) {
	w.u8(byte(w.opts.Order))
	w.u16(typeCode(k, bt))
	w.u8(flags)
}

// value writes a base value body. Points omit their SRID here; it is
// written once per value by the extended variant.
func (w *writer) value(v span.Value) error {
	switch v.Type() {
	case span.TypeBool:
		if v.Bool() {
			w.u8(1)
		} else {
			w.u8(0)
		}
	case span.TypeInt32:
		w.u32(uint32(int32(v.Int())))
	case span.TypeInt64:
		w.u64(uint64(v.Int()))
	case span.TypeFloat64:
		w.f64(v.Float())
	case span.TypeDate, span.TypeTimestampTZ:
		w.u64(uint64(v.Time().UnixNano()))
	case span.TypeText:
		s := v.Text()
		w.u32(uint32(len(s)))
		w.buf.WriteString(s)
	case span.TypeGeom2D, span.TypeGeog2D:
		p := v.Point()
		w.f64(p.X)
		w.f64(p.Y)
	case span.TypeGeom3D, span.TypeGeog3D:
		p := v.Point()
		w.f64(p.X)
		w.f64(p.Y)
		w.f64(p.Z)
	case span.TypeNPoint:
		np := v.NPoint()
		w.u64(uint64(np.RouteID))
		w.f64(np.Pos)
	default:
		return terrors.New(terrors.CodecError, "cannot encode %s value", v.Type())
	}
	return nil
}

func (w *writer) spanBody(s span.Span) error {
	w.u8(boundsByte(s.LowerInc, s.UpperInc))
	if err := w.value(s.Lower); err != nil {
		return err
	}
	return w.value(s.Upper)
}

// MarshalSpan encodes a span.
func MarshalSpan(s span.Span, opts Options) ([]byte, error) {
	w := newWriter(opts)
	w.envelope(kindSpan, s.Type(), 0)
	if err := w.spanBody(s); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// MarshalSpanSet encodes a span set.
func MarshalSpanSet(ss span.SpanSet, opts Options) ([]byte, error) {
	w := newWriter(opts)
	w.envelope(kindSpanSet, ss.Type(), flagOrdered)
	w.u32(uint32(ss.Len()))
	for i := 0; i < ss.Len(); i++ {
		if err := w.spanBody(ss.At(i)); err != nil {
			return nil, err
		}
	}
	return w.buf.Bytes(), nil
}

func (w *writer) temporalFlags(tm temporal.Temporal) byte {
	f := packInterp(tm.Interp()) | packSubtype(tm.Subtype())
	tf := tm.Flags()
	if tf.HasZ() {
		f |= flagHasZ
	}
	if tf.Geodetic() {
		f |= flagGeodetic
	}
	if w.opts.Extended && pointBase(tm.BaseType()) {
		f |= flagHasSRID
	}
	return f
}

func pointBase(bt span.BaseType) bool {
	switch bt {
	case span.TypeGeom2D, span.TypeGeom3D, span.TypeGeog2D, span.TypeGeog3D:
		return true
	}
	return false
}

func (w *writer) srid(tm temporal.Temporal, flags byte) {
	if flags&flagHasSRID != 0 {
		w.u32(uint32(tm.InstantN(0).Value().Point().SRID))
	}
}

func (w *writer) instantBody(in temporal.Instant) error {
	if err := w.value(in.Value()); err != nil {
		return err
	}
	w.u64(uint64(in.Timestamp().UnixNano()))
	return nil
}

// MarshalTemporal encodes a temporal value of any subtype.
func MarshalTemporal(tm temporal.Temporal, opts Options) ([]byte, error) {
	w := newWriter(opts)
	flags := w.temporalFlags(tm)
	w.envelope(kindTemporal, tm.BaseType(), flags)
	switch x := tm.(type) {
	case temporal.Instant:
		w.srid(tm, flags)
		if err := w.instantBody(x); err != nil {
			return nil, err
		}
	case temporal.InstantSet:
		w.srid(tm, flags)
		w.u32(uint32(x.NumInstants()))
		for i := 0; i < x.NumInstants(); i++ {
			if err := w.instantBody(x.InstantN(i)); err != nil {
				return nil, err
			}
		}
	case temporal.Sequence:
		w.srid(tm, flags)
		if err := w.sequenceBody(x); err != nil {
			return nil, err
		}
	case temporal.SequenceSet:
		w.srid(tm, flags)
		w.u32(uint32(x.NumSequences()))
		for i := 0; i < x.NumSequences(); i++ {
			if err := w.sequenceBody(x.SequenceN(i)); err != nil {
				return nil, err
			}
		}
	default:
		return nil, terrors.New(terrors.CodecError, "cannot encode subtype %s", tm.Subtype())
	}
	return w.buf.Bytes(), nil
}

func (w *writer) sequenceBody(s temporal.Sequence) error {
	w.u32(uint32(s.NumInstants()))
	w.u8(boundsByte(s.LowerInc(), s.UpperInc()))
	for i := 0; i < s.NumInstants(); i++ {
		if err := w.instantBody(s.InstantN(i)); err != nil {
			return err
		}
	}
	return nil
}

// MarshalTBox encodes a numeric-temporal bounding box.
func MarshalTBox(b temporal.TBox, opts Options) ([]byte, error) {
	w := newWriter(opts)
	w.envelope(kindTBox, b.ValueSpan.Type(), 0)
	if err := w.spanBody(b.ValueSpan); err != nil {
		return nil, err
	}
	if err := w.spanBody(b.Period); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// MarshalSTBox encodes a spatiotemporal bounding box.
func MarshalSTBox(b temporal.STBox, opts Options) ([]byte, error) {
	w := newWriter(opts)
	bt := span.TypeGeom2D
	var flags byte
	if b.HasZ {
		flags |= flagHasZ
		bt = span.TypeGeom3D
	}
	if b.Geodetic {
		flags |= flagGeodetic
	}
	if opts.Extended {
		flags |= flagHasSRID
	}
	w.envelope(kindSTBox, bt, flags)
	if flags&flagHasSRID != 0 {
		w.u32(uint32(b.SRID))
	}
	w.f64(b.XMin)
	w.f64(b.XMax)
	w.f64(b.YMin)
	w.f64(b.YMax)
	if b.HasZ {
		w.f64(b.ZMin)
		w.f64(b.ZMax)
	}
	if err := w.spanBody(b.Period); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}
