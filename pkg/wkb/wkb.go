// Package wkb implements the self-describing Well-Known Binary codec for
// spans, span sets, boxes and temporal values, in both byte orders, with
// an extended variant carrying SRIDs and a hex-ASCII rendering.
//
// Every value starts with a four-byte envelope:
//
//	| endian:1 | type_code:2 | flags:1 |
//
// followed by the type-specific body. The type code enumerates the kind
// (span, span set, tbox, stbox, temporal) crossed with the base type; the
// flags byte packs SRID presence, geodetic, Z, interpolation, subtype and
// set order.
package wkb

import (
	"encoding/binary"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/temporal"
	"github.com/tempora-db/tempora/pkg/terrors"
)

// ByteOrder selects the wire endianness.
type ByteOrder uint8

const (
	// XDR is network (big-endian) order, flag byte 0.
	XDR ByteOrder = 0
	// NDR is little-endian order, flag byte 1.
	NDR ByteOrder = 1
)

func (o ByteOrder) order() binary.ByteOrder {
	if o == NDR {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Options selects the encoding variant.
type Options struct {
	Order ByteOrder
	// Extended includes the SRID of spatial values.
	Extended bool
}

// kind occupies the high byte of the type code.
type kind uint8

const (
	kindSpan kind = iota + 1
	kindSpanSet
	kindTBox
	kindSTBox
	kindTemporal
)

func typeCode(k kind, bt span.BaseType) uint16 {
	return uint16(k)<<8 | uint16(bt)
}

func splitTypeCode(code uint16) (kind, span.BaseType) {
	return kind(code >> 8), span.BaseType(code & 0xff)
}

// flag bits
const (
	flagHasSRID  = 1 << 0
	flagGeodetic = 1 << 1
	flagHasZ     = 1 << 2
	// bits 3-4: interpolation (0 discrete, 1 step, 2 linear)
	// bits 5-6: subtype (0 instant .. 3 sequence set)
	flagOrdered = 1 << 7
)

func packInterp(i temporal.Interp) byte {
	switch i {
	case temporal.InterpStep:
		return 1 << 3
	case temporal.InterpLinear:
		return 2 << 3
	}
	return 0
}

func unpackInterp(b byte) temporal.Interp {
	switch (b >> 3) & 0x3 {
	case 1:
		return temporal.InterpStep
	case 2:
		return temporal.InterpLinear
	}
	return temporal.InterpDiscrete
}

func packSubtype(s temporal.Subtype) byte {
	return byte(s-temporal.SubInstant) << 5
}

func unpackSubtype(b byte) temporal.Subtype {
	return temporal.Subtype((b>>5)&0x3) + temporal.SubInstant
}

// boundsByte packs bound inclusivity: bit 0 lower, bit 1 upper.
func boundsByte(lowerInc, upperInc bool) byte {
	var b byte
	if lowerInc {
		b |= 1
	}
	if upperInc {
		b |= 2
	}
	return b
}

func unpackBounds(b byte) (lowerInc, upperInc bool) {
	return b&1 != 0, b&2 != 0
}

// baseSize returns the fixed payload size of a base type, or 0 for
// length-prefixed ones.
func baseSize(bt span.BaseType) int {
	switch bt {
	case span.TypeBool:
		return 1
	case span.TypeInt32:
		return 4
	case span.TypeInt64, span.TypeFloat64, span.TypeDate, span.TypeTimestampTZ:
		return 8
	case span.TypeGeom2D, span.TypeGeog2D:
		return 16
	case span.TypeGeom3D, span.TypeGeog3D:
		return 24
	case span.TypeNPoint:
		return 16
	}
	return 0
}

func codecErr(offset int, format string, args ...interface{}) error {
	return terrors.NewAt(terrors.CodecError, offset, format, args...)
}
