package temporal

import "github.com/tempora-db/tempora/pkg/span"

// Flags is the packed per-value bit set shared by all subtypes. Interp is
// kept alongside (not inside) because only sequences carry a free choice;
// the codec packs both into one byte.
type Flags uint8

const (
	// FlagByValue marks payloads that fit a machine word.
	FlagByValue Flags = 1 << iota
	// FlagContinuous marks base types that admit linear interpolation.
	FlagContinuous
	// FlagHasZ marks 3D point payloads.
	FlagHasZ
	// FlagGeodetic marks geographic (lon/lat) point payloads.
	FlagGeodetic
)

func (f Flags) ByValue() bool    { return f&FlagByValue != 0 }
func (f Flags) Continuous() bool { return f&FlagContinuous != 0 }
func (f Flags) HasZ() bool       { return f&FlagHasZ != 0 }
func (f Flags) Geodetic() bool   { return f&FlagGeodetic != 0 }

// flagsFor derives the flag bits implied by a base type.
func flagsFor(bt span.BaseType) Flags {
	var f Flags
	switch bt {
	case span.TypeBool, span.TypeInt32, span.TypeInt64, span.TypeFloat64,
		span.TypeDate, span.TypeTimestampTZ:
		f |= FlagByValue
	}
	if bt.Continuous() {
		f |= FlagContinuous
	}
	switch bt {
	case span.TypeGeom3D, span.TypeGeog3D:
		f |= FlagHasZ
	}
	switch bt {
	case span.TypeGeog2D, span.TypeGeog3D:
		f |= FlagGeodetic
	}
	return f
}

// isPointType reports whether the base type is a spatial point.
func isPointType(bt span.BaseType) bool {
	switch bt {
	case span.TypeGeom2D, span.TypeGeom3D, span.TypeGeog2D, span.TypeGeog3D:
		return true
	}
	return false
}
