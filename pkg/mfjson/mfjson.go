// Package mfjson renders temporal values as Moving-Features JSON and reads
// them back. The writer streams through json-iterator; the reader is its
// symmetric counterpart.
package mfjson

import (
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/temporal"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func typeName(bt span.BaseType) (string, error) {
	switch bt {
	case span.TypeBool:
		return "MovingBoolean", nil
	case span.TypeInt32, span.TypeInt64:
		return "MovingInteger", nil
	case span.TypeFloat64:
		return "MovingFloat", nil
	case span.TypeText:
		return "MovingText", nil
	case span.TypeGeom2D, span.TypeGeom3D:
		return "MovingPoint", nil
	case span.TypeGeog2D, span.TypeGeog3D:
		return "MovingGeogPoint", nil
	}
	return "", terrors.New(terrors.CodecError, "no MF-JSON rendering for %s", bt)
}

func baseTypeOf(name string, hasZ bool) (span.BaseType, error) {
	switch name {
	case "MovingBoolean":
		return span.TypeBool, nil
	case "MovingInteger":
		return span.TypeInt32, nil
	case "MovingFloat":
		return span.TypeFloat64, nil
	case "MovingText":
		return span.TypeText, nil
	case "MovingPoint":
		if hasZ {
			return span.TypeGeom3D, nil
		}
		return span.TypeGeom2D, nil
	case "MovingGeogPoint":
		if hasZ {
			return span.TypeGeog3D, nil
		}
		return span.TypeGeog2D, nil
	}
	return 0, terrors.New(terrors.CodecError, "unknown MF-JSON type %q", name)
}

func interpName(i temporal.Interp) string {
	switch i {
	case temporal.InterpStep:
		return "Step"
	case temporal.InterpLinear:
		return "Linear"
	}
	return "Discrete"
}

func interpOf(name string) (temporal.Interp, error) {
	switch name {
	case "Step":
		return temporal.InterpStep, nil
	case "Linear":
		return temporal.InterpLinear, nil
	case "Discrete", "None", "":
		return temporal.InterpDiscrete, nil
	}
	return 0, terrors.New(terrors.CodecError, "unknown interpolation %q", name)
}

// Marshal renders a temporal value as MF-JSON.
func Marshal(tm temporal.Temporal) ([]byte, error) {
	name, err := typeName(tm.BaseType())
	if err != nil {
		return nil, err
	}
	stream := jsoniter.NewStream(json, nil, 256)
	stream.WriteObjectStart()
	stream.WriteObjectField("type")
	stream.WriteString(name)
	if isPoint(tm.BaseType()) {
		srid := tm.InstantN(0).Value().Point().SRID
		if srid != 0 {
			stream.WriteMore()
			stream.WriteObjectField("crs")
			writeCRS(stream, srid)
		}
	}
	switch x := tm.(type) {
	case temporal.Instant, temporal.InstantSet:
		stream.WriteMore()
		writeInstants(stream, tm)
		stream.WriteMore()
		stream.WriteObjectField("interpolation")
		stream.WriteString(interpName(temporal.InterpDiscrete))
	case temporal.Sequence:
		stream.WriteMore()
		writeSequenceFields(stream, x)
		stream.WriteMore()
		stream.WriteObjectField("interpolation")
		stream.WriteString(interpName(x.Interp()))
	case temporal.SequenceSet:
		stream.WriteMore()
		stream.WriteObjectField("sequences")
		stream.WriteArrayStart()
		for i := 0; i < x.NumSequences(); i++ {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectStart()
			writeSequenceFields(stream, x.SequenceN(i))
			stream.WriteObjectEnd()
		}
		stream.WriteArrayEnd()
		stream.WriteMore()
		stream.WriteObjectField("interpolation")
		stream.WriteString(interpName(x.Interp()))
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, terrors.Wrap(stream.Error, terrors.CodecError, "writing MF-JSON")
	}
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

func isPoint(bt span.BaseType) bool {
	switch bt {
	case span.TypeGeom2D, span.TypeGeom3D, span.TypeGeog2D, span.TypeGeog3D:
		return true
	}
	return false
}

func writeCRS(stream *jsoniter.Stream, srid int32) {
	stream.WriteObjectStart()
	stream.WriteObjectField("type")
	stream.WriteString("Name")
	stream.WriteMore()
	stream.WriteObjectField("properties")
	stream.WriteObjectStart()
	stream.WriteObjectField("name")
	stream.WriteString(sridURN(srid))
	stream.WriteObjectEnd()
	stream.WriteObjectEnd()
}

func sridURN(srid int32) string {
	return "urn:ogc:def:crs:EPSG::" + strconv.FormatInt(int64(srid), 10)
}

func writeInstants(stream *jsoniter.Stream, tm temporal.Temporal) {
	writeValuesField(stream, tm)
	stream.WriteMore()
	stream.WriteObjectField("datetimes")
	stream.WriteArrayStart()
	for i := 0; i < tm.NumInstants(); i++ {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteString(timeset.FormatTimestamp(tm.InstantN(i).Timestamp()))
	}
	stream.WriteArrayEnd()
}

func writeSequenceFields(stream *jsoniter.Stream, s temporal.Sequence) {
	writeInstants(stream, s)
	stream.WriteMore()
	stream.WriteObjectField("lower_inc")
	stream.WriteBool(s.LowerInc())
	stream.WriteMore()
	stream.WriteObjectField("upper_inc")
	stream.WriteBool(s.UpperInc())
}

// writeValuesField writes "values" for scalar payloads and "coordinates"
// for points.
func writeValuesField(stream *jsoniter.Stream, tm temporal.Temporal) {
	if isPoint(tm.BaseType()) {
		hasZ := tm.Flags().HasZ()
		stream.WriteObjectField("coordinates")
		stream.WriteArrayStart()
		for i := 0; i < tm.NumInstants(); i++ {
			if i > 0 {
				stream.WriteMore()
			}
			p := tm.InstantN(i).Value().Point()
			stream.WriteArrayStart()
			stream.WriteFloat64(p.X)
			stream.WriteMore()
			stream.WriteFloat64(p.Y)
			if hasZ {
				stream.WriteMore()
				stream.WriteFloat64(p.Z)
			}
			stream.WriteArrayEnd()
		}
		stream.WriteArrayEnd()
		return
	}
	stream.WriteObjectField("values")
	stream.WriteArrayStart()
	for i := 0; i < tm.NumInstants(); i++ {
		if i > 0 {
			stream.WriteMore()
		}
		v := tm.InstantN(i).Value()
		switch v.Type() {
		case span.TypeBool:
			stream.WriteBool(v.Bool())
		case span.TypeInt32, span.TypeInt64:
			stream.WriteInt64(v.Int())
		case span.TypeFloat64:
			stream.WriteFloat64(v.Float())
		case span.TypeText:
			stream.WriteString(v.Text())
		}
	}
	stream.WriteArrayEnd()
}

// document is the decoded MF-JSON shape shared by all subtypes.
type document struct {
	Type          string     `json:"type"`
	Values        []any      `json:"values"`
	Coordinates   [][]float64 `json:"coordinates"`
	Datetimes     []string   `json:"datetimes"`
	LowerInc      *bool      `json:"lower_inc"`
	UpperInc      *bool      `json:"upper_inc"`
	Interpolation string     `json:"interpolation"`
	Sequences     []document `json:"sequences"`
	CRS           *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

// Unmarshal parses an MF-JSON document into a temporal value.
func Unmarshal(data []byte) (temporal.Temporal, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, terrors.Wrap(err, terrors.CodecError, "parsing MF-JSON")
	}
	hasZ := false
	for _, c := range doc.Coordinates {
		if len(c) > 2 {
			hasZ = true
		}
	}
	for _, s := range doc.Sequences {
		for _, c := range s.Coordinates {
			if len(c) > 2 {
				hasZ = true
			}
		}
	}
	bt, err := baseTypeOf(doc.Type, hasZ)
	if err != nil {
		return nil, err
	}
	interp, err := interpOf(doc.Interpolation)
	if err != nil {
		return nil, err
	}
	if len(doc.Sequences) > 0 {
		if interp == temporal.InterpDiscrete {
			interp = temporal.InterpStep
		}
		seqs := make([]temporal.Sequence, 0, len(doc.Sequences))
		for _, sd := range doc.Sequences {
			s, err := decodeSequence(sd, bt, interp)
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
	instants, err := decodeInstants(doc, bt)
	if err != nil {
		return nil, err
	}
	if interp == temporal.InterpDiscrete {
		if len(instants) == 1 {
			return instants[0], nil
		}
		set, err := temporal.NewInstantSet(instants)
		if err != nil {
			return nil, err
		}
		return set, nil
	}
	lowerInc, upperInc := true, true
	if doc.LowerInc != nil {
		lowerInc = *doc.LowerInc
	}
	if doc.UpperInc != nil {
		upperInc = *doc.UpperInc
	}
	seq, err := temporal.NewSequence(instants, lowerInc, upperInc, interp)
	if err != nil {
		return nil, err
	}
	return seq, nil
}

func decodeSequence(doc document, bt span.BaseType, interp temporal.Interp) (temporal.Sequence, error) {
	instants, err := decodeInstants(doc, bt)
	if err != nil {
		return temporal.Sequence{}, err
	}
	lowerInc, upperInc := true, true
	if doc.LowerInc != nil {
		lowerInc = *doc.LowerInc
	}
	if doc.UpperInc != nil {
		upperInc = *doc.UpperInc
	}
	return temporal.NewSequence(instants, lowerInc, upperInc, interp)
}

func decodeInstants(doc document, bt span.BaseType) ([]temporal.Instant, error) {
	n := len(doc.Datetimes)
	if n == 0 {
		return nil, terrors.New(terrors.CodecError, "MF-JSON document without datetimes")
	}
	if isPoint(bt) {
		if len(doc.Coordinates) != n {
			return nil, terrors.New(terrors.CodecError, "MF-JSON coordinates/datetimes length mismatch: %d vs %d", len(doc.Coordinates), n)
		}
	} else if len(doc.Values) != n {
		return nil, terrors.New(terrors.CodecError, "MF-JSON values/datetimes length mismatch: %d vs %d", len(doc.Values), n)
	}
	instants := make([]temporal.Instant, 0, n)
	for i := 0; i < n; i++ {
		t, err := parseDatetime(doc.Datetimes[i])
		if err != nil {
			return nil, err
		}
		var v span.Value
		if isPoint(bt) {
			c := doc.Coordinates[i]
			if len(c) < 2 {
				return nil, terrors.New(terrors.CodecError, "MF-JSON coordinate %d too short", i)
			}
			p := span.Point{X: c[0], Y: c[1]}
			if len(c) > 2 {
				p.Z = c[2]
			}
			v = span.NewPoint(bt, p)
		} else {
			v, err = decodeScalar(doc.Values[i], bt)
			if err != nil {
				return nil, err
			}
		}
		in, err := temporal.NewInstant(v, t)
		if err != nil {
			return nil, err
		}
		instants = append(instants, in)
	}
	return instants, nil
}

func decodeScalar(raw any, bt span.BaseType) (span.Value, error) {
	switch bt {
	case span.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return span.Value{}, terrors.New(terrors.CodecError, "MF-JSON value %v is not a boolean", raw)
		}
		return span.NewBool(b), nil
	case span.TypeInt32, span.TypeInt64:
		f, ok := raw.(float64)
		if !ok {
			return span.Value{}, terrors.New(terrors.CodecError, "MF-JSON value %v is not a number", raw)
		}
		if bt == span.TypeInt32 {
			return span.NewInt32(int32(f)), nil
		}
		return span.NewInt64(int64(f)), nil
	case span.TypeFloat64:
		f, ok := raw.(float64)
		if !ok {
			return span.Value{}, terrors.New(terrors.CodecError, "MF-JSON value %v is not a number", raw)
		}
		return span.NewFloat64(f), nil
	case span.TypeText:
		s, ok := raw.(string)
		if !ok {
			return span.Value{}, terrors.New(terrors.CodecError, "MF-JSON value %v is not a string", raw)
		}
		return span.NewText(s), nil
	}
	return span.Value{}, terrors.New(terrors.CodecError, "cannot decode MF-JSON value for %s", bt)
}

func parseDatetime(s string) (time.Time, error) {
	t, err := timeset.ParseTimestamp(s, time.UTC)
	if err != nil {
		return time.Time{}, terrors.Wrap(err, terrors.CodecError, "parsing MF-JSON datetime")
	}
	return t, nil
}
