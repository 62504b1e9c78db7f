// Package temporal implements the temporal value model: values whose
// payload varies with time, in four shapes of increasing structure
// (instant, instant set, sequence, sequence set) under discrete, stepwise
// or linear interpolation. The package also houses the synchronizer, the
// function-lifting engine and the restriction engine that evaluate
// operations over temporal values.
package temporal

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// Subtype discriminates the four temporal shapes.
type Subtype uint8

const (
	SubInstant Subtype = iota + 1
	SubInstantSet
	SubSequence
	SubSequenceSet
)

func (s Subtype) String() string {
	switch s {
	case SubInstant:
		return "instant"
	case SubInstantSet:
		return "instant-set"
	case SubSequence:
		return "sequence"
	case SubSequenceSet:
		return "sequence-set"
	}
	return "unknown-subtype"
}

// Interp is the interpolation mode between instants.
type Interp uint8

const (
	InterpDiscrete Interp = iota + 1
	InterpStep
	InterpLinear
)

func (i Interp) String() string {
	switch i {
	case InterpDiscrete:
		return "discrete"
	case InterpStep:
		return "step"
	case InterpLinear:
		return "linear"
	}
	return "unknown-interp"
}

// Temporal is the common surface of the four subtypes. Values are immutable
// once constructed; every accessor that exposes composite state returns a
// copy.
type Temporal interface {
	Subtype() Subtype
	BaseType() span.BaseType
	Interp() Interp
	Flags() Flags

	// Period returns the bounding period of the value's time domain.
	Period() timeset.Period
	// Timestamps returns the distinct instant timestamps in order.
	Timestamps() []time.Time
	NumInstants() int
	InstantN(i int) Instant

	StartValue() span.Value
	EndValue() span.Value

	// ValueAt evaluates the function-of-time at t under the value's
	// interpolation; ok is false outside the time domain.
	ValueAt(t time.Time) (v span.Value, ok bool)

	// Shift translates the whole value along the time axis.
	Shift(by time.Duration) Temporal

	String() string
}

// Equal reports structural equality, which by the normalization invariant
// coincides with equality of the denoted functions-of-time.
func Equal(a, b Temporal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Subtype() != b.Subtype() || a.BaseType() != b.BaseType() ||
		a.Interp() != b.Interp() || a.NumInstants() != b.NumInstants() {
		return false
	}
	switch x := a.(type) {
	case Instant:
		y := b.(Instant)
		return x.value.Equal(y.value) && x.t.Equal(y.t)
	case InstantSet:
		y := b.(InstantSet)
		for i := range x.instants {
			if !Equal(x.instants[i], y.instants[i]) {
				return false
			}
		}
		return true
	case Sequence:
		y := b.(Sequence)
		if x.lowerInc != y.lowerInc || x.upperInc != y.upperInc {
			return false
		}
		for i := range x.instants {
			if !Equal(x.instants[i], y.instants[i]) {
				return false
			}
		}
		return true
	case SequenceSet:
		y := b.(SequenceSet)
		if len(x.seqs) != len(y.seqs) {
			return false
		}
		for i := range x.seqs {
			if !Equal(x.seqs[i], y.seqs[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Hash returns a 64-bit identity hash covering subtype, interpolation,
// bounds and every instant. Equal values hash equally, except temporal
// points whose instants differ only in SRID: span.Value.Hash covers the
// SRID and Equal ignores it.
func Hash(tm Temporal) uint64 {
	h := xxhash.New()
	writeHash(h, tm)
	return h.Sum64()
}

func writeHash(h *xxhash.Digest, tm Temporal) {
	_, _ = h.Write([]byte{byte(tm.Subtype()), byte(tm.Interp())})
	if s, ok := tm.(Sequence); ok {
		b := byte(0)
		if s.lowerInc {
			b |= 1
		}
		if s.upperInc {
			b |= 2
		}
		_, _ = h.Write([]byte{b})
	}
	if ss, ok := tm.(SequenceSet); ok {
		for _, s := range ss.seqs {
			writeHash(h, s)
		}
		return
	}
	for i := 0; i < tm.NumInstants(); i++ {
		in := tm.InstantN(i)
		var buf [16]byte
		putUint64(buf[:8], uint64(in.t.UnixNano()))
		putUint64(buf[8:], in.value.Hash())
		_, _ = h.Write(buf[:])
	}
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// sequencesOf explodes any temporal into its composing sequences, promoting
// instants and instant sets to singleton sequences under the given default
// interpolation for continuous types.
func sequencesOf(tm Temporal) []Sequence {
	switch x := tm.(type) {
	case Instant:
		s, _ := instantAsSequence(x, defaultInterp(x.BaseType()))
		return []Sequence{s}
	case InstantSet:
		out := make([]Sequence, 0, len(x.instants))
		for _, in := range x.instants {
			s, _ := instantAsSequence(in, defaultInterp(in.BaseType()))
			out = append(out, s)
		}
		return out
	case Sequence:
		return []Sequence{x}
	case SequenceSet:
		out := make([]Sequence, len(x.seqs))
		copy(out, x.seqs)
		return out
	}
	return nil
}

func defaultInterp(bt span.BaseType) Interp {
	if bt.Continuous() {
		return InterpLinear
	}
	return InterpStep
}

func instantAsSequence(in Instant, interp Interp) (Sequence, error) {
	return NewSequence([]Instant{in}, true, true, interp)
}

// Merge combines temporal values that denote fragments of one
// function-of-time into a single normalized value. Inputs must agree on
// base type and interpolation and must not contradict each other at shared
// timestamps. Used by the aggregator's final step and exposed for callers
// assembling values piecewise.
func Merge(values ...Temporal) (Temporal, error) {
	if len(values) == 0 {
		return nil, terrors.New(terrors.InvalidInput, "merge of zero temporal values")
	}
	if len(values) == 1 {
		return values[0], nil
	}
	bt := values[0].BaseType()
	allInstants := true
	for _, v := range values {
		if v.BaseType() != bt {
			return nil, terrors.New(terrors.InvalidInput, "merge mixes base types %s and %s", bt, v.BaseType())
		}
		if v.Subtype() != SubInstant && v.Subtype() != SubInstantSet {
			allInstants = false
		}
	}
	if allInstants {
		var ins []Instant
		for _, v := range values {
			for i := 0; i < v.NumInstants(); i++ {
				ins = append(ins, v.InstantN(i))
			}
		}
		return mergeInstants(ins)
	}
	var seqs []Sequence
	for _, v := range values {
		seqs = append(seqs, sequencesOf(v)...)
	}
	set, err := NewSequenceSet(seqs)
	if err != nil {
		return nil, err
	}
	if len(set.seqs) == 1 {
		return set.seqs[0], nil
	}
	return set, nil
}

func mergeInstants(ins []Instant) (Temporal, error) {
	sortInstants(ins)
	out := ins[:0]
	for _, in := range ins {
		if len(out) > 0 && out[len(out)-1].t.Equal(in.t) {
			if !out[len(out)-1].value.Equal(in.value) {
				return nil, terrors.New(terrors.InvalidInput, "merge conflict at %s", timeset.FormatTimestamp(in.t))
			}
			continue
		}
		out = append(out, in)
	}
	if len(out) == 1 {
		return out[0], nil
	}
	set, err := NewInstantSet(out)
	if err != nil {
		return nil, err
	}
	return set, nil
}
