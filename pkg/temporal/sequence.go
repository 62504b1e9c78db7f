package temporal

import (
	"sort"
	"strings"
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// Sequence is an ordered run of instants with inclusive or exclusive end
// bounds and stepwise or linear interpolation: the value is defined over
// the whole period between the first and last instant.
type Sequence struct {
	instants []Instant
	lowerInc bool
	upperInc bool
	interp   Interp
}

// NewSequence validates and normalizes a sequence. Discrete interpolation
// is the domain of InstantSet and is rejected here; linear interpolation
// requires a continuous base type. A stepwise sequence with an exclusive
// upper bound must end with two equal values, so that the value at the open
// end equals the value held just before it.
func NewSequence(instants []Instant, lowerInc, upperInc bool, interp Interp) (Sequence, error) {
	if len(instants) == 0 {
		return Sequence{}, terrors.New(terrors.InvalidInput, "sequence needs at least one instant")
	}
	if interp != InterpStep && interp != InterpLinear {
		return Sequence{}, terrors.New(terrors.InvalidInput, "sequence interpolation must be step or linear, got %s", interp)
	}
	bt := instants[0].BaseType()
	if interp == InterpLinear && !bt.Continuous() {
		return Sequence{}, terrors.New(terrors.UnsupportedOperation, "linear interpolation over discrete type %s", bt)
	}
	for i, in := range instants {
		if in.BaseType() != bt {
			return Sequence{}, terrors.New(terrors.InvalidInput, "sequence mixes base types %s and %s", bt, in.BaseType())
		}
		if i > 0 && !instants[i-1].t.Before(in.t) {
			return Sequence{}, terrors.New(terrors.InvalidInput, "sequence timestamps must strictly increase at position %d", i)
		}
	}
	if len(instants) == 1 && (!lowerInc || !upperInc) {
		return Sequence{}, terrors.New(terrors.InvalidInput, "single-instant sequence must have inclusive bounds")
	}
	if interp == InterpStep && !upperInc && len(instants) > 1 {
		if !instants[len(instants)-1].value.Equal(instants[len(instants)-2].value) {
			return Sequence{}, terrors.New(terrors.InvalidInput, "half-open step sequence must end with two equal values")
		}
	}
	norm := normalizeInstants(instants, interp)
	return Sequence{instants: norm, lowerInc: lowerInc, upperInc: upperInc, interp: interp}, nil
}

// MustSequence is NewSequence for statically-known inputs, mainly tests.
func MustSequence(instants []Instant, lowerInc, upperInc bool, interp Interp) Sequence {
	s, err := NewSequence(instants, lowerInc, upperInc, interp)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Sequence) Subtype() Subtype        { return SubSequence }
func (s Sequence) BaseType() span.BaseType { return s.instants[0].BaseType() }
func (s Sequence) Interp() Interp          { return s.interp }
func (s Sequence) Flags() Flags            { return s.instants[0].Flags() }
func (s Sequence) NumInstants() int        { return len(s.instants) }
func (s Sequence) InstantN(i int) Instant  { return s.instants[i] }
func (s Sequence) LowerInc() bool          { return s.lowerInc }
func (s Sequence) UpperInc() bool          { return s.upperInc }
func (s Sequence) StartValue() span.Value  { return s.instants[0].value }
func (s Sequence) EndValue() span.Value    { return s.instants[len(s.instants)-1].value }

func (s Sequence) Period() timeset.Period {
	return timeset.MustPeriod(s.instants[0].t, s.instants[len(s.instants)-1].t, s.lowerInc, s.upperInc)
}

func (s Sequence) Timestamps() []time.Time {
	out := make([]time.Time, len(s.instants))
	for i, in := range s.instants {
		out[i] = in.t
	}
	return out
}

// interpolateSegment evaluates the value between two instants at fraction
// frac of the segment under the sequence's interpolation.
func interpolateSegment(a, b Instant, interp Interp, frac float64) span.Value {
	if interp != InterpLinear || frac == 0 {
		return a.value
	}
	if frac == 1 {
		return b.value
	}
	switch a.BaseType() {
	case span.TypeFloat64:
		av, bv := a.value.Float(), b.value.Float()
		return span.NewFloat64(av + (bv-av)*frac)
	case span.TypeGeom2D, span.TypeGeom3D, span.TypeGeog2D, span.TypeGeog3D:
		return span.NewPoint(a.BaseType(), interpolatePoint(a.value.Point(), b.value.Point(), frac))
	}
	return a.value
}

// segmentFraction returns how far t lies into the segment [a.t, b.t].
func segmentFraction(a, b Instant, t time.Time) float64 {
	total := b.t.Sub(a.t)
	if total == 0 {
		return 0
	}
	return float64(t.Sub(a.t)) / float64(total)
}

func (s Sequence) ValueAt(t time.Time) (span.Value, bool) {
	first, last := s.instants[0].t, s.instants[len(s.instants)-1].t
	if t.Before(first) || t.After(last) {
		return span.Value{}, false
	}
	if t.Equal(first) && !s.lowerInc {
		return span.Value{}, false
	}
	if t.Equal(last) {
		if !s.upperInc {
			// a step sequence reports the value held just before the open
			// end (its trailing value is duplicated); a linear sequence is
			// not defined there
			if len(s.instants) == 1 {
				return span.Value{}, false
			}
			if s.interp == InterpStep {
				return s.instants[len(s.instants)-2].value, true
			}
			return span.Value{}, false
		}
		return s.instants[len(s.instants)-1].value, true
	}
	i := sort.Search(len(s.instants), func(i int) bool { return s.instants[i].t.After(t) })
	// instants[i-1].t <= t < instants[i].t
	a, b := s.instants[i-1], s.instants[i]
	if t.Equal(a.t) {
		return a.value, true
	}
	return interpolateSegment(a, b, s.interp, segmentFraction(a, b, t)), true
}

func (s Sequence) Shift(by time.Duration) Temporal {
	return s.shiftSeq(by)
}

func (s Sequence) shiftSeq(by time.Duration) Sequence {
	out := make([]Instant, len(s.instants))
	for i, in := range s.instants {
		in.t = in.t.Add(by)
		out[i] = in
	}
	return Sequence{instants: out, lowerInc: s.lowerInc, upperInc: s.upperInc, interp: s.interp}
}

// TScale stretches the sequence to the given total duration, keeping its
// start fixed and scaling every instant proportionally.
func (s Sequence) TScale(to time.Duration) (Sequence, error) {
	if to <= 0 {
		return Sequence{}, terrors.New(terrors.InvalidInput, "tscale to non-positive duration")
	}
	cur := s.instants[len(s.instants)-1].t.Sub(s.instants[0].t)
	if cur == 0 {
		return s, nil
	}
	ratio := float64(to) / float64(cur)
	start := s.instants[0].t
	out := make([]Instant, len(s.instants))
	for i, in := range s.instants {
		in.t = start.Add(time.Duration(float64(in.t.Sub(start)) * ratio))
		out[i] = in
	}
	return Sequence{instants: out, lowerInc: s.lowerInc, upperInc: s.upperInc, interp: s.interp}, nil
}

// Duration returns the length of the sequence's period.
func (s Sequence) Duration() time.Duration {
	return s.instants[len(s.instants)-1].t.Sub(s.instants[0].t)
}

func (s Sequence) String() string {
	var b strings.Builder
	if s.lowerInc {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	for i, in := range s.instants {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(in.String())
	}
	if s.upperInc {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	if s.interp == InterpStep && s.BaseType().Continuous() {
		b.WriteString("@step")
	}
	return b.String()
}
