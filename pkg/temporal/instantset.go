package temporal

import (
	"sort"
	"strings"
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// InstantSet is an ordered set of instants with discrete interpolation: the
// value is defined only at the listed timestamps.
type InstantSet struct {
	instants []Instant
}

// NewInstantSet validates strictly increasing timestamps and a uniform base
// type. The input slice is copied.
func NewInstantSet(instants []Instant) (InstantSet, error) {
	if len(instants) == 0 {
		return InstantSet{}, terrors.New(terrors.InvalidInput, "instant set needs at least one instant")
	}
	bt := instants[0].BaseType()
	out := make([]Instant, len(instants))
	copy(out, instants)
	for i, in := range out {
		if in.BaseType() != bt {
			return InstantSet{}, terrors.New(terrors.InvalidInput, "instant set mixes base types %s and %s", bt, in.BaseType())
		}
		if i > 0 && !out[i-1].t.Before(in.t) {
			return InstantSet{}, terrors.New(terrors.InvalidInput, "instant set timestamps must strictly increase at position %d", i)
		}
	}
	return InstantSet{instants: out}, nil
}

// MustInstantSet is NewInstantSet for statically-known inputs, mainly tests.
func MustInstantSet(instants []Instant) InstantSet {
	is, err := NewInstantSet(instants)
	if err != nil {
		panic(err)
	}
	return is
}

func (is InstantSet) Subtype() Subtype        { return SubInstantSet }
func (is InstantSet) BaseType() span.BaseType { return is.instants[0].BaseType() }
func (is InstantSet) Interp() Interp          { return InterpDiscrete }
func (is InstantSet) Flags() Flags            { return is.instants[0].Flags() }
func (is InstantSet) NumInstants() int        { return len(is.instants) }
func (is InstantSet) InstantN(i int) Instant  { return is.instants[i] }
func (is InstantSet) StartValue() span.Value  { return is.instants[0].value }
func (is InstantSet) EndValue() span.Value    { return is.instants[len(is.instants)-1].value }

func (is InstantSet) Period() timeset.Period {
	return timeset.MustPeriod(is.instants[0].t, is.instants[len(is.instants)-1].t, true, true)
}

func (is InstantSet) Timestamps() []time.Time {
	out := make([]time.Time, len(is.instants))
	for i, in := range is.instants {
		out[i] = in.t
	}
	return out
}

func (is InstantSet) ValueAt(t time.Time) (span.Value, bool) {
	i := sort.Search(len(is.instants), func(i int) bool { return !is.instants[i].t.Before(t) })
	if i < len(is.instants) && is.instants[i].t.Equal(t) {
		return is.instants[i].value, true
	}
	return span.Value{}, false
}

func (is InstantSet) Shift(by time.Duration) Temporal {
	out := make([]Instant, len(is.instants))
	for i, in := range is.instants {
		in.t = in.t.Add(by)
		out[i] = in
	}
	return InstantSet{instants: out}
}

func (is InstantSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, in := range is.instants {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(in.String())
	}
	b.WriteByte('}')
	return b.String()
}
