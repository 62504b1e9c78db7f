package temporal

import (
	"fmt"
	"sort"
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// Instant is a single (value, timestamp) pair, the leaf of every other
// subtype.
type Instant struct {
	value span.Value
	t     time.Time
}

// NewInstant pairs a base value with a timestamp.
func NewInstant(v span.Value, t time.Time) (Instant, error) {
	if v.Type() == span.TypeUnknown {
		return Instant{}, terrors.New(terrors.InvalidInput, "instant with untyped value")
	}
	if t.IsZero() {
		return Instant{}, terrors.New(terrors.InvalidInput, "instant with zero timestamp")
	}
	return Instant{value: v, t: t}, nil
}

// MustInstant is NewInstant for statically-known inputs, mainly tests.
func MustInstant(v span.Value, t time.Time) Instant {
	in, err := NewInstant(v, t)
	if err != nil {
		panic(err)
	}
	return in
}

func (in Instant) Subtype() Subtype        { return SubInstant }
func (in Instant) BaseType() span.BaseType { return in.value.Type() }
func (in Instant) Interp() Interp          { return InterpDiscrete }
func (in Instant) Flags() Flags            { return flagsFor(in.value.Type()) }
func (in Instant) Value() span.Value       { return in.value }
func (in Instant) Timestamp() time.Time    { return in.t }
func (in Instant) NumInstants() int        { return 1 }
func (in Instant) StartValue() span.Value  { return in.value }
func (in Instant) EndValue() span.Value    { return in.value }

func (in Instant) InstantN(i int) Instant {
	if i != 0 {
		panic(fmt.Sprintf("instant index %d out of range", i))
	}
	return in
}

func (in Instant) Period() timeset.Period {
	return timeset.InstantPeriod(in.t)
}

func (in Instant) Timestamps() []time.Time {
	return []time.Time{in.t}
}

func (in Instant) ValueAt(t time.Time) (span.Value, bool) {
	if t.Equal(in.t) {
		return in.value, true
	}
	return span.Value{}, false
}

func (in Instant) Shift(by time.Duration) Temporal {
	in.t = in.t.Add(by)
	return in
}

func (in Instant) String() string {
	return fmt.Sprintf("%s@%s", in.value, timeset.FormatTimestamp(in.t))
}

func sortInstants(ins []Instant) {
	sort.Slice(ins, func(i, j int) bool { return ins[i].t.Before(ins[j].t) })
}
