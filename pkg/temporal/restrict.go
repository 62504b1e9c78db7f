package temporal

import (
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// The restriction engine computes `T at D` and `T minus D` for every
// restrictor kind. All minus variants are derived from the at variant by
// complementing the time domain, which makes the excluded-middle law
// `at(T,D) union minus(T,D) == T` hold by construction. An empty result is
// (nil, nil), never an error.

// timeDomain returns the exact time domain of a temporal value.
func timeDomain(tm Temporal) timeset.PeriodSet {
	switch x := tm.(type) {
	case Instant:
		return span.FromSpan(x.Period())
	case InstantSet:
		var periods []timeset.Period
		for _, in := range x.instants {
			periods = append(periods, timeset.InstantPeriod(in.t))
		}
		ps, _ := timeset.NewPeriodSet(periods)
		return ps
	case Sequence:
		return span.FromSpan(x.Period())
	case SequenceSet:
		return x.PeriodSet()
	}
	return timeset.PeriodSet{}
}

// restrictSequencePeriod clips a sequence to a period. The clip boundary
// instants take the interpolated value there; a stepwise sequence clipped
// before an instant keeps holding the previous value up to the boundary.
func restrictSequencePeriod(s Sequence, p timeset.Period) (Sequence, bool) {
	inter, ok := s.Period().Intersection(p)
	if !ok {
		return Sequence{}, false
	}
	lo, hi := inter.Lower.Time(), inter.Upper.Time()
	instants := make([]Instant, 0, len(s.instants))
	loVal := s.valueAtLimit(lo)
	instants = append(instants, Instant{value: loVal, t: lo})
	for _, in := range s.instants {
		if in.t.After(lo) && in.t.Before(hi) {
			instants = append(instants, in)
		}
	}
	if hi.After(lo) {
		hiVal := s.valueAtLimit(hi)
		if !inter.UpperInc && s.interp == InterpStep {
			// an open clip boundary keeps holding the previous value even
			// when it lands exactly on a value change
			hiVal = s.heldBefore(hi)
		}
		instants = append(instants, Instant{value: hiVal, t: hi})
	}
	out, err := NewSequence(instants, inter.LowerInc, inter.UpperInc, s.interp)
	if err != nil {
		// a half-open clip of a step sequence must end on the held value;
		// valueAtLimit guarantees it, so failures are internal
		return Sequence{}, false
	}
	return out, true
}

// assemble turns restriction pieces into the result value. forceSet keeps a
// lone sequence wrapped in a set, the contract for fragmenting restrictions
// of linear sequences.
func assemble(instants []Instant, seqs []Sequence, forceSet bool) (Temporal, error) {
	switch {
	case len(instants) == 0 && len(seqs) == 0:
		return nil, nil
	case len(seqs) == 0:
		if len(instants) == 1 {
			return instants[0], nil
		}
		set, err := NewInstantSet(instants)
		if err != nil {
			return nil, err
		}
		return set, nil
	case len(instants) == 0:
		if len(seqs) == 1 && !forceSet {
			return seqs[0], nil
		}
		set, err := NewSequenceSet(seqs)
		if err != nil {
			return nil, err
		}
		return set, nil
	}
	return nil, terrors.New(terrors.Internal, "restriction produced mixed instant and sequence pieces")
}

// AtPeriod restricts the value to the given period.
func AtPeriod(tm Temporal, p timeset.Period) (Temporal, error) {
	switch x := tm.(type) {
	case Instant:
		if timeset.ContainsTime(p, x.t) {
			return x, nil
		}
		return nil, nil
	case InstantSet:
		var kept []Instant
		for _, in := range x.instants {
			if timeset.ContainsTime(p, in.t) {
				kept = append(kept, in)
			}
		}
		return assemble(kept, nil, false)
	case Sequence:
		clip, ok := restrictSequencePeriod(x, p)
		if !ok {
			return nil, nil
		}
		return clip, nil
	case SequenceSet:
		var kept []Sequence
		for _, s := range x.seqs {
			if clip, ok := restrictSequencePeriod(s, p); ok {
				kept = append(kept, clip)
			}
		}
		return assemble(nil, kept, true)
	}
	return nil, terrors.New(terrors.Internal, "unknown subtype in period restriction")
}

// AtPeriodSet restricts the value to a period set.
func AtPeriodSet(tm Temporal, ps timeset.PeriodSet) (Temporal, error) {
	if ps.IsEmpty() {
		return nil, nil
	}
	// bounding-span short-circuit
	if !ps.BoundingSpan().Overlaps(tm.Period()) {
		return nil, nil
	}
	switch x := tm.(type) {
	case Instant:
		if ps.ContainsValue(span.NewTimestamp(x.t)) {
			return x, nil
		}
		return nil, nil
	case InstantSet:
		var kept []Instant
		for _, in := range x.instants {
			if ps.ContainsValue(span.NewTimestamp(in.t)) {
				kept = append(kept, in)
			}
		}
		return assemble(kept, nil, false)
	case Sequence:
		var kept []Sequence
		for i := 0; i < ps.Len(); i++ {
			if clip, ok := restrictSequencePeriod(x, ps.At(i)); ok {
				kept = append(kept, clip)
			}
		}
		return assemble(nil, kept, x.interp == InterpLinear)
	case SequenceSet:
		var kept []Sequence
		for _, s := range x.seqs {
			for i := 0; i < ps.Len(); i++ {
				if ps.At(i).Before(s.Period()) {
					continue
				}
				if s.Period().Before(ps.At(i)) {
					break
				}
				if clip, ok := restrictSequencePeriod(s, ps.At(i)); ok {
					kept = append(kept, clip)
				}
			}
		}
		return assemble(nil, kept, true)
	}
	return nil, terrors.New(terrors.Internal, "unknown subtype in period-set restriction")
}

// MinusPeriod keeps the parts of the value outside the period.
func MinusPeriod(tm Temporal, p timeset.Period) (Temporal, error) {
	return AtPeriodSet(tm, timeDomain(tm).MinusSpan(p))
}

// MinusPeriodSet keeps the parts outside every period of the set.
func MinusPeriodSet(tm Temporal, ps timeset.PeriodSet) (Temporal, error) {
	return AtPeriodSet(tm, timeDomain(tm).Minus(ps))
}

// AtTimestamp evaluates the value at t, as an instant.
func AtTimestamp(tm Temporal, t time.Time) (Temporal, error) {
	v, ok := tm.ValueAt(t)
	if !ok {
		return nil, nil
	}
	in, err := NewInstant(v, t)
	if err != nil {
		return nil, err
	}
	return in, nil
}

// MinusTimestamp removes the single timestamp from the time domain.
func MinusTimestamp(tm Temporal, t time.Time) (Temporal, error) {
	return AtPeriodSet(tm, timeDomain(tm).MinusSpan(timeset.InstantPeriod(t)))
}

// AtTimestampSet evaluates the value at every timestamp of the set.
func AtTimestampSet(tm Temporal, ts timeset.TimestampSet) (Temporal, error) {
	var kept []Instant
	for _, t := range ts.Times() {
		if v, ok := tm.ValueAt(t); ok {
			in, err := NewInstant(v, t)
			if err != nil {
				return nil, err
			}
			kept = append(kept, in)
		}
	}
	return assemble(kept, nil, false)
}

// MinusTimestampSet removes every timestamp of the set from the domain.
func MinusTimestampSet(tm Temporal, ts timeset.TimestampSet) (Temporal, error) {
	return AtPeriodSet(tm, timeDomain(tm).Minus(ts.ToPeriodSet()))
}

// segmentValuePeriods computes the sub-periods of a sequence over which the
// predicate on the (possibly interpolated) value holds. hit reports whether
// a constant-held value satisfies the restrictor; solve returns the
// fraction at which a linear segment meets the restrictor boundary.
type valueRestrictor interface {
	// contains reports whether a single value satisfies the restrictor.
	contains(v span.Value) bool
	// periodsLinear returns the fractions [f0, f1] of the segment a..b over
	// which the restrictor holds, with per-end inclusivity; ok is false
	// when the segment misses the restrictor entirely.
	periodsLinear(a, b span.Value) (f0, f1 float64, loInc, hiInc, ok bool)
}

// valuePeriods computes the exact time domain over which the value of tm
// satisfies the restrictor.
func valuePeriods(tm Temporal, r valueRestrictor) timeset.PeriodSet {
	var periods []timeset.Period
	switch x := tm.(type) {
	case Instant:
		if r.contains(x.value) {
			periods = append(periods, timeset.InstantPeriod(x.t))
		}
	case InstantSet:
		for _, in := range x.instants {
			if r.contains(in.value) {
				periods = append(periods, timeset.InstantPeriod(in.t))
			}
		}
	case Sequence:
		periods = sequenceValuePeriods(x, r)
	case SequenceSet:
		for _, s := range x.seqs {
			periods = append(periods, sequenceValuePeriods(s, r)...)
		}
	}
	ps, err := timeset.NewPeriodSet(periods)
	if err != nil {
		return timeset.PeriodSet{}
	}
	return ps
}

func sequenceValuePeriods(s Sequence, r valueRestrictor) []timeset.Period {
	var periods []timeset.Period
	if len(s.instants) == 1 {
		if r.contains(s.instants[0].value) {
			periods = append(periods, timeset.InstantPeriod(s.instants[0].t))
		}
		return periods
	}
	for i := 0; i < len(s.instants)-1; i++ {
		a, b := s.instants[i], s.instants[i+1]
		lowerInc := i > 0 || s.lowerInc
		if s.interp == InterpStep {
			// the segment holds a.value on [a.t, b.t)
			if r.contains(a.value) {
				p, err := timeset.NewPeriod(a.t, b.t, lowerInc, false)
				if err == nil {
					periods = append(periods, p)
				}
			}
			continue
		}
		f0, f1, loInc, hiInc, ok := r.periodsLinear(a.value, b.value)
		if !ok {
			continue
		}
		t0 := timeAtFraction(a.t, b.t, f0)
		t1 := timeAtFraction(a.t, b.t, f1)
		if f0 <= 0 {
			t0 = a.t
			loInc = loInc && lowerInc
		}
		if f1 >= 1 {
			t1 = b.t
			// the domain ends open at the final instant of a half-open run
			if i == len(s.instants)-2 && !s.upperInc {
				hiInc = false
			}
		}
		if t1.Before(t0) || (t0.Equal(t1) && !(loInc && hiInc)) {
			continue
		}
		p, err := timeset.NewPeriod(t0, t1, loInc, hiInc)
		if err == nil {
			periods = append(periods, p)
		}
	}
	// the final instant under step interpolation
	if s.interp == InterpStep && s.upperInc {
		last := s.instants[len(s.instants)-1]
		if r.contains(last.value) {
			periods = append(periods, timeset.InstantPeriod(last.t))
		}
	}
	return periods
}

// singleValueRestrictor restricts to one base value.
type singleValueRestrictor struct{ v span.Value }

func (r singleValueRestrictor) contains(v span.Value) bool { return v.Equal(r.v) }

func (r singleValueRestrictor) periodsLinear(a, b span.Value) (float64, float64, bool, bool, bool) {
	if a.Equal(r.v) && b.Equal(r.v) {
		return 0, 1, true, true, true
	}
	f, ok := valueEqualFraction(a, b, r.v)
	if !ok {
		return 0, 0, false, false, false
	}
	return f, f, true, true, true
}

// valueEqualFraction solves for the fraction at which the linear segment
// a..b passes through v.
func valueEqualFraction(a, b, v span.Value) (float64, bool) {
	switch a.Type() {
	case span.TypeFloat64:
		if a.Float() == b.Float() {
			return 0, a.Float() == v.Float()
		}
		f := (v.Float() - a.Float()) / (b.Float() - a.Float())
		if f < 0 || f > 1 {
			return 0, false
		}
		return f, true
	case span.TypeGeom2D, span.TypeGeog2D:
		return locateOnSegment(a.Point(), b.Point(), v.Point(), epsilon)
	case span.TypeGeom3D, span.TypeGeog3D:
		f, ok := locateOnSegment(a.Point(), b.Point(), v.Point(), epsilon)
		if !ok {
			return 0, false
		}
		zA, zB := a.Point().Z, b.Point().Z
		want := zA + (zB-zA)*f
		if abs(want-v.Point().Z) > epsilon {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// spanRestrictor restricts the value dimension to a span.
type spanRestrictor struct{ s span.Span }

func (r spanRestrictor) contains(v span.Value) bool { return r.s.ContainsValue(v) }

func (r spanRestrictor) periodsLinear(a, b span.Value) (float64, float64, bool, bool, bool) {
	av, bv := a.Float(), b.Float()
	lo, hi := r.s.Lower.Float(), r.s.Upper.Float()
	if av == bv {
		if r.s.ContainsValue(a) {
			return 0, 1, true, true, true
		}
		return 0, 0, false, false, false
	}
	// parametric 1D clip of v(f) = av + f*(bv-av) against [lo, hi]
	fLo := (lo - av) / (bv - av)
	fHi := (hi - av) / (bv - av)
	loInc, hiInc := r.s.LowerInc, r.s.UpperInc
	if fLo > fHi {
		fLo, fHi = fHi, fLo
		loInc, hiInc = hiInc, loInc
	}
	if fLo < 0 {
		fLo, loInc = 0, true
	}
	if fHi > 1 {
		fHi, hiInc = 1, true
	}
	if fLo > 1 || fHi < 0 || (fLo == fHi && !(loInc && hiInc)) {
		return 0, 0, false, false, false
	}
	return fLo, fHi, loInc, hiInc, fLo <= fHi
}

// AtValue restricts the value dimension to a single base value.
func AtValue(tm Temporal, v span.Value) (Temporal, error) {
	if v.Type() != tm.BaseType() {
		return nil, terrors.New(terrors.InvalidInput, "restricting %s to %s value", tm.BaseType(), v.Type())
	}
	return AtPeriodSet(tm, valuePeriods(tm, singleValueRestrictor{v: v}))
}

// MinusValue keeps the parts where the value differs from v.
func MinusValue(tm Temporal, v span.Value) (Temporal, error) {
	if v.Type() != tm.BaseType() {
		return nil, terrors.New(terrors.InvalidInput, "restricting %s to %s value", tm.BaseType(), v.Type())
	}
	mask := valuePeriods(tm, singleValueRestrictor{v: v})
	return AtPeriodSet(tm, timeDomain(tm).Minus(mask))
}

// AtValues restricts to a set of base values.
func AtValues(tm Temporal, vs []span.Value) (Temporal, error) {
	mask := timeset.PeriodSet{}
	for _, v := range vs {
		mask = mask.Union(valuePeriods(tm, singleValueRestrictor{v: v}))
	}
	return AtPeriodSet(tm, mask)
}

// MinusValues keeps the parts whose value is none of vs.
func MinusValues(tm Temporal, vs []span.Value) (Temporal, error) {
	mask := timeset.PeriodSet{}
	for _, v := range vs {
		mask = mask.Union(valuePeriods(tm, singleValueRestrictor{v: v}))
	}
	return AtPeriodSet(tm, timeDomain(tm).Minus(mask))
}

// AtSpan restricts a temporal numeric to a value span.
func AtSpan(tm Temporal, s span.Span) (Temporal, error) {
	if err := checkNumericRestriction(tm, s.Type()); err != nil {
		return nil, err
	}
	// bounding-box short-circuit
	if box, err := NewTBox(tm); err == nil && !box.ValueSpan.Overlaps(s) {
		return nil, nil
	}
	return AtPeriodSet(tm, valuePeriods(tm, spanRestrictor{s: s}))
}

// MinusSpan keeps the parts whose value lies outside the span.
func MinusSpan(tm Temporal, s span.Span) (Temporal, error) {
	if err := checkNumericRestriction(tm, s.Type()); err != nil {
		return nil, err
	}
	if box, err := NewTBox(tm); err == nil && !box.ValueSpan.Overlaps(s) {
		return tm, nil
	}
	mask := valuePeriods(tm, spanRestrictor{s: s})
	return AtPeriodSet(tm, timeDomain(tm).Minus(mask))
}

// AtSpanSet restricts a temporal numeric to a set of value spans.
func AtSpanSet(tm Temporal, ss span.SpanSet) (Temporal, error) {
	if ss.IsEmpty() {
		return nil, nil
	}
	if err := checkNumericRestriction(tm, ss.Type()); err != nil {
		return nil, err
	}
	if box, err := NewTBox(tm); err == nil && !box.ValueSpan.Overlaps(ss.BoundingSpan()) {
		return nil, nil
	}
	mask := timeset.PeriodSet{}
	for i := 0; i < ss.Len(); i++ {
		mask = mask.Union(valuePeriods(tm, spanRestrictor{s: ss.At(i)}))
	}
	return AtPeriodSet(tm, mask)
}

// MinusSpanSet keeps the parts whose value lies outside every span.
func MinusSpanSet(tm Temporal, ss span.SpanSet) (Temporal, error) {
	if ss.IsEmpty() {
		return tm, nil
	}
	if err := checkNumericRestriction(tm, ss.Type()); err != nil {
		return nil, err
	}
	mask := timeset.PeriodSet{}
	for i := 0; i < ss.Len(); i++ {
		mask = mask.Union(valuePeriods(tm, spanRestrictor{s: ss.At(i)}))
	}
	return AtPeriodSet(tm, timeDomain(tm).Minus(mask))
}

// AtTBox restricts a temporal numeric to a combined value-and-time box.
func AtTBox(tm Temporal, box TBox) (Temporal, error) {
	if own, err := NewTBox(tm); err == nil && !own.Overlaps(box) {
		return nil, nil
	}
	clipped, err := AtPeriod(tm, box.Period)
	if err != nil || clipped == nil {
		return nil, err
	}
	return AtSpan(clipped, box.ValueSpan)
}

func checkNumericRestriction(tm Temporal, spanType span.BaseType) error {
	bt := tm.BaseType()
	if bt != span.TypeInt32 && bt != span.TypeInt64 && bt != span.TypeFloat64 {
		return terrors.New(terrors.UnsupportedOperation, "value-span restriction over %s", bt)
	}
	if spanType != bt {
		return terrors.New(terrors.InvalidInput, "restricting %s to %s span", bt, spanType)
	}
	return nil
}
