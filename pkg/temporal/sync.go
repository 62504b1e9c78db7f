package temporal

import (
	"time"

	"github.com/tempora-db/tempora/pkg/span"
)

// The synchronizer aligns two temporal values on their common time domain,
// interpolating whichever side lags at each merged timestamp. It is the
// substrate of the lifting engine and the aggregator kernels.

// valueAtLimit evaluates the sequence at t treating exclusive bounds as
// their one-sided limit: at an open start, the first value; at an open end,
// the left limit (the held value for step, the final value for linear).
// t must lie within the closed hull of the sequence.
func (s Sequence) valueAtLimit(t time.Time) span.Value {
	last := len(s.instants) - 1
	if t.Equal(s.instants[last].t) {
		if !s.upperInc && s.interp == InterpStep && last > 0 {
			return s.instants[last-1].value
		}
		return s.instants[last].value
	}
	v, ok := s.ValueAt(t)
	if ok {
		return v
	}
	// open start
	return s.instants[0].value
}

// heldBefore returns the value of the last instant strictly before t, the
// value a stepwise sequence still holds when t itself is excluded.
func (s Sequence) heldBefore(t time.Time) span.Value {
	for i := len(s.instants) - 1; i >= 0; i-- {
		if s.instants[i].t.Before(t) {
			return s.instants[i].value
		}
	}
	return s.instants[0].value
}

// syncResult is the output of sequence synchronization: two instant runs
// over identical timestamps plus the common bounds.
type syncResult struct {
	a, b     []Instant
	lowerInc bool
	upperInc bool
}

// synchronizeSequences aligns two sequences over the intersection of their
// periods. With addCrossings, a synthetic timestamp is inserted wherever
// two linear segments become equal strictly inside a merged segment. ok is
// false when the time domains do not overlap.
func synchronizeSequences(a, b Sequence, addCrossings bool) (syncResult, bool) {
	inter, ok := a.Period().Intersection(b.Period())
	if !ok {
		return syncResult{}, false
	}
	lo, hi := inter.Lower.Time(), inter.Upper.Time()

	// merged timestamps of both sides clipped to [lo, hi]
	times := make([]time.Time, 0, len(a.instants)+len(b.instants))
	add := func(t time.Time) {
		if t.Before(lo) || t.After(hi) {
			return
		}
		times = append(times, t)
	}
	add(lo)
	for _, in := range a.instants {
		add(in.t)
	}
	for _, in := range b.instants {
		add(in.t)
	}
	add(hi)
	times = dedupTimes(times)

	out := syncResult{lowerInc: inter.LowerInc, upperInc: inter.UpperInc}
	for _, t := range times {
		ia, _ := NewInstant(a.valueAtLimit(t), t)
		ib, _ := NewInstant(b.valueAtLimit(t), t)
		out.a = append(out.a, ia)
		out.b = append(out.b, ib)
	}

	if addCrossings && a.interp == InterpLinear && b.interp == InterpLinear {
		out = insertCrossings(out, a.BaseType())
	}
	if len(out.a) == 1 && (!out.lowerInc || !out.upperInc) {
		// a single shared point on an open bound is an empty intersection
		return syncResult{}, false
	}
	return out, true
}

func dedupTimes(times []time.Time) []time.Time {
	sortTimes(times)
	out := times[:0]
	for _, t := range times {
		if len(out) == 0 || out[len(out)-1].Before(t) {
			out = append(out, t)
		}
	}
	return out
}

func sortTimes(times []time.Time) {
	for i := 1; i < len(times); i++ {
		for j := i; j > 0 && times[j].Before(times[j-1]); j-- {
			times[j], times[j-1] = times[j-1], times[j]
		}
	}
}

// crossingFraction solves for the fraction within a merged segment at which
// the two linear value tracks become equal, strictly inside (0, 1).
func crossingFraction(a1, a2, b1, b2 span.Value, bt span.BaseType) (float64, bool) {
	switch bt {
	case span.TypeFloat64:
		// a1 + f(a2-a1) = b1 + f(b2-b1)
		den := (a2.Float() - a1.Float()) - (b2.Float() - b1.Float())
		if den == 0 {
			return 0, false
		}
		f := (b1.Float() - a1.Float()) / den
		if f <= epsilon || f >= 1-epsilon {
			return 0, false
		}
		return f, true
	case span.TypeGeom2D, span.TypeGeog2D:
		return segCrossingFraction(a1.Point(), a2.Point(), b1.Point(), b2.Point(), false)
	case span.TypeGeom3D, span.TypeGeog3D:
		return segCrossingFraction(a1.Point(), a2.Point(), b1.Point(), b2.Point(), true)
	}
	return 0, false
}

// insertCrossings adds a synchronized instant pair at every in-segment
// crossing of the two linear tracks.
func insertCrossings(in syncResult, bt span.BaseType) syncResult {
	out := syncResult{lowerInc: in.lowerInc, upperInc: in.upperInc}
	for i := 0; i < len(in.a); i++ {
		out.a = append(out.a, in.a[i])
		out.b = append(out.b, in.b[i])
		if i == len(in.a)-1 {
			break
		}
		a1, a2 := in.a[i], in.a[i+1]
		b1, b2 := in.b[i], in.b[i+1]
		f, ok := crossingFraction(a1.value, a2.value, b1.value, b2.value, bt)
		if !ok {
			continue
		}
		t := timeAtFraction(a1.t, a2.t, f)
		if !t.After(a1.t) || !t.Before(a2.t) {
			continue
		}
		va := interpolateSegment(a1, a2, InterpLinear, f)
		vb := interpolateSegment(b1, b2, InterpLinear, f)
		ia, _ := NewInstant(va, t)
		ib, _ := NewInstant(vb, t)
		out.a = append(out.a, ia)
		out.b = append(out.b, ib)
	}
	return out
}

// synchronizeWithInstant evaluates both values at the instant's timestamp,
// promoting the instant to the sequence's domain. ok is false when the
// timestamp lies outside the sequence.
func synchronizeWithInstant(s Sequence, in Instant) (Instant, Instant, bool) {
	v, ok := s.ValueAt(in.t)
	if !ok {
		return Instant{}, Instant{}, false
	}
	sv, _ := NewInstant(v, in.t)
	return sv, in, true
}

// SyncApply merges two sequences over the intersection of their periods,
// applying fn to each synchronized value pair. It is the kernel the
// aggregator uses to fold overlapping contributions. ok is false when the
// periods do not overlap.
func SyncApply(a, b Sequence, fn func(x, y span.Value) (span.Value, error), addCrossings bool) (Sequence, bool, error) {
	sr, ok := synchronizeSequences(a, b, addCrossings && a.interp == InterpLinear && b.interp == InterpLinear)
	if !ok {
		return Sequence{}, false, nil
	}
	interp := a.interp
	if b.interp < interp {
		interp = b.interp
	}
	mapped := make([]Instant, 0, len(sr.a))
	for i := range sr.a {
		v, err := fn(sr.a[i].value, sr.b[i].value)
		if err != nil {
			return Sequence{}, false, err
		}
		in, err := NewInstant(v, sr.a[i].t)
		if err != nil {
			return Sequence{}, false, err
		}
		mapped = append(mapped, in)
	}
	if len(mapped) == 1 && (!sr.lowerInc || !sr.upperInc) {
		return Sequence{}, false, nil
	}
	mapped = fixStepTail(mapped, interp, sr.upperInc)
	out, err := NewSequence(mapped, sr.lowerInc, sr.upperInc, interp)
	if err != nil {
		return Sequence{}, false, err
	}
	return out, true, nil
}
