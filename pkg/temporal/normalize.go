package temporal

import (
	"math"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
)

// Normalization makes byte-level equality coincide with equality of the
// denoted function-of-time: redundant instants inside a sequence are
// dropped, and sequences inside a set that continue each other seamlessly
// are spliced.

// valuesCollinear reports whether mid equals the interpolation between a
// and c at fraction frac. Floats and points compare within epsilon, all
// other payloads exactly.
func valuesCollinear(a, mid, c span.Value, frac float64, interp Interp) bool {
	if interp != InterpLinear {
		return false
	}
	switch a.Type() {
	case span.TypeFloat64:
		want := a.Float() + (c.Float()-a.Float())*frac
		return math.Abs(want-mid.Float()) <= epsilon
	case span.TypeGeom2D, span.TypeGeog2D:
		return collinearPoints(a.Point(), mid.Point(), c.Point(), frac, false)
	case span.TypeGeom3D, span.TypeGeog3D:
		return collinearPoints(a.Point(), mid.Point(), c.Point(), frac, true)
	}
	return false
}

// normalizeInstants removes instants that carry no information: under step
// interpolation an instant repeating the previous value, under linear an
// instant collinear with its neighbours. First and last instants always
// survive.
func normalizeInstants(instants []Instant, interp Interp) []Instant {
	if len(instants) <= 2 {
		out := make([]Instant, len(instants))
		copy(out, instants)
		return out
	}
	out := make([]Instant, 0, len(instants))
	out = append(out, instants[0])
	for i := 1; i < len(instants)-1; i++ {
		prev := out[len(out)-1]
		cur, next := instants[i], instants[i+1]
		if interp == InterpStep && cur.value.Equal(prev.value) {
			continue
		}
		if interp == InterpLinear {
			frac := segmentFraction(prev, next, cur.t)
			if valuesCollinear(prev.value, cur.value, next.value, frac, interp) {
				continue
			}
		}
		out = append(out, cur)
	}
	out = append(out, instants[len(instants)-1])
	return out
}

// canSplice decides whether b seamlessly continues a, assuming a ends where
// b starts. dropLastA / dropFirstB tell the caller which duplicate junction
// instant to discard.
func canSplice(a, b Sequence) (splice, dropLastA, dropFirstB bool) {
	if !a.instants[len(a.instants)-1].t.Equal(b.instants[0].t) {
		return false, false, false
	}
	switch {
	case a.upperInc && b.lowerInc:
		// both define the junction; handled by the caller as either a merge
		// (equal values) or an overlap error
		if a.EndValue().Equal(b.StartValue()) {
			return true, false, true
		}
		return false, false, false
	case a.upperInc && !b.lowerInc:
		// b's first value governs the open side immediately after the
		// junction; continuity needs it to match a's closing value
		if a.EndValue().Equal(b.StartValue()) {
			return true, false, true
		}
		return false, false, false
	case !a.upperInc && b.lowerInc:
		// a's trailing value held (step) or converged (linear) to the
		// junction; continuity needs b to take over with the same value
		if a.EndValue().Equal(b.StartValue()) {
			return true, true, false
		}
		return false, false, false
	}
	// neither side defines the junction: the union misses one point
	return false, false, false
}

// normalizeSequences splices mergeable neighbours. Sequences must already
// be sorted by lower bound; overlapping time domains are an error.
func normalizeSequences(seqs []Sequence) ([]Sequence, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	out := make([]Sequence, 0, len(seqs))
	out = append(out, seqs[0])
	for _, next := range seqs[1:] {
		cur := out[len(out)-1]
		curEnd := cur.instants[len(cur.instants)-1].t
		nextStart := next.instants[0].t
		if nextStart.Before(curEnd) ||
			(nextStart.Equal(curEnd) && cur.upperInc && next.lowerInc && !cur.EndValue().Equal(next.StartValue())) {
			return nil, terrors.New(terrors.InvalidInput, "sequence set has overlapping sequences at %s", next.instants[0].String())
		}
		splice, dropLastA, dropFirstB := canSplice(cur, next)
		if !splice {
			out = append(out, next)
			continue
		}
		joined := make([]Instant, 0, len(cur.instants)+len(next.instants))
		if dropLastA {
			joined = append(joined, cur.instants[:len(cur.instants)-1]...)
		} else {
			joined = append(joined, cur.instants...)
		}
		if dropFirstB {
			joined = append(joined, next.instants[1:]...)
		} else {
			joined = append(joined, next.instants...)
		}
		merged, err := NewSequence(joined, cur.lowerInc, next.upperInc, cur.interp)
		if err != nil {
			return nil, terrors.Wrap(err, terrors.Internal, "splicing adjacent sequences")
		}
		out[len(out)-1] = merged
	}
	return out, nil
}
