package temporal

import (
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// The lifting engine extends base-type functions to temporal arguments. A
// LiftedFuncInfo describes the base function; the engine owns the dispatch
// over subtype pairs, synchronization, turning-point insertion and the
// splitting of discontinuous results. The materializing entry points
// (TFunc*) and the existential short-circuit ones (EFunc*) share the same
// skeleton, parameterized by an output sink.

// Func1 and Func2 are the base-function forms. Params carries the constant
// extra parameters closed over by the lifted call.
type (
	Func1 func(v span.Value, params []span.Value) (span.Value, error)
	Func2 func(a, b span.Value, params []span.Value) (span.Value, error)
)

// TurnpointFunc detects a turning point of the lifted function between two
// synchronized segments (a1..a2, b1..b2 over the same time interval): a
// timestamp strictly inside the interval where the result has a local
// extremum. For temporal-versus-constant lifting b1 == b2.
type TurnpointFunc func(a1, a2, b1, b2 span.Value, t1, t2 time.Time) (time.Time, bool)

// SegmentIntersectFunc solves the exact crossing between two synchronized
// segments, returning the timestamp strictly inside the interval at which
// the operands become equal.
type SegmentIntersectFunc func(a1, a2, b1, b2 span.Value, t1, t2 time.Time) (time.Time, bool)

// LiftedFuncInfo describes a base function to the lifting engine.
type LiftedFuncInfo struct {
	Arity      int
	Params     []span.Value
	ArgTypes   [2]span.BaseType
	ResultType span.BaseType
	// Invert swaps the operands before dispatch; used to reuse an
	// asymmetric function for the mirrored operand order.
	Invert bool
	// ResultInterpLinear keeps a linear result when every input is linear,
	// skipping the clamp to step for a result type that is not continuous.
	// It does not force linear interpolation: with a step or discrete
	// input the result takes the coarser input mode.
	ResultInterpLinear bool
	// Discont marks functions whose value can change instantaneously
	// between synchronized instants (comparisons, spatial predicates).
	Discont bool

	Fn1 Func1
	Fn2 Func2

	Turnpoint        TurnpointFunc
	SegmentIntersect SegmentIntersectFunc
}

func (info *LiftedFuncInfo) apply1(v span.Value) (span.Value, error) {
	return info.Fn1(v, info.Params)
}

func (info *LiftedFuncInfo) apply2(a, b span.Value) (span.Value, error) {
	if info.Invert {
		a, b = b, a
	}
	return info.Fn2(a, b, info.Params)
}

// resultInterp applies the interpolation rule: the coarser of the inputs'
// modes, clamped to step when the result type cannot interpolate linearly
// unless all inputs are linear and the function sets ResultInterpLinear.
func (info *LiftedFuncInfo) resultInterp(interps ...Interp) Interp {
	out := InterpLinear
	for _, i := range interps {
		if i < out {
			out = i
		}
	}
	if out == InterpLinear && info.ResultInterpLinear {
		return InterpLinear
	}
	if out == InterpLinear && !info.ResultType.Continuous() {
		out = InterpStep
	}
	return out
}

// sink receives result pieces as they are produced. Returning false stops
// the evaluation early; the existential variant uses this to short-circuit.
type sink func(piece Temporal) bool

// collector materializes pieces and assembles them into the result value.
type collector struct {
	instants []Instant
	seqs     []Sequence
}

func (c *collector) sink() sink {
	return func(piece Temporal) bool {
		switch p := piece.(type) {
		case Instant:
			c.instants = append(c.instants, p)
		case Sequence:
			c.seqs = append(c.seqs, p)
		}
		return true
	}
}

// result builds the final temporal value. wantSequenceSet forces a sequence
// set even for a single sequence (restrictions and discontinuous lifts over
// linear inputs fragment their result by contract).
func (c *collector) result(wantSequenceSet bool) (Temporal, error) {
	switch {
	case len(c.instants) == 0 && len(c.seqs) == 0:
		return nil, nil
	case len(c.seqs) == 0:
		if len(c.instants) == 1 {
			return c.instants[0], nil
		}
		set, err := NewInstantSet(c.instants)
		if err != nil {
			return nil, err
		}
		return set, nil
	case len(c.instants) == 0:
		if len(c.seqs) == 1 && !wantSequenceSet {
			return c.seqs[0], nil
		}
		set, err := NewSequenceSet(c.seqs)
		if err != nil {
			return nil, err
		}
		return set, nil
	}
	return nil, terrors.New(terrors.Internal, "lifting produced mixed instant and sequence pieces")
}

// TFuncTemporal lifts a unary base function over a temporal value.
func TFuncTemporal(tm Temporal, info *LiftedFuncInfo) (Temporal, error) {
	c := &collector{}
	if err := lift1(tm, info, c.sink()); err != nil {
		return nil, err
	}
	return c.result(tm.Subtype() == SubSequenceSet)
}

func lift1(tm Temporal, info *LiftedFuncInfo, out sink) error {
	mapInstant := func(in Instant) (Instant, error) {
		v, err := info.apply1(in.value)
		if err != nil {
			return Instant{}, err
		}
		return NewInstant(v, in.t)
	}
	switch x := tm.(type) {
	case Instant:
		r, err := mapInstant(x)
		if err != nil {
			return err
		}
		out(r)
		return nil
	case InstantSet:
		for _, in := range x.instants {
			r, err := mapInstant(in)
			if err != nil {
				return err
			}
			if !out(r) {
				return nil
			}
		}
		return nil
	case Sequence:
		mapped := make([]Instant, 0, len(x.instants))
		for _, in := range x.instants {
			r, err := mapInstant(in)
			if err != nil {
				return err
			}
			mapped = append(mapped, r)
		}
		seq, err := NewSequence(mapped, x.lowerInc, x.upperInc, info.resultInterp(x.interp))
		if err != nil {
			return err
		}
		out(seq)
		return nil
	case SequenceSet:
		for _, s := range x.seqs {
			if err := lift1(s, info, out); err != nil {
				return err
			}
		}
		return nil
	}
	return terrors.New(terrors.Internal, "unknown subtype in unary lifting")
}

// TFuncTemporalValue lifts a binary base function over a temporal value and
// a constant.
func TFuncTemporalValue(tm Temporal, v span.Value, info *LiftedFuncInfo) (Temporal, error) {
	c := &collector{}
	if err := liftValue(tm, v, info, c.sink()); err != nil {
		return nil, err
	}
	fragmenting := info.Discont && tm.Interp() == InterpLinear
	return c.result(tm.Subtype() == SubSequenceSet || fragmenting)
}

// EFuncTemporalValue is the existential variant: it reports whether the
// lifted predicate is ever true, stopping at the first hit.
func EFuncTemporalValue(tm Temporal, v span.Value, info *LiftedFuncInfo) (bool, error) {
	found := false
	err := liftValue(tm, v, info, existsSink(&found))
	return found, err
}

// existsSink scans emitted pieces for a true boolean and stops the
// evaluation once one is seen.
func existsSink(found *bool) sink {
	return func(piece Temporal) bool {
		for i := 0; i < piece.NumInstants(); i++ {
			if piece.InstantN(i).value.Bool() {
				*found = true
				return false
			}
		}
		return true
	}
}

func liftValue(tm Temporal, v span.Value, info *LiftedFuncInfo, out sink) error {
	mapInstant := func(in Instant) (Instant, error) {
		r, err := info.apply2(in.value, v)
		if err != nil {
			return Instant{}, err
		}
		return NewInstant(r, in.t)
	}
	switch x := tm.(type) {
	case Instant:
		r, err := mapInstant(x)
		if err != nil {
			return err
		}
		out(r)
		return nil
	case InstantSet:
		for _, in := range x.instants {
			r, err := mapInstant(in)
			if err != nil {
				return err
			}
			if !out(r) {
				return nil
			}
		}
		return nil
	case Sequence:
		if info.Discont && x.interp == InterpLinear {
			return liftSegmentsDiscont(x.instants, constSegments(x.instants, v),
				x.lowerInc, x.upperInc, x.interp, info, out)
		}
		return liftSeqValueCont(x, v, info, out)
	case SequenceSet:
		for _, s := range x.seqs {
			if err := liftValue(s, v, info, out); err != nil {
				return err
			}
		}
		return nil
	}
	return terrors.New(terrors.Internal, "unknown subtype in value lifting")
}

// constSegments builds the constant companion track aligned with the given
// instants.
func constSegments(instants []Instant, v span.Value) []Instant {
	out := make([]Instant, len(instants))
	for i, in := range instants {
		out[i] = Instant{value: v, t: in.t}
	}
	return out
}

// liftSeqValueCont maps a continuous (non-splitting) function over a
// sequence against a constant, inserting turning points when the function
// has in-segment extrema.
func liftSeqValueCont(s Sequence, v span.Value, info *LiftedFuncInfo, out sink) error {
	source := s.instants
	if info.Turnpoint != nil && s.interp == InterpLinear {
		source = insertTurnpoints(source, constSegments(source, v), s.interp, info)
	}
	mapped := make([]Instant, 0, len(source))
	for _, in := range source {
		r, err := info.apply2(in.value, v)
		if err != nil {
			return err
		}
		ri, err := NewInstant(r, in.t)
		if err != nil {
			return err
		}
		mapped = append(mapped, ri)
	}
	interp := info.resultInterp(s.interp)
	mapped = fixStepTail(mapped, interp, s.upperInc)
	seq, err := NewSequence(mapped, s.lowerInc, s.upperInc, interp)
	if err != nil {
		return err
	}
	out(seq)
	return nil
}

// fixStepTail repairs the trailing-constant invariant when a lifted result
// drops to step interpolation on a half-open sequence: the final mapped
// value never takes effect, so it is replaced by the held value.
func fixStepTail(instants []Instant, interp Interp, upperInc bool) []Instant {
	if interp != InterpStep || upperInc || len(instants) < 2 {
		return instants
	}
	last := len(instants) - 1
	instants[last].value = instants[last-1].value
	return instants
}

// insertTurnpoints adds instants at every turning point the function
// reports between consecutive track positions. Both tracks must be aligned;
// the returned slice is the a-track with synthetic instants spliced in (the
// b-track positions are interpolated on demand by the caller's function).
func insertTurnpoints(a, b []Instant, interp Interp, info *LiftedFuncInfo) []Instant {
	out := make([]Instant, 0, len(a))
	for i := 0; i < len(a); i++ {
		out = append(out, a[i])
		if i == len(a)-1 {
			break
		}
		tp, ok := info.Turnpoint(a[i].value, a[i+1].value, b[i].value, b[i+1].value, a[i].t, a[i+1].t)
		if !ok || !tp.After(a[i].t) || !tp.Before(a[i+1].t) {
			continue
		}
		frac := segmentFraction(a[i], a[i+1], tp)
		av := interpolateSegment(a[i], a[i+1], interp, frac)
		out = append(out, Instant{value: av, t: tp})
	}
	return out
}

// TFuncTemporalTemporal lifts a binary base function over two temporal
// values, synchronizing them on their common time domain.
func TFuncTemporalTemporal(a, b Temporal, info *LiftedFuncInfo) (Temporal, error) {
	c := &collector{}
	if err := lift2(a, b, info, c.sink()); err != nil {
		return nil, err
	}
	fragmenting := info.Discont && (a.Interp() == InterpLinear || b.Interp() == InterpLinear)
	mixed := bothSequenceFamily(a, b) && a.Interp() != b.Interp()
	wantSet := a.Subtype() == SubSequenceSet || b.Subtype() == SubSequenceSet || fragmenting || mixed
	return c.result(wantSet)
}

// EFuncTemporalTemporal reports whether the lifted predicate is ever true
// over the synchronized pair, stopping at the first hit.
func EFuncTemporalTemporal(a, b Temporal, info *LiftedFuncInfo) (bool, error) {
	found := false
	err := lift2(a, b, info, existsSink(&found))
	return found, err
}

func bothSequenceFamily(a, b Temporal) bool {
	aSeq := a.Subtype() == SubSequence || a.Subtype() == SubSequenceSet
	bSeq := b.Subtype() == SubSequence || b.Subtype() == SubSequenceSet
	return aSeq && bSeq
}

func lift2(a, b Temporal, info *LiftedFuncInfo, out sink) error {
	// bounding-period short-circuit: disjoint time domains produce the
	// empty result, never an error
	if !a.Period().Overlaps(b.Period()) {
		return nil
	}
	switch x := a.(type) {
	case Instant:
		return liftInstantAny(x, b, false, info, out)
	case InstantSet:
		for _, in := range x.instants {
			if err := liftInstantAny(in, b, false, info, out); err != nil {
				return err
			}
		}
		return nil
	case Sequence:
		switch y := b.(type) {
		case Instant:
			return liftInstantAny(y, x, true, info, out)
		case InstantSet:
			for _, in := range y.instants {
				if err := liftInstantAny(in, x, true, info, out); err != nil {
					return err
				}
			}
			return nil
		case Sequence:
			return liftSeqSeq(x, y, info, out)
		case SequenceSet:
			for _, s := range y.seqs {
				if !s.Period().Overlaps(x.Period()) {
					continue
				}
				if err := liftSeqSeq(x, s, info, out); err != nil {
					return err
				}
			}
			return nil
		}
	case SequenceSet:
		for _, s := range x.seqs {
			if !s.Period().Overlaps(b.Period()) {
				continue
			}
			if err := lift2(s, b, info, out); err != nil {
				return err
			}
		}
		return nil
	}
	return terrors.New(terrors.Internal, "unknown subtype pair in binary lifting")
}

// liftInstantAny evaluates the pair at the instant's timestamp. inverted
// marks that the instant is the second operand.
func liftInstantAny(in Instant, other Temporal, inverted bool, info *LiftedFuncInfo, out sink) error {
	ov, ok := other.ValueAt(in.t)
	if !ok {
		return nil
	}
	var r span.Value
	var err error
	if inverted {
		r, err = info.apply2(ov, in.value)
	} else {
		r, err = info.apply2(in.value, ov)
	}
	if err != nil {
		return err
	}
	ri, err := NewInstant(r, in.t)
	if err != nil {
		return err
	}
	out(ri)
	return nil
}

func liftSeqSeq(a, b Sequence, info *LiftedFuncInfo, out sink) error {
	if a.interp != b.interp {
		return liftSeqSeqMixed(a, b, info, out)
	}
	sr, ok := synchronizeSequences(a, b, info.Discont && a.interp == InterpLinear)
	if !ok {
		return nil
	}
	if len(sr.a) == 1 {
		r, err := info.apply2(sr.a[0].value, sr.b[0].value)
		if err != nil {
			return err
		}
		ri, err := NewInstant(r, sr.a[0].t)
		if err != nil {
			return err
		}
		out(ri)
		return nil
	}
	if info.Discont && a.interp == InterpLinear {
		return liftSegmentsDiscont(sr.a, sr.b, sr.lowerInc, sr.upperInc, a.interp, info, out)
	}
	source := sr.a
	bTrack := sr.b
	if info.Turnpoint != nil && a.interp == InterpLinear {
		merged := insertTurnpointsPair(sr.a, sr.b, info)
		source, bTrack = merged.a, merged.b
	}
	mapped := make([]Instant, 0, len(source))
	for i := range source {
		r, err := info.apply2(source[i].value, bTrack[i].value)
		if err != nil {
			return err
		}
		ri, err := NewInstant(r, source[i].t)
		if err != nil {
			return err
		}
		mapped = append(mapped, ri)
	}
	interp := info.resultInterp(a.interp, b.interp)
	mapped = fixStepTail(mapped, interp, sr.upperInc)
	seq, err := NewSequence(mapped, sr.lowerInc, sr.upperInc, interp)
	if err != nil {
		return err
	}
	out(seq)
	return nil
}

// insertTurnpointsPair splices turning-point instants into both
// synchronized tracks.
func insertTurnpointsPair(a, b []Instant, info *LiftedFuncInfo) syncResult {
	out := syncResult{}
	for i := 0; i < len(a); i++ {
		out.a = append(out.a, a[i])
		out.b = append(out.b, b[i])
		if i == len(a)-1 {
			break
		}
		tp, ok := info.Turnpoint(a[i].value, a[i+1].value, b[i].value, b[i+1].value, a[i].t, a[i+1].t)
		if !ok || !tp.After(a[i].t) || !tp.Before(a[i+1].t) {
			continue
		}
		frac := segmentFraction(a[i], a[i+1], tp)
		out.a = append(out.a, Instant{value: interpolateSegment(a[i], a[i+1], InterpLinear, frac), t: tp})
		out.b = append(out.b, Instant{value: interpolateSegment(b[i], b[i+1], InterpLinear, frac), t: tp})
	}
	return out
}

// liftSeqSeqMixed lowers the stepwise side to constant sub-segments over
// the linear side and recurses on each piece against the held constant.
func liftSeqSeqMixed(a, b Sequence, info *LiftedFuncInfo, out sink) error {
	stepSide, linSide := a, b
	if a.interp == InterpLinear {
		stepSide, linSide = b, a
	}
	sub := *info
	if a.interp == InterpStep {
		// the recursion evaluates f(linear, const) but the step side was the
		// first operand, so the operand order flips
		sub.Invert = !info.Invert
	}
	for i := 0; i < len(stepSide.instants); i++ {
		in := stepSide.instants[i]
		var until time.Time
		var upperInc bool
		if i == len(stepSide.instants)-1 {
			until, upperInc = in.t, stepSide.upperInc
			if !upperInc {
				break
			}
		} else {
			until, upperInc = stepSide.instants[i+1].t, false
		}
		lowerInc := true
		if i == 0 {
			lowerInc = stepSide.lowerInc
		}
		piece, err := timeset.NewPeriod(in.t, until, lowerInc, upperInc)
		if err != nil {
			return err
		}
		clip, ok := restrictSequencePeriod(linSide, piece)
		if !ok {
			continue
		}
		if err := liftValue(clip, in.value, &sub, out); err != nil {
			return err
		}
	}
	return nil
}

// liftSegmentsDiscont splits each synchronized segment around touches and
// crossings so that every emitted piece carries a constant result. Pieces
// alternate single-instant sequences at the special timestamps and open
// runs between them; sequence-set normalization fuses equal-valued
// neighbours back together.
func liftSegmentsDiscont(a, b []Instant, lowerInc, upperInc bool, interp Interp, info *LiftedFuncInfo, out sink) error {
	evalAt := func(i int, frac float64, t time.Time) (Instant, error) {
		av := interpolateSegment(a[i], a[i+1], interp, frac)
		bv := interpolateSegment(b[i], b[i+1], interp, frac)
		r, err := info.apply2(av, bv)
		if err != nil {
			return Instant{}, err
		}
		return NewInstant(r, t)
	}
	emitPoint := func(in Instant) (bool, error) {
		seq, err := NewSequence([]Instant{in}, true, true, InterpStep)
		if err != nil {
			return false, err
		}
		return out(seq), nil
	}
	emitOpenRun := func(u, v Instant) (bool, error) {
		end := Instant{value: u.value, t: v.t}
		seq, err := NewSequence([]Instant{u, end}, false, false, InterpStep)
		if err != nil {
			return false, err
		}
		return out(seq), nil
	}

	for i := 0; i < len(a)-1; i++ {
		t1, t2 := a[i].t, a[i+1].t
		// the joint instant belongs to this piece when in domain
		if i > 0 || lowerInc {
			p, err := evalAt(i, 0, t1)
			if err != nil {
				return err
			}
			more, err := emitPoint(p)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		// special timestamps strictly inside the segment
		var cross time.Time
		hasCross := false
		if info.SegmentIntersect != nil {
			cross, hasCross = info.SegmentIntersect(a[i].value, a[i+1].value, b[i].value, b[i+1].value, t1, t2)
			if hasCross && (!cross.After(t1) || !cross.Before(t2)) {
				hasCross = false
			}
		}
		bounds := []time.Time{t1}
		if hasCross {
			bounds = append(bounds, cross)
		}
		bounds = append(bounds, t2)
		for j := 0; j < len(bounds)-1; j++ {
			u, v := bounds[j], bounds[j+1]
			if j > 0 {
				// the crossing point itself
				f := segmentFraction(a[i], a[i+1], u)
				p, err := evalAt(i, f, u)
				if err != nil {
					return err
				}
				more, err := emitPoint(p)
				if err != nil {
					return err
				}
				if !more {
					return nil
				}
			}
			mid := u.Add(v.Sub(u) / 2)
			f := segmentFraction(a[i], a[i+1], mid)
			rep, err := evalAt(i, f, mid)
			if err != nil {
				return err
			}
			start := Instant{value: rep.value, t: u}
			end := Instant{value: rep.value, t: v}
			more, err := emitOpenRun(start, end)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
	}
	if upperInc {
		last := len(a) - 1
		r, err := info.apply2(a[last].value, b[last].value)
		if err != nil {
			return err
		}
		ri, err := NewInstant(r, a[last].t)
		if err != nil {
			return err
		}
		if _, err := emitPoint(ri); err != nil {
			return err
		}
	}
	return nil
}
