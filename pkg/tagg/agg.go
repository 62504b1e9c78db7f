package tagg

import (
	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/temporal"
	"github.com/tempora-db/tempora/pkg/terrors"
)

// Reducer enumerates the supported aggregates. All base combiners are
// associative and commutative; the enum is closed so nothing else can be
// injected into the combine path.
type Reducer uint8

const (
	TMin Reducer = iota + 1
	TMax
	TSum
	TCount
	TAvg
	TAnd
	TOr
)

func (r Reducer) String() string {
	switch r {
	case TMin:
		return "tmin"
	case TMax:
		return "tmax"
	case TSum:
		return "tsum"
	case TCount:
		return "tcount"
	case TAvg:
		return "tavg"
	case TAnd:
		return "tand"
	case TOr:
		return "tor"
	}
	return "unknown-reducer"
}

// ParseReducer resolves a reducer name.
func ParseReducer(s string) (Reducer, error) {
	for _, r := range []Reducer{TMin, TMax, TSum, TCount, TAvg, TAnd, TOr} {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, terrors.New(terrors.InvalidInput, "unknown reducer %q", s)
}

// combine is the reducer's binary base function over accumulator values.
func (r Reducer) combine(a, b span.Value) (span.Value, error) {
	switch r {
	case TMin:
		if b.Less(a) {
			return b, nil
		}
		return a, nil
	case TMax:
		if a.Less(b) {
			return b, nil
		}
		return a, nil
	case TSum, TCount:
		switch a.Type() {
		case span.TypeInt32:
			return span.NewInt32(int32(a.Int() + b.Int())), nil
		case span.TypeInt64:
			return span.NewInt64(a.Int() + b.Int()), nil
		case span.TypeFloat64:
			return span.NewFloat64(a.Float() + b.Float()), nil
		}
		return span.Value{}, terrors.New(terrors.UnsupportedOperation, "%s over %s", r, a.Type())
	case TAvg:
		pa, pb := a.Point(), b.Point()
		return span.NewPoint(span.TypeGeom2D, span.Point{X: pa.X + pb.X, Y: pa.Y + pb.Y}), nil
	case TAnd:
		return span.NewBool(a.Bool() && b.Bool()), nil
	case TOr:
		return span.NewBool(a.Bool() || b.Bool()), nil
	}
	return span.Value{}, terrors.New(terrors.Internal, "unknown reducer")
}

// crossings reports whether the reducer needs crossing insertion when
// merging linear pieces: min and max switch branches where the tracks
// cross.
func (r Reducer) crossings() bool {
	return r == TMin || r == TMax
}

// transform lifts an incoming value into the reducer's accumulator shape.
func (r Reducer) transform(tm temporal.Temporal) (temporal.Temporal, error) {
	switch r {
	case TMin, TMax:
		return tm, nil
	case TSum:
		return tm, nil
	case TAnd, TOr:
		if tm.BaseType() != span.TypeBool {
			return nil, terrors.New(terrors.UnsupportedOperation, "%s over %s", r, tm.BaseType())
		}
		return tm, nil
	case TCount:
		info := &temporal.LiftedFuncInfo{
			Arity:      1,
			ArgTypes:   [2]span.BaseType{tm.BaseType()},
			ResultType: span.TypeInt32,
			Fn1: func(span.Value, []span.Value) (span.Value, error) {
				return span.NewInt32(1), nil
			},
		}
		return temporal.TFuncTemporal(tm, info)
	case TAvg:
		switch tm.BaseType() {
		case span.TypeInt32, span.TypeInt64, span.TypeFloat64:
		default:
			return nil, terrors.New(terrors.UnsupportedOperation, "tavg over %s", tm.BaseType())
		}
		// each value becomes the (sum, count) pair carried as a 2D point
		info := &temporal.LiftedFuncInfo{
			Arity:              1,
			ArgTypes:           [2]span.BaseType{tm.BaseType()},
			ResultType:         span.TypeGeom2D,
			ResultInterpLinear: tm.Interp() == temporal.InterpLinear,
			Fn1: func(v span.Value, _ []span.Value) (span.Value, error) {
				return span.NewPoint(span.TypeGeom2D, span.Point{X: v.AsFloat(), Y: 1}), nil
			},
		}
		return temporal.TFuncTemporal(tm, info)
	}
	return nil, terrors.New(terrors.Internal, "unknown reducer")
}

// State is the accumulator of one aggregation. It is not safe for
// concurrent use; combine merges two states built independently.
type State struct {
	reducer Reducer
	list    *skipList
	// instantKind pins the shape of stored pieces: instants and sequences
	// cannot be mixed within one aggregate
	instantKind bool
	shaped      bool
}

// NewState creates an empty accumulator for the reducer.
func NewState(r Reducer) *State {
	return &State{reducer: r, list: newSkipList(int64(r))}
}

func (s *State) Reducer() Reducer { return s.reducer }

// Transition folds one input value into the state.
func (s *State) Transition(tm temporal.Temporal) error {
	shaped, err := s.reducer.transform(tm)
	if err != nil {
		return err
	}
	return s.merge(shaped)
}

func (s *State) merge(tm temporal.Temporal) error {
	incoming, instantKind, err := pieces(tm)
	if err != nil {
		return err
	}
	if s.shaped && instantKind != s.instantKind {
		return terrors.New(terrors.UnsupportedOperation, "cannot mix instant and sequence inputs in one aggregate")
	}
	s.instantKind = instantKind
	s.shaped = true
	metricTransitions.WithLabelValues(s.reducer.String()).Inc()
	err = s.list.splice(incoming, s.mergeRun)
	metricStateSize.WithLabelValues(s.reducer.String()).Set(float64(s.list.length))
	return err
}

// pieces explodes a temporal value into the disjoint pieces stored in the
// skiplist: instants for the instant family, sequences otherwise.
func pieces(tm temporal.Temporal) ([]temporal.Temporal, bool, error) {
	switch x := tm.(type) {
	case temporal.Instant:
		return []temporal.Temporal{x}, true, nil
	case temporal.InstantSet:
		out := make([]temporal.Temporal, 0, x.NumInstants())
		for i := 0; i < x.NumInstants(); i++ {
			out = append(out, x.InstantN(i))
		}
		return out, true, nil
	case temporal.Sequence:
		return []temporal.Temporal{x}, false, nil
	case temporal.SequenceSet:
		out := make([]temporal.Temporal, 0, x.NumSequences())
		for i := 0; i < x.NumSequences(); i++ {
			out = append(out, x.SequenceN(i))
		}
		return out, false, nil
	}
	return nil, false, terrors.New(terrors.Internal, "unknown subtype in aggregation")
}

// mergeRun folds two ordered runs of disjoint pieces, combining overlaps
// under the reducer's base function.
func (s *State) mergeRun(a, b []temporal.Temporal) ([]temporal.Temporal, error) {
	if err := checkNotEmpty(a); err != nil {
		return nil, err
	}
	if err := checkNotEmpty(b); err != nil {
		return nil, err
	}
	if s.instantKind {
		return s.mergeInstantRuns(a, b)
	}
	return s.mergeSequenceRuns(a, b)
}

func (s *State) mergeInstantRuns(a, b []temporal.Temporal) ([]temporal.Temporal, error) {
	var out []temporal.Temporal
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ia, ib := a[i].(temporal.Instant), b[j].(temporal.Instant)
		ta, tb := ia.Timestamp(), ib.Timestamp()
		switch {
		case ta.Equal(tb):
			v, err := s.reducer.combine(ia.Value(), ib.Value())
			if err != nil {
				return nil, err
			}
			merged, err := temporal.NewInstant(v, ta)
			if err != nil {
				return nil, err
			}
			out = append(out, merged)
			metricMerges.WithLabelValues(s.reducer.String()).Inc()
			i++
			j++
		case ta.Before(tb):
			out = append(out, ia)
			i++
		default:
			out = append(out, ib)
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out, nil
}

func (s *State) mergeSequenceRuns(a, b []temporal.Temporal) ([]temporal.Temporal, error) {
	var out []temporal.Temporal
	i, j := 0, 0
	var pendingA, pendingB *temporal.Sequence
	nextA := func() (temporal.Sequence, bool) {
		if pendingA != nil {
			s := *pendingA
			pendingA = nil
			return s, true
		}
		if i < len(a) {
			s := a[i].(temporal.Sequence)
			i++
			return s, true
		}
		return temporal.Sequence{}, false
	}
	nextB := func() (temporal.Sequence, bool) {
		if pendingB != nil {
			s := *pendingB
			pendingB = nil
			return s, true
		}
		if j < len(b) {
			s := b[j].(temporal.Sequence)
			j++
			return s, true
		}
		return temporal.Sequence{}, false
	}
	for {
		sa, okA := nextA()
		sb, okB := nextB()
		if !okA && !okB {
			break
		}
		if !okA {
			out = append(out, sb)
			continue
		}
		if !okB {
			out = append(out, sa)
			continue
		}
		pre, mid, postA, postB, err := s.mergeSequencePair(sa, sb)
		if err != nil {
			return nil, err
		}
		out = append(out, pre...)
		out = append(out, mid...)
		if postA != nil {
			pendingA = postA
		}
		if postB != nil {
			pendingB = postB
		}
	}
	return out, nil
}

// mergeSequencePair folds two sequences: the part of the earlier one
// before the overlap passes through, the overlap is combined pointwise,
// and whatever extends past the overlap is handed back for the next round.
func (s *State) mergeSequencePair(sa, sb temporal.Sequence) (pre, mid []temporal.Temporal, postA, postB *temporal.Sequence, err error) {
	pa, pb := sa.Period(), sb.Period()
	if !pa.Overlaps(pb) {
		if pa.Before(pb) {
			return []temporal.Temporal{sa}, nil, nil, &sb, nil
		}
		return []temporal.Temporal{sb}, nil, &sa, nil, nil
	}
	inter, _ := pa.Intersection(pb)
	combined, ok, err := temporal.SyncApply(sa, sb, s.reducer.combine, s.reducer.crossings())
	if err != nil {
		return nil, nil, nil, nil, err
	}
	metricMerges.WithLabelValues(s.reducer.String()).Inc()

	clipBefore := func(seq temporal.Sequence) []temporal.Temporal {
		rest, err := temporal.MinusPeriod(seq, inter)
		if err != nil || rest == nil {
			return nil
		}
		var outs []temporal.Temporal
		ps, _, _ := pieces(rest)
		for _, p := range ps {
			if p.Period().Before(inter) {
				outs = append(outs, p)
			}
		}
		return outs
	}
	clipAfter := func(seq temporal.Sequence) *temporal.Sequence {
		rest, err := temporal.MinusPeriod(seq, inter)
		if err != nil || rest == nil {
			return nil
		}
		ps, _, _ := pieces(rest)
		for _, p := range ps {
			if inter.Before(p.Period()) {
				if sq, ok := p.(temporal.Sequence); ok {
					return &sq
				}
			}
		}
		return nil
	}

	pre = append(pre, clipBefore(sa)...)
	pre = append(pre, clipBefore(sb)...)
	if ok {
		mid = append(mid, combined)
	}
	return pre, mid, clipAfter(sa), clipAfter(sb), nil
}

// Combine merges another state into this one; the other state's pieces are
// already in accumulator shape, so no transform runs. This is the
// out-of-order path used when partial aggregates meet.
func (s *State) Combine(o *State) error {
	if o == nil || !o.shaped {
		return nil
	}
	if s.reducer != o.reducer {
		return terrors.New(terrors.InvalidInput, "combining %s state with %s state", s.reducer, o.reducer)
	}
	for _, v := range o.list.values() {
		if err := s.merge(v); err != nil {
			return err
		}
	}
	return nil
}

// Final assembles the aggregate result. For tavg the (sum, count) pairs
// are divided out into floats; everything else merges the stored pieces
// directly. An empty state yields (nil, nil).
func (s *State) Final() (temporal.Temporal, error) {
	vals := s.list.values()
	if len(vals) == 0 {
		return nil, nil
	}
	merged, err := temporal.Merge(vals...)
	if err != nil {
		return nil, err
	}
	if s.reducer != TAvg {
		return merged, nil
	}
	info := &temporal.LiftedFuncInfo{
		Arity:              1,
		ArgTypes:           [2]span.BaseType{span.TypeGeom2D},
		ResultType:         span.TypeFloat64,
		ResultInterpLinear: merged.Interp() == temporal.InterpLinear,
		Fn1: func(v span.Value, _ []span.Value) (span.Value, error) {
			p := v.Point()
			if p.Y == 0 {
				return span.Value{}, terrors.New(terrors.InvalidInput, "tavg finalization with zero count")
			}
			return span.NewFloat64(p.X / p.Y), nil
		},
	}
	return temporal.TFuncTemporal(merged, info)
}
