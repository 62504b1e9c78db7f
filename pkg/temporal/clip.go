package temporal

import (
	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// Liang-Barsky clipping of linear point segments against an STBox: per
// dimension the parametric entry and exit fractions are intersected; the
// segment is inside the box between the largest entry and the smallest
// exit.

// clipSegmentBox clips the segment a..b against the box, returning the
// entry/exit fractions and whether the clipped endpoints touch a max face
// (which borderInc treats as outside).
func clipSegmentBox(a, b span.Point, box STBox) (f0, f1 float64, exitOnMaxFace, entryOnMaxFace, ok bool) {
	f0, f1 = 0, 1
	// one face at a time: p is the directed delta against the face, q the
	// starting clearance; the crossing fraction is q/p
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > f1 {
				return false
			}
			if r > f0 {
				f0 = r
			}
		} else {
			if r < f0 {
				return false
			}
			if r < f1 {
				f1 = r
			}
		}
		return true
	}
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	if !clip(-dx, a.X-box.XMin) || !clip(dx, box.XMax-a.X) {
		return 0, 0, false, false, false
	}
	if !clip(-dy, a.Y-box.YMin) || !clip(dy, box.YMax-a.Y) {
		return 0, 0, false, false, false
	}
	if box.HasZ {
		if !clip(-dz, a.Z-box.ZMin) || !clip(dz, box.ZMax-a.Z) {
			return 0, 0, false, false, false
		}
	}
	if f0 > f1 {
		return 0, 0, false, false, false
	}
	onMaxFace := func(f float64) bool {
		p := interpolatePoint(a, b, f)
		if abs(p.X-box.XMax) <= epsilon || abs(p.Y-box.YMax) <= epsilon {
			return true
		}
		return box.HasZ && abs(p.Z-box.ZMax) <= epsilon
	}
	return f0, f1, onMaxFace(f1), onMaxFace(f0), true
}

// AtSTBox restricts a temporal point to a spatiotemporal box. borderInc
// controls whether positions on the box's max faces count as inside, which
// keeps at/minus complementary when adjacent boxes tile space.
func AtSTBox(tm Temporal, box STBox, borderInc bool) (Temporal, error) {
	if !isPointType(tm.BaseType()) {
		return nil, terrors.New(terrors.UnsupportedOperation, "box restriction over %s", tm.BaseType())
	}
	if own, err := NewSTBox(tm); err == nil && !own.Overlaps(box) {
		return nil, nil
	}
	clipped, err := AtPeriod(tm, box.Period)
	if err != nil || clipped == nil {
		return nil, err
	}
	mask := boxMask(clipped, box, borderInc)
	return AtPeriodSet(clipped, mask)
}

// MinusSTBox keeps the parts of the temporal point outside the box.
func MinusSTBox(tm Temporal, box STBox, borderInc bool) (Temporal, error) {
	if !isPointType(tm.BaseType()) {
		return nil, terrors.New(terrors.UnsupportedOperation, "box restriction over %s", tm.BaseType())
	}
	if own, err := NewSTBox(tm); err == nil && !own.Overlaps(box) {
		return tm, nil
	}
	clipped, err := AtPeriod(tm, box.Period)
	if err != nil {
		return nil, err
	}
	if clipped == nil {
		return tm, nil
	}
	mask := boxMask(clipped, box, borderInc)
	return AtPeriodSet(tm, timeDomain(tm).Minus(mask))
}

// boxMask computes the time domain over which the point lies inside the
// box. Stepwise values apply a per-instant containment test; linear ones
// run the clipper per segment.
func boxMask(tm Temporal, box STBox, borderInc bool) timeset.PeriodSet {
	var periods []timeset.Period
	addInstant := func(in Instant) {
		if box.ContainsPoint(in.value.Point(), borderInc) {
			periods = append(periods, timeset.InstantPeriod(in.t))
		}
	}
	switch x := tm.(type) {
	case Instant:
		addInstant(x)
	case InstantSet:
		for _, in := range x.instants {
			addInstant(in)
		}
	case Sequence:
		periods = sequenceBoxPeriods(x, box, borderInc)
	case SequenceSet:
		for _, s := range x.seqs {
			periods = append(periods, sequenceBoxPeriods(s, box, borderInc)...)
		}
	}
	ps, err := timeset.NewPeriodSet(periods)
	if err != nil {
		return timeset.PeriodSet{}
	}
	return ps
}

func sequenceBoxPeriods(s Sequence, box STBox, borderInc bool) []timeset.Period {
	var periods []timeset.Period
	if s.interp == InterpStep || len(s.instants) == 1 {
		for i, in := range s.instants {
			if !box.ContainsPoint(in.value.Point(), borderInc) {
				continue
			}
			if s.interp == InterpStep && i < len(s.instants)-1 {
				lowerInc := i > 0 || s.lowerInc
				p, err := timeset.NewPeriod(in.t, s.instants[i+1].t, lowerInc, false)
				if err == nil {
					periods = append(periods, p)
				}
				continue
			}
			if i == len(s.instants)-1 && len(s.instants) > 1 && !s.upperInc {
				continue
			}
			periods = append(periods, timeset.InstantPeriod(in.t))
		}
		return periods
	}
	for i := 0; i < len(s.instants)-1; i++ {
		a, b := s.instants[i], s.instants[i+1]
		f0, f1, exitMax, entryMax, ok := clipSegmentBox(a.value.Point(), b.value.Point(), box)
		if !ok {
			continue
		}
		t0 := timeAtFraction(a.t, b.t, f0)
		t1 := timeAtFraction(a.t, b.t, f1)
		loInc := !(!borderInc && entryMax)
		hiInc := !(!borderInc && exitMax)
		if f0 <= 0 {
			t0 = a.t
			loInc = loInc && (i > 0 || s.lowerInc)
		}
		if f1 >= 1 {
			t1 = b.t
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
	return periods
}
