package temporal

import (
	"time"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// Restriction of temporal points to an arbitrary 2D geometry, with an
// optional Z span and period. The trajectory of each (self-intersection
// free) fragment is intersected with the geometry by the 2D geometry
// engine and the spatial result is mapped back to time.

// AtGeometry restricts a temporal point to the 2D geometry g, optionally
// pre-restricted to a period and post-restricted to a Z span for 3D
// points. An empty intersection returns (nil, nil).
func AtGeometry(tm Temporal, g geom.Geometry, zspan *span.Span, p *timeset.Period) (Temporal, error) {
	if !isPointType(tm.BaseType()) {
		return nil, terrors.New(terrors.UnsupportedOperation, "geometry restriction over %s", tm.BaseType())
	}
	if g.IsEmpty() {
		return nil, nil
	}
	work := tm
	if p != nil {
		clipped, err := AtPeriod(tm, *p)
		if err != nil || clipped == nil {
			return nil, err
		}
		work = clipped
	}
	mask, err := geometryMask(work, g)
	if err != nil {
		return nil, err
	}
	if zspan != nil && tm.Flags().HasZ() {
		zmask, err := zSpanMask(work, *zspan)
		if err != nil {
			return nil, err
		}
		mask = mask.Intersection(zmask)
	}
	return AtPeriodSet(work, mask)
}

// MinusGeometry keeps the parts of the temporal point outside g. An empty
// geometry returns the value unchanged.
func MinusGeometry(tm Temporal, g geom.Geometry, zspan *span.Span, p *timeset.Period) (Temporal, error) {
	if !isPointType(tm.BaseType()) {
		return nil, terrors.New(terrors.UnsupportedOperation, "geometry restriction over %s", tm.BaseType())
	}
	if g.IsEmpty() {
		return tm, nil
	}
	at, err := AtGeometry(tm, g, zspan, p)
	if err != nil {
		return nil, err
	}
	if at == nil {
		return tm, nil
	}
	return AtPeriodSet(tm, timeDomain(tm).Minus(timeDomain(at)))
}

// geometryMask computes the time domain over which the point lies inside
// the geometry.
func geometryMask(tm Temporal, g geom.Geometry) (timeset.PeriodSet, error) {
	var periods []timeset.Period
	addInstant := func(in Instant) {
		if pointIntersects(in.value.Point(), g) {
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
		ps, err := sequenceGeometryPeriods(x, g)
		if err != nil {
			return timeset.PeriodSet{}, err
		}
		periods = append(periods, ps...)
	case SequenceSet:
		for _, s := range x.seqs {
			ps, err := sequenceGeometryPeriods(s, g)
			if err != nil {
				return timeset.PeriodSet{}, err
			}
			periods = append(periods, ps...)
		}
	}
	return timeset.NewPeriodSet(periods)
}

func pointIntersects(p span.Point, g geom.Geometry) bool {
	pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Type: geom.DimXY})
	return geom.Intersects(pt.AsGeometry(), g)
}

func sequenceGeometryPeriods(s Sequence, g geom.Geometry) ([]timeset.Period, error) {
	if s.interp == InterpStep || len(s.instants) == 1 {
		var periods []timeset.Period
		for i, in := range s.instants {
			if !pointIntersects(in.value.Point(), g) {
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
		return periods, nil
	}
	var periods []timeset.Period
	for _, frag := range simpleFragments(s) {
		ps, err := fragmentGeometryPeriods(frag, g)
		if err != nil {
			return nil, err
		}
		periods = append(periods, ps...)
	}
	return periods, nil
}

// simpleFragments splits a linear sequence into runs whose trajectories
// are simple (no two segments cross except at shared endpoints). Splits
// happen at instant boundaries: when a segment intersects any earlier
// segment of the current run, a new run starts at its first instant.
func simpleFragments(s Sequence) [][]Instant {
	ins := s.instants
	var out [][]Instant
	start := 0
	for i := 1; i < len(ins)-1; i++ {
		a1 := ins[i].value.Point()
		a2 := ins[i+1].value.Point()
		selfHit := false
		for j := start; j < i-1; j++ {
			b1 := ins[j].value.Point()
			b2 := ins[j+1].value.Point()
			// the immediately preceding segment is skipped: sharing a vertex
			// with it is not a self-intersection
			_, _, hit, overlap := segIntersect2D(a1, a2, b1, b2)
			if hit || overlap {
				selfHit = true
				break
			}
		}
		if selfHit {
			out = append(out, ins[start:i+1])
			start = i
		}
	}
	out = append(out, ins[start:])
	return out
}

// fragmentGeometryPeriods intersects a simple fragment's trajectory with
// the geometry and maps the spatial result back to periods.
func fragmentGeometryPeriods(frag []Instant, g geom.Geometry) ([]timeset.Period, error) {
	traj, ok := trajectoryGeometry(frag)
	if !ok {
		// degenerate (stationary) fragment: containment decides the whole run
		if pointIntersects(frag[0].value.Point(), g) {
			p, err := timeset.NewPeriod(frag[0].t, frag[len(frag)-1].t, true, true)
			if err != nil {
				return nil, err
			}
			return []timeset.Period{p}, nil
		}
		return nil, nil
	}
	inter, err := geom.Intersection(traj, g)
	if err != nil {
		return nil, terrors.Wrap(err, terrors.Internal, "trajectory intersection")
	}
	if inter.IsEmpty() {
		return nil, nil
	}
	var periods []timeset.Period
	collectGeometry(inter, func(piece geom.Geometry) {
		periods = append(periods, spatialPieceToPeriods(piece, frag)...)
	})
	return periods, nil
}

// trajectoryGeometry builds the 2D linestring traced by the fragment. ok
// is false when all positions coincide.
func trajectoryGeometry(frag []Instant) (geom.Geometry, bool) {
	coords := make([]float64, 0, len(frag)*2)
	moved := false
	first := frag[0].value.Point()
	for _, in := range frag {
		p := in.value.Point()
		coords = append(coords, p.X, p.Y)
		if !pointEq2D(p, first) {
			moved = true
		}
	}
	if !moved {
		return geom.Geometry{}, false
	}
	ls := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	return ls.AsGeometry(), true
}

// collectGeometry flattens multi-geometries and collections into their
// atomic pieces.
func collectGeometry(g geom.Geometry, emit func(geom.Geometry)) {
	switch g.Type() {
	case geom.TypeMultiPoint:
		mp := g.MustAsMultiPoint()
		for i := 0; i < mp.NumPoints(); i++ {
			emit(mp.PointN(i).AsGeometry())
		}
	case geom.TypeMultiLineString:
		ml := g.MustAsMultiLineString()
		for i := 0; i < ml.NumLineStrings(); i++ {
			emit(ml.LineStringN(i).AsGeometry())
		}
	case geom.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		for i := 0; i < gc.NumGeometries(); i++ {
			collectGeometry(gc.GeometryN(i), emit)
		}
	default:
		emit(g)
	}
}

// spatialPieceToPeriods maps one atomic intersection piece back to time: a
// point becomes the timestamp where the trajectory passes it, a linestring
// the interval between its first and last position.
func spatialPieceToPeriods(piece geom.Geometry, frag []Instant) []timeset.Period {
	switch piece.Type() {
	case geom.TypePoint:
		xy, ok := piece.MustAsPoint().XY()
		if !ok {
			return nil
		}
		t, ok := locateTime(frag, span.Point{X: xy.X, Y: xy.Y})
		if !ok {
			return nil
		}
		return []timeset.Period{timeset.InstantPeriod(t)}
	case geom.TypeLineString:
		seq := piece.MustAsLineString().Coordinates()
		n := seq.Length()
		if n == 0 {
			return nil
		}
		startXY := seq.GetXY(0)
		endXY := seq.GetXY(n - 1)
		t0, ok0 := locateTime(frag, span.Point{X: startXY.X, Y: startXY.Y})
		t1, ok1 := locateTime(frag, span.Point{X: endXY.X, Y: endXY.Y})
		if !ok0 || !ok1 {
			return nil
		}
		if t1.Before(t0) {
			t0, t1 = t1, t0
		}
		p, err := timeset.NewPeriod(t0, t1, true, true)
		if err != nil {
			return nil
		}
		return []timeset.Period{p}
	}
	return nil
}

// locateTime finds the first timestamp at which the fragment's trajectory
// passes through pt, tolerating epsilon rounding from the geometry engine.
func locateTime(frag []Instant, pt span.Point) (time.Time, bool) {
	const locEps = 1e-9
	for i := 0; i < len(frag)-1; i++ {
		a, b := frag[i], frag[i+1]
		f, ok := locateOnSegment(a.value.Point(), b.value.Point(), pt, locEps)
		if !ok {
			continue
		}
		return timeAtFraction(a.t, b.t, f), true
	}
	// the final vertex
	last := frag[len(frag)-1]
	if pointEq2D(last.value.Point(), pt) {
		return last.t, true
	}
	return time.Time{}, false
}

// zSpanMask extracts the Z coordinate as a temporal float and returns the
// time domain over which it lies inside the span.
func zSpanMask(tm Temporal, zs span.Span) (timeset.PeriodSet, error) {
	info := &LiftedFuncInfo{
		Arity:              1,
		ArgTypes:           [2]span.BaseType{tm.BaseType()},
		ResultType:         span.TypeFloat64,
		ResultInterpLinear: true,
		Fn1: func(v span.Value, _ []span.Value) (span.Value, error) {
			return span.NewFloat64(v.Point().Z), nil
		},
	}
	zfloat, err := TFuncTemporal(tm, info)
	if err != nil {
		return timeset.PeriodSet{}, err
	}
	return valuePeriods(zfloat, spanRestrictor{s: zs}), nil
}
