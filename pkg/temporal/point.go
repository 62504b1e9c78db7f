package temporal

import (
	"math"
	"time"

	"github.com/tempora-db/tempora/pkg/span"
)

// Geometric helpers for temporal points: segment interpolation, collinearity
// and segment/segment intersection. The tolerances here use epsilon; the
// time-mapping step of geometry restriction (locateTime) uses its own,
// looser 1e-9 tolerance.

const epsilon = 1e-12

func interpolatePoint(a, b span.Point, frac float64) span.Point {
	return span.Point{
		X:    a.X + (b.X-a.X)*frac,
		Y:    a.Y + (b.Y-a.Y)*frac,
		Z:    a.Z + (b.Z-a.Z)*frac,
		SRID: a.SRID,
	}
}

// collinearPoints reports whether b lies on the segment a..c at fraction
// frac of the way, within epsilon per dimension.
func collinearPoints(a, b, c span.Point, frac float64, hasZ bool) bool {
	p := interpolatePoint(a, c, frac)
	if math.Abs(p.X-b.X) > epsilon || math.Abs(p.Y-b.Y) > epsilon {
		return false
	}
	return !hasZ || math.Abs(p.Z-b.Z) <= epsilon
}

// pointEq2D reports 2D coincidence within epsilon.
func pointEq2D(a, b span.Point) bool {
	return math.Abs(a.X-b.X) <= epsilon && math.Abs(a.Y-b.Y) <= epsilon
}

// locateOnSegment returns the fraction along a..b at which p lies, and
// whether p is on the segment at all (within eps). Degenerate segments
// locate any coincident point at fraction 0.
func locateOnSegment(a, b, p span.Point, eps float64) (float64, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	den := dx*dx + dy*dy
	if den <= eps*eps {
		if math.Abs(p.X-a.X) <= eps && math.Abs(p.Y-a.Y) <= eps {
			return 0, true
		}
		return 0, false
	}
	frac := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / den
	if frac < -eps || frac > 1+eps {
		return 0, false
	}
	frac = math.Max(0, math.Min(1, frac))
	proj := interpolatePoint(a, b, frac)
	if math.Abs(proj.X-p.X) > eps || math.Abs(proj.Y-p.Y) > eps {
		return 0, false
	}
	return frac, true
}

// segIntersect2D intersects the 2D segments a1..a2 and b1..b2. It returns
// the fractions along each segment for a single crossing point. Collinear
// overlap is reported via the overlap flag without fractions; callers that
// split self-intersecting trajectories treat overlap as an intersection at
// the start of the shared part.
func segIntersect2D(a1, a2, b1, b2 span.Point) (fa, fb float64, hit, overlap bool) {
	rx, ry := a2.X-a1.X, a2.Y-a1.Y
	sx, sy := b2.X-b1.X, b2.Y-b1.Y
	den := rx*sy - ry*sx
	qpx, qpy := b1.X-a1.X, b1.Y-a1.Y
	if math.Abs(den) <= epsilon {
		// parallel; collinear when the offset is also parallel to r
		if math.Abs(qpx*ry-qpy*rx) > epsilon {
			return 0, 0, false, false
		}
		// collinear: check 1D overlap along the dominant axis
		lenSq := rx*rx + ry*ry
		if lenSq <= epsilon {
			return 0, 0, false, false
		}
		t0 := (qpx*rx + qpy*ry) / lenSq
		t1 := t0 + (sx*rx+sy*ry)/lenSq
		lo, hi := math.Min(t0, t1), math.Max(t0, t1)
		if hi < -epsilon || lo > 1+epsilon {
			return 0, 0, false, false
		}
		return 0, 0, false, true
	}
	fa = (qpx*sy - qpy*sx) / den
	fb = (qpx*ry - qpy*rx) / den
	if fa < -epsilon || fa > 1+epsilon || fb < -epsilon || fb > 1+epsilon {
		return 0, 0, false, false
	}
	fa = math.Max(0, math.Min(1, fa))
	fb = math.Max(0, math.Min(1, fb))
	return fa, fb, true, false
}

// segCrossingFraction solves for the fraction at which two co-timed linear
// point segments coincide, if any: the smallest f in (0,1) with
// a1+f(a2-a1) == b1+f(b2-b1) per dimension.
func segCrossingFraction(a1, a2, b1, b2 span.Point, hasZ bool) (float64, bool) {
	// per dimension the crossing requires dA = f*(dB - dA slope); solve on X
	// then verify on the remaining dimensions
	solve := func(p1, p2, q1, q2 float64) (float64, bool, bool) {
		num := q1 - p1
		den := (p2 - p1) - (q2 - q1)
		if math.Abs(den) <= epsilon {
			// equal slopes: either always coincident on this axis or never
			return 0, false, math.Abs(num) <= epsilon
		}
		return num / den, true, false
	}
	var frac float64
	solved := false
	dims := [][4]float64{
		{a1.X, a2.X, b1.X, b2.X},
		{a1.Y, a2.Y, b1.Y, b2.Y},
	}
	if hasZ {
		dims = append(dims, [4]float64{a1.Z, a2.Z, b1.Z, b2.Z})
	}
	for _, d := range dims {
		f, ok, always := solve(d[0], d[1], d[2], d[3])
		if always {
			continue
		}
		if !ok {
			return 0, false
		}
		if solved && math.Abs(f-frac) > epsilon {
			return 0, false
		}
		frac, solved = f, true
	}
	if !solved {
		// segments coincide everywhere; no single crossing instant
		return 0, false
	}
	if frac <= epsilon || frac >= 1-epsilon {
		return 0, false
	}
	return frac, true
}

// timeAtFraction places a fraction of the way between two timestamps,
// rounded to microsecond resolution so that exact fractions of whole
// intervals land on exact timestamps.
func timeAtFraction(t1, t2 time.Time, f float64) time.Time {
	d := time.Duration(float64(t2.Sub(t1)) * f)
	return t1.Add(d.Round(time.Microsecond))
}
