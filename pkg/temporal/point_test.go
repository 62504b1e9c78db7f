package temporal

import (
	"testing"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-db/tempora/pkg/span"
)

func pinst(t *testing.T, x, y float64, at string) Instant {
	return MustInstant(span.NewPoint(span.TypeGeom2D, span.Point{X: x, Y: y}), ts(t, at))
}

func diagonalSeq(t *testing.T) Sequence {
	// (0,0) at Jan 1 to (10,10) at Jan 11
	return MustSequence([]Instant{
		pinst(t, 0, 0, "2000-01-01"),
		pinst(t, 10, 10, "2000-01-11"),
	}, true, true, InterpLinear)
}

func TestAtSTBoxDiagonal(t *testing.T) {
	seq := diagonalSeq(t)
	box := STBox{
		XMin: 2, XMax: 8,
		YMin: 2, YMax: 8,
		Period: seq.Period(),
	}

	got, err := AtSTBox(seq, box, true)
	require.NoError(t, err)
	require.NotNil(t, got)

	// the segment enters the box 20% in and leaves 80% in
	p := got.Period()
	assert.True(t, p.Lower.Time().Equal(ts(t, "2000-01-03")), "got %s", p.Lower.Time())
	assert.True(t, p.Upper.Time().Equal(ts(t, "2000-01-09")), "got %s", p.Upper.Time())
	assert.True(t, p.LowerInc)
	assert.True(t, p.UpperInc)

	v, ok := got.ValueAt(ts(t, "2000-01-03"))
	require.True(t, ok)
	assert.InDelta(t, 2.0, v.Point().X, 1e-6)
	assert.InDelta(t, 2.0, v.Point().Y, 1e-6)
}

func TestAtSTBoxBorderExclusive(t *testing.T) {
	seq := diagonalSeq(t)
	box := STBox{
		XMin: 2, XMax: 8,
		YMin: 2, YMax: 8,
		Period: seq.Period(),
	}

	got, err := AtSTBox(seq, box, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	p := got.Period()
	// the exit point lies on the max faces and is excluded
	assert.False(t, p.UpperInc)
	assert.True(t, p.LowerInc)
}

func TestAtMinusSTBoxComplementary(t *testing.T) {
	seq := diagonalSeq(t)
	box := STBox{
		XMin: 2, XMax: 8,
		YMin: 2, YMax: 8,
		Period: seq.Period(),
	}
	at, err := AtSTBox(seq, box, true)
	require.NoError(t, err)
	minus, err := MinusSTBox(seq, box, true)
	require.NoError(t, err)
	checkExcludedMiddle(t, seq, at, minus)
}

func TestAtSTBoxReject(t *testing.T) {
	seq := diagonalSeq(t)
	box := STBox{
		XMin: 100, XMax: 200,
		YMin: 100, YMax: 200,
		Period: seq.Period(),
	}
	got, err := AtSTBox(seq, box, true)
	require.NoError(t, err)
	assert.Nil(t, got)

	back, err := MinusSTBox(seq, box, true)
	require.NoError(t, err)
	assert.True(t, Equal(seq, back))
}

func TestAtGeometryPolygon(t *testing.T) {
	seq := diagonalSeq(t)
	g, err := geom.UnmarshalWKT("POLYGON((2 2, 8 2, 8 8, 2 8, 2 2))")
	require.NoError(t, err)

	got, err := AtGeometry(seq, g, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)

	p := got.Period()
	assert.True(t, p.Lower.Time().Equal(ts(t, "2000-01-03")), "got %s", p.Lower.Time())
	assert.True(t, p.Upper.Time().Equal(ts(t, "2000-01-09")), "got %s", p.Upper.Time())

	minus, err := MinusGeometry(seq, g, nil, nil)
	require.NoError(t, err)
	checkExcludedMiddle(t, seq, got, minus)
}

func TestAtGeometryDisjoint(t *testing.T) {
	seq := diagonalSeq(t)
	g, err := geom.UnmarshalWKT("POLYGON((100 100, 200 100, 200 200, 100 200, 100 100))")
	require.NoError(t, err)

	got, err := AtGeometry(seq, g, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	back, err := MinusGeometry(seq, g, nil, nil)
	require.NoError(t, err)
	assert.True(t, Equal(seq, back))
}

func TestAtGeometryStepPerInstant(t *testing.T) {
	seq := MustSequence([]Instant{
		pinst(t, 0, 0, "2000-01-01"),
		pinst(t, 5, 5, "2000-01-02"),
		pinst(t, 5, 5, "2000-01-03"),
	}, true, true, InterpStep)
	g, err := geom.UnmarshalWKT("POLYGON((4 4, 6 4, 6 6, 4 6, 4 4))")
	require.NoError(t, err)

	got, err := AtGeometry(seq, g, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	p := got.Period()
	assert.True(t, p.Lower.Time().Equal(ts(t, "2000-01-02")))
	assert.True(t, p.Upper.Time().Equal(ts(t, "2000-01-03")))
}

func TestSimpleFragmentsSplitSelfIntersection(t *testing.T) {
	// a bowtie trajectory: the second diagonal crosses the first
	seq := MustSequence([]Instant{
		pinst(t, 0, 0, "2000-01-01"),
		pinst(t, 10, 10, "2000-01-02"),
		pinst(t, 10, 0, "2000-01-03"),
		pinst(t, 0, 10, "2000-01-04"),
	}, true, true, InterpLinear)
	frags := simpleFragments(seq)
	require.Len(t, frags, 2)
	assert.Len(t, frags[0], 3)
	assert.Len(t, frags[1], 2)
}

func TestSTBoxFromTemporalPoint(t *testing.T) {
	seq := diagonalSeq(t)
	box, err := NewSTBox(seq)
	require.NoError(t, err)
	assert.Equal(t, 0.0, box.XMin)
	assert.Equal(t, 10.0, box.XMax)
	assert.False(t, box.HasZ)

	_, err = NewSTBox(finst(t, 1, "2000-01-01"))
	require.Error(t, err)
}

func TestDistanceTemporalPoints(t *testing.T) {
	a := MustSequence([]Instant{
		pinst(t, 0, 0, "2000-01-01"),
		pinst(t, 10, 0, "2000-01-03"),
	}, true, true, InterpLinear)
	b := MustSequence([]Instant{
		pinst(t, 10, 0, "2000-01-01"),
		pinst(t, 0, 0, "2000-01-03"),
	}, true, true, InterpLinear)

	got, err := Distance(a, b)
	require.NoError(t, err)
	require.NotNil(t, got)

	// they meet at (5, 0) midway
	v, ok := got.ValueAt(ts(t, "2000-01-02"))
	require.True(t, ok)
	assert.InDelta(t, 0.0, v.Float(), 1e-9)

	v, ok = got.ValueAt(ts(t, "2000-01-01"))
	require.True(t, ok)
	assert.InDelta(t, 10.0, v.Float(), 1e-9)
}
