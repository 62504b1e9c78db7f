package span

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intSpan(t *testing.T, lo, hi int64, loInc, hiInc bool) Span {
	s, err := New(NewInt64(lo), NewInt64(hi), loInc, hiInc)
	require.NoError(t, err)
	return s
}

func floatSpan(t *testing.T, lo, hi float64, loInc, hiInc bool) Span {
	s, err := New(NewFloat64(lo), NewFloat64(hi), loInc, hiInc)
	require.NoError(t, err)
	return s
}

func TestSpanCanonicalization(t *testing.T) {
	// discrete types rewrite exclusive bounds to inclusive canonical form
	s, err := New(NewInt64(1), NewInt64(5), true, false)
	require.NoError(t, err)
	assert.True(t, s.LowerInc)
	assert.True(t, s.UpperInc)
	assert.Equal(t, int64(4), s.Upper.Int())

	s, err = New(NewInt64(1), NewInt64(5), false, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Lower.Int())

	// two spellings of the same set are equal after canonicalization
	a := intSpan(t, 1, 5, true, false)
	b := intSpan(t, 1, 4, true, true)
	assert.True(t, a.Equal(b))

	// continuous types keep their bounds
	f, err := New(NewFloat64(1), NewFloat64(5), true, false)
	require.NoError(t, err)
	assert.False(t, f.UpperInc)
}

func TestSpanInvalid(t *testing.T) {
	_, err := New(NewFloat64(5), NewFloat64(1), true, true)
	require.Error(t, err)

	// equal bounds need both sides inclusive
	_, err = New(NewFloat64(2), NewFloat64(2), true, false)
	require.Error(t, err)

	_, err = New(NewFloat64(1), NewInt64(2), true, true)
	require.Error(t, err)
}

func TestSpanContains(t *testing.T) {
	s := floatSpan(t, 1, 5, true, false)

	tests := []struct {
		v    float64
		want bool
	}{
		{0.5, false},
		{1, true},
		{3, true},
		{5, false}, // exclusive upper
		{6, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, s.ContainsValue(NewFloat64(tc.v)), "value %v", tc.v)
	}

	assert.True(t, s.Contains(floatSpan(t, 2, 3, true, true)))
	assert.False(t, s.Contains(floatSpan(t, 2, 5, true, true)))
	assert.True(t, s.Contains(floatSpan(t, 1, 5, true, false)))
}

func TestSpanOverlapsAdjacent(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Span
		overlaps bool
		adjacent bool
	}{
		{
			name:     "disjoint",
			a:        floatSpan(t, 1, 2, true, true),
			b:        floatSpan(t, 3, 4, true, true),
			overlaps: false,
			adjacent: false,
		},
		{
			name:     "overlapping",
			a:        floatSpan(t, 1, 3, true, true),
			b:        floatSpan(t, 2, 4, true, true),
			overlaps: true,
			adjacent: false,
		},
		{
			name:     "touching closed-open",
			a:        floatSpan(t, 1, 2, true, false),
			b:        floatSpan(t, 2, 3, true, true),
			overlaps: false,
			adjacent: true,
		},
		{
			name:     "touching closed-closed",
			a:        floatSpan(t, 1, 2, true, true),
			b:        floatSpan(t, 2, 3, true, true),
			overlaps: true,
			adjacent: false,
		},
		{
			name:     "touching open-open",
			a:        floatSpan(t, 1, 2, true, false),
			b:        floatSpan(t, 2, 3, false, true),
			overlaps: false,
			adjacent: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlaps, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.overlaps, tc.b.Overlaps(tc.a))
			assert.Equal(t, tc.adjacent, tc.a.Adjacent(tc.b))
			assert.Equal(t, tc.adjacent, tc.b.Adjacent(tc.a))
		})
	}
}

func TestSpanPositional(t *testing.T) {
	a := floatSpan(t, 1, 2, true, true)
	b := floatSpan(t, 3, 4, true, true)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, b.Before(a))
	assert.True(t, a.OverBefore(b))
	assert.True(t, b.OverAfter(a))

	// half-open meeting point is still strictly before
	c := floatSpan(t, 1, 3, true, false)
	assert.True(t, c.Before(b))
}

func TestSpanIntersection(t *testing.T) {
	a := floatSpan(t, 1, 3, true, true)
	b := floatSpan(t, 2, 4, false, true)
	got, ok := a.Intersection(b)
	require.True(t, ok)
	assert.True(t, got.Equal(floatSpan(t, 2, 3, false, true)))

	_, ok = a.Intersection(floatSpan(t, 5, 6, true, true))
	assert.False(t, ok)
}

func TestSpanUnion(t *testing.T) {
	// overlapping spans fuse into one
	got := floatSpan(t, 1, 3, true, true).Union(floatSpan(t, 2, 5, true, true))
	require.Equal(t, 1, got.Len())
	assert.True(t, got.At(0).Equal(floatSpan(t, 1, 5, true, true)))

	// disjoint spans stay as two
	got = floatSpan(t, 1, 2, true, true).Union(floatSpan(t, 4, 5, true, true))
	assert.Equal(t, 2, got.Len())

	// commutativity
	x := floatSpan(t, 1, 3, true, false)
	y := floatSpan(t, 2, 6, true, true)
	assert.True(t, x.Union(y).Equal(y.Union(x)))
}

func TestSpanMinus(t *testing.T) {
	a := floatSpan(t, 1, 5, true, true)

	mid := a.Minus(floatSpan(t, 2, 3, true, true))
	require.Len(t, mid, 2)
	assert.True(t, mid[0].Equal(floatSpan(t, 1, 2, true, false)))
	assert.True(t, mid[1].Equal(floatSpan(t, 3, 5, false, true)))

	left := a.Minus(floatSpan(t, 0, 2, true, true))
	require.Len(t, left, 1)
	assert.True(t, left[0].Equal(floatSpan(t, 2, 5, false, true)))

	all := a.Minus(floatSpan(t, 0, 9, true, true))
	assert.Empty(t, all)

	disjoint := a.Minus(floatSpan(t, 7, 9, true, true))
	require.Len(t, disjoint, 1)
	assert.True(t, disjoint[0].Equal(a))
}

func TestSpanDistance(t *testing.T) {
	a := floatSpan(t, 1, 2, true, true)
	b := floatSpan(t, 5, 6, true, true)
	d, err := a.Distance(b)
	require.NoError(t, err)
	assert.Equal(t, 3.0, d)

	d, err = a.Distance(floatSpan(t, 1.5, 8, true, true))
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestValueCompare(t *testing.T) {
	assert.Equal(t, -1, NewBool(false).Compare(NewBool(true)))
	assert.Equal(t, 0, NewText("abc").Compare(NewText("abc")))
	assert.Equal(t, -1, NewText("abc").Compare(NewText("abd")))
	assert.True(t, NewInt64(3).Less(NewInt64(7)))
}

func TestValueHashEquality(t *testing.T) {
	assert.Equal(t, NewFloat64(1.5).Hash(), NewFloat64(1.5).Hash())
	assert.NotEqual(t, NewFloat64(1.5).Hash(), NewFloat64(2.5).Hash())
	assert.NotEqual(t, NewInt64(1).Hash(), NewInt32(1).Hash())
}
