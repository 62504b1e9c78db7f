package span

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSpanSet(t *testing.T, spans ...Span) SpanSet {
	ss, err := NewSpanSet(spans)
	require.NoError(t, err)
	return ss
}

func TestSpanSetNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   []Span
		want []Span
	}{
		{
			name: "disjoint stay apart",
			in:   []Span{floatSpan(t, 3, 4, true, true), floatSpan(t, 1, 2, true, true)},
			want: []Span{floatSpan(t, 1, 2, true, true), floatSpan(t, 3, 4, true, true)},
		},
		{
			name: "overlapping merge",
			in:   []Span{floatSpan(t, 1, 3, true, true), floatSpan(t, 2, 5, true, false)},
			want: []Span{floatSpan(t, 1, 5, true, false)},
		},
		{
			name: "touching with one inclusive bound merge",
			in:   []Span{floatSpan(t, 1, 2, true, false), floatSpan(t, 2, 3, true, true)},
			want: []Span{floatSpan(t, 1, 3, true, true)},
		},
		{
			name: "touching with no inclusive bound stay apart",
			in:   []Span{floatSpan(t, 1, 2, true, false), floatSpan(t, 2, 3, false, true)},
			want: []Span{floatSpan(t, 1, 2, true, false), floatSpan(t, 2, 3, false, true)},
		},
		{
			name: "contained vanishes",
			in:   []Span{floatSpan(t, 1, 9, true, true), floatSpan(t, 2, 3, true, true)},
			want: []Span{floatSpan(t, 1, 9, true, true)},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mustSpanSet(t, tc.in...)
			if diff := cmp.Diff(tc.want, got.Spans()); diff != "" {
				t.Errorf("normalized spans mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSpanSetSingleFlatten(t *testing.T) {
	s := floatSpan(t, 1, 4, true, false)
	fromSlice := mustSpanSet(t, s)
	fromWrap := FromSpan(s)
	assert.True(t, fromSlice.Equal(fromWrap))
	require.Equal(t, 1, fromSlice.Len())
	assert.True(t, fromSlice.At(0).Equal(s))
	assert.True(t, fromSlice.BoundingSpan().Equal(s))
}

func TestSpanSetContains(t *testing.T) {
	ss := mustSpanSet(t, floatSpan(t, 1, 2, true, true), floatSpan(t, 4, 6, true, false))
	assert.True(t, ss.ContainsValue(NewFloat64(1.5)))
	assert.False(t, ss.ContainsValue(NewFloat64(3)))
	assert.True(t, ss.ContainsValue(NewFloat64(4)))
	assert.False(t, ss.ContainsValue(NewFloat64(6)))
	assert.True(t, ss.ContainsSpan(floatSpan(t, 4.5, 5, true, true)))
	assert.False(t, ss.ContainsSpan(floatSpan(t, 1.5, 4.5, true, true)))
}

func TestSpanSetSetOps(t *testing.T) {
	a := mustSpanSet(t, floatSpan(t, 1, 3, true, true), floatSpan(t, 5, 7, true, true))
	b := mustSpanSet(t, floatSpan(t, 2, 6, true, true))

	union := a.Union(b)
	require.Equal(t, 1, union.Len())
	assert.True(t, union.At(0).Equal(floatSpan(t, 1, 7, true, true)))
	assert.True(t, union.Equal(b.Union(a)))

	inter := a.Intersection(b)
	require.Equal(t, 2, inter.Len())
	assert.True(t, inter.At(0).Equal(floatSpan(t, 2, 3, true, true)))
	assert.True(t, inter.At(1).Equal(floatSpan(t, 5, 6, true, true)))
	assert.True(t, inter.Equal(b.Intersection(a)))

	minus := a.Minus(b)
	require.Equal(t, 2, minus.Len())
	assert.True(t, minus.At(0).Equal(floatSpan(t, 1, 2, true, false)))
	assert.True(t, minus.At(1).Equal(floatSpan(t, 6, 7, false, true)))

	// excluded middle: (a minus b) union (a intersect b) == a
	back := minus.Union(inter)
	assert.True(t, back.Equal(a))
}

func TestSpanSetOverlaps(t *testing.T) {
	a := mustSpanSet(t, floatSpan(t, 1, 2, true, true), floatSpan(t, 5, 6, true, true))
	b := mustSpanSet(t, floatSpan(t, 3, 4, true, true))
	c := mustSpanSet(t, floatSpan(t, 3.5, 5.5, true, true))
	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Overlaps(c))
	assert.True(t, b.Overlaps(c))

	// empty intersection implies no overlap
	assert.True(t, a.Intersection(b).IsEmpty())
}

func TestSpanSetDistance(t *testing.T) {
	a := mustSpanSet(t, floatSpan(t, 1, 2, true, true))
	b := mustSpanSet(t, floatSpan(t, 6, 7, true, true), floatSpan(t, 10, 11, true, true))
	d, err := a.Distance(b)
	require.NoError(t, err)
	assert.Equal(t, 4.0, d)
}

func TestSpanSetMixedTypesRejected(t *testing.T) {
	_, err := NewSpanSet([]Span{floatSpan(t, 1, 2, true, true), intSpan(t, 1, 2, true, true)})
	require.Error(t, err)
}
