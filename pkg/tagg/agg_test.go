package tagg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/temporal"
	"github.com/tempora-db/tempora/pkg/timeset"
)

func ts(t *testing.T, s string) time.Time {
	tm, err := timeset.ParseTimestamp(s, nil)
	require.NoError(t, err)
	return tm
}

func parse(t *testing.T, s string, bt span.BaseType) temporal.Temporal {
	tm, err := temporal.Parse(s, bt, nil)
	require.NoError(t, err)
	return tm
}

// temporal integer sum over instant sets: shared timestamps combine, the
// rest pass through
func TestTSumInstantSets(t *testing.T) {
	s := NewState(TSum)
	require.NoError(t, s.Transition(parse(t, "{1@2000-01-01, 2@2000-01-02}", span.TypeInt64)))
	require.NoError(t, s.Transition(parse(t, "{3@2000-01-02, 4@2000-01-03}", span.TypeInt64)))

	got, err := s.Final()
	require.NoError(t, err)
	require.NotNil(t, got)

	want := parse(t, "{1@2000-01-01, 5@2000-01-02, 4@2000-01-03}", span.TypeInt64)
	assert.True(t, temporal.Equal(want, got), "got %s", got)
}

func TestTMinSequences(t *testing.T) {
	s := NewState(TMin)
	require.NoError(t, s.Transition(parse(t, "[1@2000-01-01, 5@2000-01-05]", span.TypeFloat64)))
	require.NoError(t, s.Transition(parse(t, "[5@2000-01-01, 1@2000-01-05]", span.TypeFloat64)))

	got, err := s.Final()
	require.NoError(t, err)
	require.NotNil(t, got)

	// rising and falling tracks cross midway; the min follows the lower one
	v, ok := got.ValueAt(ts(t, "2000-01-01"))
	require.True(t, ok)
	assert.InDelta(t, 1.0, v.Float(), 1e-9)

	v, ok = got.ValueAt(ts(t, "2000-01-05"))
	require.True(t, ok)
	assert.InDelta(t, 1.0, v.Float(), 1e-9)

	v, ok = got.ValueAt(ts(t, "2000-01-03"))
	require.True(t, ok)
	assert.InDelta(t, 3.0, v.Float(), 1e-9)

	v, ok = got.ValueAt(ts(t, "2000-01-02"))
	require.True(t, ok)
	assert.InDelta(t, 2.0, v.Float(), 1e-9)
}

func TestTCountContainment(t *testing.T) {
	s := NewState(TCount)
	require.NoError(t, s.Transition(parse(t, "[1@2000-01-01, 1@2000-01-05]", span.TypeInt64)))
	require.NoError(t, s.Transition(parse(t, "[1@2000-01-02, 1@2000-01-04]", span.TypeInt64)))
	require.NoError(t, s.Transition(parse(t, "[1@2000-01-03, 1@2000-01-06]", span.TypeInt64)))

	got, err := s.Final()
	require.NoError(t, err)
	require.NotNil(t, got)

	// the count at t equals the number of inputs whose domain contains t
	tests := []struct {
		at   string
		want int64
	}{
		{"2000-01-01T12:00:00", 1},
		{"2000-01-02T12:00:00", 2},
		{"2000-01-03T12:00:00", 3},
		{"2000-01-04T12:00:00", 2},
		{"2000-01-05T12:00:00", 1},
	}
	for _, tc := range tests {
		v, ok := got.ValueAt(ts(t, tc.at))
		require.True(t, ok, tc.at)
		assert.Equal(t, tc.want, v.Int(), tc.at)
	}
}

func TestTAvgInstants(t *testing.T) {
	s := NewState(TAvg)
	require.NoError(t, s.Transition(parse(t, "1@2000-01-01", span.TypeFloat64)))
	require.NoError(t, s.Transition(parse(t, "3@2000-01-01", span.TypeFloat64)))
	require.NoError(t, s.Transition(parse(t, "8@2000-01-01", span.TypeFloat64)))

	got, err := s.Final()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 1, got.NumInstants())
	assert.InDelta(t, 4.0, got.InstantN(0).Value().Float(), 1e-9)
}

func TestTAndTOr(t *testing.T) {
	and := NewState(TAnd)
	require.NoError(t, and.Transition(parse(t, "[true@2000-01-01, true@2000-01-03]", span.TypeBool)))
	require.NoError(t, and.Transition(parse(t, "[false@2000-01-02, false@2000-01-03]", span.TypeBool)))

	got, err := and.Final()
	require.NoError(t, err)
	v, ok := got.ValueAt(ts(t, "2000-01-01T12:00:00"))
	require.True(t, ok)
	assert.True(t, v.Bool())
	v, ok = got.ValueAt(ts(t, "2000-01-02T12:00:00"))
	require.True(t, ok)
	assert.False(t, v.Bool())

	or := NewState(TOr)
	require.NoError(t, or.Transition(parse(t, "[true@2000-01-01, true@2000-01-03]", span.TypeBool)))
	require.NoError(t, or.Transition(parse(t, "[false@2000-01-02, false@2000-01-03]", span.TypeBool)))

	got, err = or.Final()
	require.NoError(t, err)
	v, ok = got.ValueAt(ts(t, "2000-01-02T12:00:00"))
	require.True(t, ok)
	assert.True(t, v.Bool())
}

// out-of-order combine equals in-order transition
func TestCombineAssociativity(t *testing.T) {
	inputs := []string{
		"{1@2000-01-01, 2@2000-01-02}",
		"{3@2000-01-02, 4@2000-01-03}",
		"{5@2000-01-01, 6@2000-01-03}",
	}

	inOrder := NewState(TSum)
	for _, in := range inputs {
		require.NoError(t, inOrder.Transition(parse(t, in, span.TypeInt64)))
	}
	wantT, err := inOrder.Final()
	require.NoError(t, err)

	left := NewState(TSum)
	require.NoError(t, left.Transition(parse(t, inputs[0], span.TypeInt64)))
	right := NewState(TSum)
	require.NoError(t, right.Transition(parse(t, inputs[1], span.TypeInt64)))
	require.NoError(t, right.Transition(parse(t, inputs[2], span.TypeInt64)))
	require.NoError(t, left.Combine(right))
	gotT, err := left.Final()
	require.NoError(t, err)

	assert.True(t, temporal.Equal(wantT, gotT), "got %s want %s", gotT, wantT)
}

func TestCombineSequencesOutOfOrder(t *testing.T) {
	inputs := []string{
		"[1@2000-01-01, 1@2000-01-04]",
		"[2@2000-01-02, 2@2000-01-05]",
		"[4@2000-01-03, 4@2000-01-06]",
	}
	inOrder := NewState(TSum)
	for _, in := range inputs {
		require.NoError(t, inOrder.Transition(parse(t, in, span.TypeInt64)))
	}
	want, err := inOrder.Final()
	require.NoError(t, err)

	a := NewState(TSum)
	require.NoError(t, a.Transition(parse(t, inputs[2], span.TypeInt64)))
	b := NewState(TSum)
	require.NoError(t, b.Transition(parse(t, inputs[0], span.TypeInt64)))
	require.NoError(t, b.Transition(parse(t, inputs[1], span.TypeInt64)))
	require.NoError(t, a.Combine(b))
	got, err := a.Final()
	require.NoError(t, err)

	assert.True(t, temporal.Equal(want, got), "got %s want %s", got, want)
}

func TestMixedShapesRejected(t *testing.T) {
	s := NewState(TSum)
	require.NoError(t, s.Transition(parse(t, "1@2000-01-01", span.TypeInt64)))
	err := s.Transition(parse(t, "[1@2000-01-02, 1@2000-01-03]", span.TypeInt64))
	require.Error(t, err)
}

func TestEmptyFinal(t *testing.T) {
	s := NewState(TMax)
	got, err := s.Final()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStateSerializationRoundTrip(t *testing.T) {
	s := NewState(TSum)
	require.NoError(t, s.Transition(parse(t, "{1@2000-01-01, 2@2000-01-02}", span.TypeInt64)))
	require.NoError(t, s.Transition(parse(t, "{3@2000-01-02}", span.TypeInt64)))

	blob, err := MarshalState(s)
	require.NoError(t, err)

	back, err := UnmarshalState(blob)
	require.NoError(t, err)

	want, err := s.Final()
	require.NoError(t, err)
	got, err := back.Final()
	require.NoError(t, err)
	assert.True(t, temporal.Equal(want, got))

	_, err = UnmarshalState([]byte("garbage"))
	require.Error(t, err)
}

func TestParseReducer(t *testing.T) {
	r, err := ParseReducer("tavg")
	require.NoError(t, err)
	assert.Equal(t, TAvg, r)
	_, err = ParseReducer("tmedian")
	require.Error(t, err)
}

func TestSkipListSplice(t *testing.T) {
	sl := newSkipList(1)
	mk := func(s string) temporal.Temporal { return parse(t, s, span.TypeInt64) }

	sl.insert(mk("1@2000-01-05"))
	sl.insert(mk("1@2000-01-01"))
	sl.insert(mk("1@2000-01-03"))

	vals := sl.values()
	require.Len(t, vals, 3)
	assert.True(t, vals[0].Period().Lower.Time().Equal(ts(t, "2000-01-01")))
	assert.True(t, vals[2].Period().Lower.Time().Equal(ts(t, "2000-01-05")))

	// extraction pulls only the overlapping middle element
	p := timeset.MustPeriod(ts(t, "2000-01-02"), ts(t, "2000-01-04"), true, true)
	pulled := sl.extractOverlapping(p)
	require.Len(t, pulled, 1)
	assert.Equal(t, 2, sl.length)

	// freed slots are reused
	before := len(sl.elems)
	sl.insert(mk("1@2000-01-02"))
	assert.Equal(t, before, len(sl.elems))
}
