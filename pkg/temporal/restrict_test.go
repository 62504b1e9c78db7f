package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/timeset"
)

func period(t *testing.T, lo, hi string, loInc, hiInc bool) timeset.Period {
	return timeset.MustPeriod(ts(t, lo), ts(t, hi), loInc, hiInc)
}

// excluded middle: at(T, D) merged with minus(T, D) gives T back
func checkExcludedMiddle(t *testing.T, tm Temporal, at, minus Temporal) {
	t.Helper()
	switch {
	case at == nil:
		require.NotNil(t, minus)
		assert.True(t, Equal(tm, minus))
	case minus == nil:
		assert.True(t, Equal(tm, at))
	default:
		back, err := Merge(at, minus)
		require.NoError(t, err)
		assert.True(t, Equal(tm, back), "got %s, want %s", back, tm)
	}
}

func TestAtPeriodSequence(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 5, "2000-01-05")}, true, true, InterpLinear)

	got, err := AtPeriod(seq, period(t, "2000-01-02", "2000-01-04", true, true))
	require.NoError(t, err)
	require.NotNil(t, got)
	clip := got.(Sequence)
	assert.InDelta(t, 2.0, clip.StartValue().Float(), 1e-9)
	assert.InDelta(t, 4.0, clip.EndValue().Float(), 1e-9)

	// disjoint period gives the empty result, not an error
	got, err = AtPeriod(seq, period(t, "2001-01-01", "2001-01-02", true, true))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAtMinusPeriodExcludedMiddle(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 5, "2000-01-05")}, true, true, InterpLinear)
	p := period(t, "2000-01-02", "2000-01-04", true, false)

	at, err := AtPeriod(seq, p)
	require.NoError(t, err)
	minus, err := MinusPeriod(seq, p)
	require.NoError(t, err)
	checkExcludedMiddle(t, seq, at, minus)
}

func TestMinusPeriodFragments(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 5, "2000-01-05")}, true, true, InterpLinear)
	minus, err := MinusPeriod(seq, period(t, "2000-01-02", "2000-01-03", true, true))
	require.NoError(t, err)
	require.NotNil(t, minus)
	set, ok := minus.(SequenceSet)
	require.True(t, ok)
	require.Equal(t, 2, set.NumSequences())
	assert.False(t, set.SequenceN(0).UpperInc())
	assert.False(t, set.SequenceN(1).LowerInc())
}

func TestStepClipHoldsValue(t *testing.T) {
	// clipping a step sequence mid-segment extends the held value to the
	// boundary
	seq := MustSequence([]Instant{
		iinst(t, 1, "2000-01-01"),
		iinst(t, 9, "2000-01-05"),
	}, true, true, InterpStep)

	got, err := AtPeriod(seq, period(t, "2000-01-01", "2000-01-03", true, false))
	require.NoError(t, err)
	require.NotNil(t, got)
	clip := got.(Sequence)
	assert.Equal(t, int64(1), clip.EndValue().Int())
	v, ok := clip.ValueAt(ts(t, "2000-01-03"))
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int())
}

func TestAtTimestamp(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 3, "2000-01-03")}, true, true, InterpLinear)
	got, err := AtTimestamp(seq, ts(t, "2000-01-02"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 2.0, got.(Instant).Value().Float(), 1e-9)

	got, err = AtTimestamp(seq, ts(t, "2001-01-01"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMinusTimestampSplits(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 3, "2000-01-03")}, true, true, InterpLinear)
	got, err := MinusTimestamp(seq, ts(t, "2000-01-02"))
	require.NoError(t, err)
	require.NotNil(t, got)
	set := got.(SequenceSet)
	require.Equal(t, 2, set.NumSequences())
	assert.False(t, set.SequenceN(0).UpperInc())
	assert.False(t, set.SequenceN(1).LowerInc())
}

func TestAtTimestampSet(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 3, "2000-01-03")}, true, true, InterpLinear)
	set := timeset.NewTimestampSet([]time.Time{ts(t, "2000-01-02"), ts(t, "2000-01-04")})
	got, err := AtTimestampSet(seq, set)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, SubInstant, got.Subtype())
	assert.InDelta(t, 2.0, got.(Instant).Value().Float(), 1e-9)
}

func TestAtValueLinear(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 3, "2000-01-03")}, true, true, InterpLinear)
	got, err := AtValue(seq, span.NewFloat64(2))
	require.NoError(t, err)
	require.NotNil(t, got)
	// the crossing is a single instant
	require.Equal(t, 1, got.NumInstants())
	assert.True(t, got.InstantN(0).Timestamp().Equal(ts(t, "2000-01-02")))

	minus, err := MinusValue(seq, span.NewFloat64(2))
	require.NoError(t, err)
	checkExcludedMiddle(t, seq, got, minus)
}

func TestAtValueStep(t *testing.T) {
	seq := MustSequence([]Instant{
		iinst(t, 1, "2000-01-01"),
		iinst(t, 2, "2000-01-03"),
		iinst(t, 2, "2000-01-05"),
	}, true, true, InterpStep)
	got, err := AtValue(seq, span.NewInt64(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	p := got.Period()
	assert.True(t, p.Lower.Time().Equal(ts(t, "2000-01-01")))
	assert.True(t, p.Upper.Time().Equal(ts(t, "2000-01-03")))
	assert.False(t, p.UpperInc)

	// absent value gives the empty result
	got, err = AtValue(seq, span.NewInt64(7))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAtSpanLinear(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 0, "2000-01-01"), finst(t, 10, "2000-01-11")}, true, true, InterpLinear)
	sp, err := span.New(span.NewFloat64(2), span.NewFloat64(4), true, true)
	require.NoError(t, err)

	got, err := AtSpan(seq, sp)
	require.NoError(t, err)
	require.NotNil(t, got)
	p := got.Period()
	assert.True(t, p.Lower.Time().Equal(ts(t, "2000-01-03")))
	assert.True(t, p.Upper.Time().Equal(ts(t, "2000-01-05")))

	minus, err := MinusSpan(seq, sp)
	require.NoError(t, err)
	checkExcludedMiddle(t, seq, got, minus)

	// bounding-box reject
	far, err := span.New(span.NewFloat64(100), span.NewFloat64(200), true, true)
	require.NoError(t, err)
	got, err = AtSpan(seq, far)
	require.NoError(t, err)
	assert.Nil(t, got)
	back, err := MinusSpan(seq, far)
	require.NoError(t, err)
	assert.True(t, Equal(seq, back))
}

func TestAtSpanSet(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 0, "2000-01-01"), finst(t, 10, "2000-01-11")}, true, true, InterpLinear)
	s1, err := span.New(span.NewFloat64(1), span.NewFloat64(2), true, true)
	require.NoError(t, err)
	s2, err := span.New(span.NewFloat64(8), span.NewFloat64(9), true, true)
	require.NoError(t, err)
	set, err := span.NewSpanSet([]span.Span{s1, s2})
	require.NoError(t, err)

	got, err := AtSpanSet(seq, set)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, SubSequenceSet, got.Subtype())
	assert.Equal(t, 2, got.(SequenceSet).NumSequences())

	minus, err := MinusSpanSet(seq, set)
	require.NoError(t, err)
	checkExcludedMiddle(t, seq, got, minus)
}

func TestAtValueInstantSet(t *testing.T) {
	set := MustInstantSet([]Instant{iinst(t, 1, "2000-01-01"), iinst(t, 2, "2000-01-02"), iinst(t, 1, "2000-01-03")})
	got, err := AtValue(set, span.NewInt64(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.NumInstants())

	minus, err := MinusValue(set, span.NewInt64(1))
	require.NoError(t, err)
	require.NotNil(t, minus)
	assert.Equal(t, 1, minus.NumInstants())
}

func TestAtPeriodSetSequence(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 9, "2000-01-09")}, true, true, InterpLinear)
	ps, err := timeset.NewPeriodSet([]timeset.Period{
		period(t, "2000-01-02", "2000-01-03", true, true),
		period(t, "2000-01-05", "2000-01-06", true, true),
	})
	require.NoError(t, err)

	got, err := AtPeriodSet(seq, ps)
	require.NoError(t, err)
	require.NotNil(t, got)
	set := got.(SequenceSet)
	require.Equal(t, 2, set.NumSequences())

	minus, err := MinusPeriodSet(seq, ps)
	require.NoError(t, err)
	checkExcludedMiddle(t, seq, got, minus)
}
