package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-db/tempora/pkg/span"
)

func TestArithInstants(t *testing.T) {
	a := finst(t, 2, "2000-01-01")
	b := finst(t, 3, "2000-01-01")
	got, err := Arith(a, b, OpAdd)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5.0, got.InstantN(0).Value().Float())

	// disjoint instants synchronize to nothing
	got, err = Arith(a, finst(t, 3, "2000-01-02"), OpAdd)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestArithInstantSets(t *testing.T) {
	a := MustInstantSet([]Instant{iinst(t, 1, "2000-01-01"), iinst(t, 2, "2000-01-02")})
	b := MustInstantSet([]Instant{iinst(t, 3, "2000-01-02"), iinst(t, 4, "2000-01-03")})
	got, err := Arith(a, b, OpAdd)
	require.NoError(t, err)
	require.NotNil(t, got)
	// only the shared timestamp survives
	require.Equal(t, 1, got.NumInstants())
	assert.Equal(t, int64(5), got.InstantN(0).Value().Int())
	assert.True(t, got.InstantN(0).Timestamp().Equal(ts(t, "2000-01-02")))
}

func TestArithSequences(t *testing.T) {
	a := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 3, "2000-01-03")}, true, true, InterpLinear)
	b := MustSequence([]Instant{finst(t, 10, "2000-01-01"), finst(t, 10, "2000-01-03")}, true, true, InterpLinear)
	got, err := Arith(a, b, OpAdd)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, SubSequence, got.Subtype())

	v, ok := got.ValueAt(ts(t, "2000-01-02"))
	require.True(t, ok)
	assert.InDelta(t, 12.0, v.Float(), 1e-9)
}

func TestArithMisalignedSequences(t *testing.T) {
	// b's breakpoints differ from a's; the synchronizer interpolates
	a := MustSequence([]Instant{finst(t, 0, "2000-01-01"), finst(t, 4, "2000-01-05")}, true, true, InterpLinear)
	b := MustSequence([]Instant{finst(t, 0, "2000-01-02"), finst(t, 2, "2000-01-04")}, true, true, InterpLinear)
	got, err := Arith(a, b, OpAdd)
	require.NoError(t, err)
	require.NotNil(t, got)

	// common domain is [01-02, 01-04]
	p := got.Period()
	assert.True(t, p.Lower.Time().Equal(ts(t, "2000-01-02")))
	assert.True(t, p.Upper.Time().Equal(ts(t, "2000-01-04")))

	v, ok := got.ValueAt(ts(t, "2000-01-03"))
	require.True(t, ok)
	assert.InDelta(t, 3.0, v.Float(), 1e-9) // a=2, b=1
}

func TestMultTurnpoint(t *testing.T) {
	// a falls 2..0, b rises 0..2 over two days: the product peaks midway
	a := MustSequence([]Instant{finst(t, 2, "2000-01-01"), finst(t, 0, "2000-01-03")}, true, true, InterpLinear)
	b := MustSequence([]Instant{finst(t, 0, "2000-01-01"), finst(t, 2, "2000-01-03")}, true, true, InterpLinear)
	got, err := Arith(a, b, OpMult)
	require.NoError(t, err)
	require.NotNil(t, got)

	// the turning point materializes as an instant at the vertex
	require.Equal(t, 3, got.NumInstants())
	mid := got.InstantN(1)
	assert.True(t, mid.Timestamp().Equal(ts(t, "2000-01-02")))
	assert.InDelta(t, 1.0, mid.Value().Float(), 1e-9)
}

func TestDivByZero(t *testing.T) {
	a := finst(t, 1, "2000-01-01")
	b := finst(t, 0, "2000-01-01")
	_, err := Arith(a, b, OpDiv)
	require.Error(t, err)
}

// the discontinuous comparison fragments a linear sequence at the crossing
func TestCompareValueDiscont(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 3, "2000-01-03")}, true, true, InterpLinear)
	got, err := CompareValue(seq, span.NewFloat64(2), OpLt, false)
	require.NoError(t, err)
	require.NotNil(t, got)

	set, ok := got.(SequenceSet)
	require.True(t, ok, "discontinuous lifting over a linear sequence yields a sequence set")
	require.Equal(t, 2, set.NumSequences())

	first, second := set.SequenceN(0), set.SequenceN(1)

	// true strictly before the crossing
	assert.True(t, first.StartValue().Bool())
	assert.True(t, first.Period().Lower.Time().Equal(ts(t, "2000-01-01")))
	assert.True(t, first.Period().Upper.Time().Equal(ts(t, "2000-01-02")))
	assert.True(t, first.LowerInc())
	assert.False(t, first.UpperInc())

	// false from the crossing onward
	assert.False(t, second.StartValue().Bool())
	assert.True(t, second.Period().Lower.Time().Equal(ts(t, "2000-01-02")))
	assert.True(t, second.Period().Upper.Time().Equal(ts(t, "2000-01-03")))
	assert.True(t, second.LowerInc())
	assert.True(t, second.UpperInc())
}

func TestCompareStepSequence(t *testing.T) {
	seq := MustSequence([]Instant{iinst(t, 1, "2000-01-01"), iinst(t, 3, "2000-01-02")}, true, true, InterpStep)
	got, err := CompareValue(seq, span.NewInt64(2), OpGt, false)
	require.NoError(t, err)
	require.NotNil(t, got)

	v, ok := got.ValueAt(ts(t, "2000-01-01T12:00:00"))
	require.True(t, ok)
	assert.False(t, v.Bool())
	v, ok = got.ValueAt(ts(t, "2000-01-02"))
	require.True(t, ok)
	assert.True(t, v.Bool())
}

func TestCompareSequences(t *testing.T) {
	// a rises 0..4, b constant 2: a < b before they cross at 2000-01-02T00:00
	a := MustSequence([]Instant{finst(t, 0, "2000-01-01"), finst(t, 4, "2000-01-03")}, true, true, InterpLinear)
	b := MustSequence([]Instant{finst(t, 2, "2000-01-01"), finst(t, 2, "2000-01-03")}, true, true, InterpLinear)
	got, err := Compare(a, b, OpLt)
	require.NoError(t, err)
	require.NotNil(t, got)

	v, ok := got.ValueAt(ts(t, "2000-01-01T06:00:00"))
	require.True(t, ok)
	assert.True(t, v.Bool())

	v, ok = got.ValueAt(ts(t, "2000-01-02"))
	require.True(t, ok)
	assert.False(t, v.Bool())

	v, ok = got.ValueAt(ts(t, "2000-01-02T12:00:00"))
	require.True(t, ok)
	assert.False(t, v.Bool())
}

func TestMixedInterpLowersStepSide(t *testing.T) {
	lin := MustSequence([]Instant{finst(t, 0, "2000-01-01"), finst(t, 4, "2000-01-05")}, true, true, InterpLinear)
	step := MustSequence([]Instant{finst(t, 10, "2000-01-01"), finst(t, 20, "2000-01-03"), finst(t, 20, "2000-01-05")}, true, true, InterpStep)

	got, err := Arith(lin, step, OpAdd)
	require.NoError(t, err)
	require.NotNil(t, got)

	v, ok := got.ValueAt(ts(t, "2000-01-02"))
	require.True(t, ok)
	assert.InDelta(t, 11.0, v.Float(), 1e-9) // 1 + held 10

	v, ok = got.ValueAt(ts(t, "2000-01-04"))
	require.True(t, ok)
	assert.InDelta(t, 23.0, v.Float(), 1e-9) // 3 + 20
}

func TestBoolOps(t *testing.T) {
	a := MustSequence([]Instant{
		MustInstant(span.NewBool(true), ts(t, "2000-01-01")),
		MustInstant(span.NewBool(false), ts(t, "2000-01-03")),
	}, true, true, InterpStep)
	b := MustSequence([]Instant{
		MustInstant(span.NewBool(true), ts(t, "2000-01-01")),
		MustInstant(span.NewBool(true), ts(t, "2000-01-03")),
	}, true, true, InterpStep)

	and, err := Bool(a, b, OpAnd)
	require.NoError(t, err)
	v, ok := and.ValueAt(ts(t, "2000-01-02"))
	require.True(t, ok)
	assert.True(t, v.Bool())
	v, ok = and.ValueAt(ts(t, "2000-01-03"))
	require.True(t, ok)
	assert.False(t, v.Bool())

	neg, err := Not(a)
	require.NoError(t, err)
	v, ok = neg.ValueAt(ts(t, "2000-01-02"))
	require.True(t, ok)
	assert.False(t, v.Bool())
}

func TestDistanceTemporalFloats(t *testing.T) {
	// tracks cross midway, at 2000-01-02T00:00: distance dips to zero there
	a := MustSequence([]Instant{finst(t, 0, "2000-01-01"), finst(t, 4, "2000-01-03")}, true, true, InterpLinear)
	b := MustSequence([]Instant{finst(t, 4, "2000-01-01"), finst(t, 0, "2000-01-03")}, true, true, InterpLinear)
	got, err := Distance(a, b)
	require.NoError(t, err)
	require.NotNil(t, got)

	v, ok := got.ValueAt(ts(t, "2000-01-02"))
	require.True(t, ok)
	assert.InDelta(t, 0.0, v.Float(), 1e-9)

	v, ok = got.ValueAt(ts(t, "2000-01-01"))
	require.True(t, ok)
	assert.InDelta(t, 4.0, v.Float(), 1e-9)
}

func TestEverAlwaysCompare(t *testing.T) {
	seq := MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 3, "2000-01-03")}, true, true, InterpLinear)

	ever, err := EverCompareValue(seq, span.NewFloat64(2.5), OpGt)
	require.NoError(t, err)
	assert.True(t, ever)

	ever, err = EverCompareValue(seq, span.NewFloat64(5), OpGt)
	require.NoError(t, err)
	assert.False(t, ever)

	always, err := AlwaysCompareValue(seq, span.NewFloat64(0.5), OpGt)
	require.NoError(t, err)
	assert.True(t, always)

	always, err = AlwaysCompareValue(seq, span.NewFloat64(2), OpGt)
	require.NoError(t, err)
	assert.False(t, always)
}

func TestLiftOverSequenceSet(t *testing.T) {
	set := MustSequenceSet([]Sequence{
		MustSequence([]Instant{finst(t, 1, "2000-01-01"), finst(t, 2, "2000-01-02")}, true, true, InterpLinear),
		MustSequence([]Instant{finst(t, 5, "2000-01-05"), finst(t, 6, "2000-01-06")}, true, true, InterpLinear),
	})
	got, err := ArithValue(set, span.NewFloat64(10), OpAdd, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, SubSequenceSet, got.Subtype())

	v, ok := got.ValueAt(ts(t, "2000-01-05"))
	require.True(t, ok)
	assert.InDelta(t, 15.0, v.Float(), 1e-9)

	// constant on the left via invert
	inv, err := ArithValue(set, span.NewFloat64(10), OpSub, true)
	require.NoError(t, err)
	v, ok = inv.ValueAt(ts(t, "2000-01-01"))
	require.True(t, ok)
	assert.InDelta(t, 9.0, v.Float(), 1e-9) // 10 - 1
}
