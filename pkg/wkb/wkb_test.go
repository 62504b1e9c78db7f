package wkb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/temporal"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

func ts(t *testing.T, s string) time.Time {
	tm, err := timeset.ParseTimestamp(s, nil)
	require.NoError(t, err)
	return tm
}

func allVariants() []Options {
	return []Options{
		{Order: NDR},
		{Order: XDR},
		{Order: NDR, Extended: true},
		{Order: XDR, Extended: true},
	}
}

func sampleTemporals(t *testing.T) map[string]temporal.Temporal {
	mk := func(s string, bt span.BaseType) temporal.Temporal {
		tm, err := temporal.Parse(s, bt, nil)
		require.NoError(t, err)
		return tm
	}
	return map[string]temporal.Temporal{
		"float instant":    mk("1.5@2000-01-01", span.TypeFloat64),
		"int instant set":  mk("{1@2000-01-01, 2@2000-01-02}", span.TypeInt64),
		"linear sequence":  mk("[1@2000-01-01, 2@2000-01-02)", span.TypeFloat64),
		"step sequence":    mk("[1@2000-01-01, 3@2000-01-03]@step", span.TypeFloat64),
		"sequence set":     mk("{[1@2000-01-01, 2@2000-01-02], [5@2000-01-05, 6@2000-01-06]}", span.TypeFloat64),
		"bool sequence":    mk("[true@2000-01-01, false@2000-01-02]", span.TypeBool),
		"text instant set": mk(`{"a"@2000-01-01, "b"@2000-01-02}`, span.TypeText),
		"point sequence":   mk("[Point(0 0)@2000-01-01, Point(10 10)@2000-01-02]", span.TypeGeom2D),
	}
}

func TestTemporalRoundTrip(t *testing.T) {
	for name, tm := range sampleTemporals(t) {
		for _, opts := range allVariants() {
			encoded, err := MarshalTemporal(tm, opts)
			require.NoError(t, err, name)

			decoded, err := UnmarshalTemporal(encoded)
			require.NoError(t, err, name)
			assert.True(t, temporal.Equal(tm, decoded), "%s (order=%d ext=%v)", name, opts.Order, opts.Extended)

			// re-encoding reproduces the bytes exactly
			again, err := MarshalTemporal(decoded, opts)
			require.NoError(t, err, name)
			assert.Equal(t, encoded, again, name)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	tm, err := temporal.Parse("[1@2000-01-01, 2@2000-01-02)", span.TypeFloat64, nil)
	require.NoError(t, err)

	hex, err := MarshalTemporalHex(tm, Options{Order: NDR})
	require.NoError(t, err)
	// two ASCII hex digits per byte
	raw, err := MarshalTemporal(tm, Options{Order: NDR})
	require.NoError(t, err)
	assert.Len(t, hex, 2*len(raw))

	back, err := UnmarshalTemporalHex(hex)
	require.NoError(t, err)
	assert.True(t, temporal.Equal(tm, back))
}

func TestEnvelope(t *testing.T) {
	tm, err := temporal.Parse("1.5@2000-01-01", span.TypeFloat64, nil)
	require.NoError(t, err)

	ndr, err := MarshalTemporal(tm, Options{Order: NDR})
	require.NoError(t, err)
	assert.Equal(t, byte(1), ndr[0])

	xdr, err := MarshalTemporal(tm, Options{Order: XDR})
	require.NoError(t, err)
	assert.Equal(t, byte(0), xdr[0])

	// both orders decode to the same value
	a, err := UnmarshalTemporal(ndr)
	require.NoError(t, err)
	b, err := UnmarshalTemporal(xdr)
	require.NoError(t, err)
	assert.True(t, temporal.Equal(a, b))
}

func TestSpanRoundTrip(t *testing.T) {
	s, err := span.New(span.NewFloat64(1), span.NewFloat64(5), true, false)
	require.NoError(t, err)
	for _, opts := range allVariants() {
		b, err := MarshalSpan(s, opts)
		require.NoError(t, err)
		got, err := UnmarshalSpan(b)
		require.NoError(t, err)
		assert.True(t, s.Equal(got))
	}
}

func TestSpanSetRoundTrip(t *testing.T) {
	s1, err := span.New(span.NewInt64(1), span.NewInt64(2), true, true)
	require.NoError(t, err)
	s2, err := span.New(span.NewInt64(5), span.NewInt64(9), true, true)
	require.NoError(t, err)
	ss, err := span.NewSpanSet([]span.Span{s1, s2})
	require.NoError(t, err)

	b, err := MarshalSpanSet(ss, Options{Order: NDR})
	require.NoError(t, err)
	got, err := UnmarshalSpanSet(b)
	require.NoError(t, err)
	assert.True(t, ss.Equal(got))
}

func TestTBoxRoundTrip(t *testing.T) {
	tm, err := temporal.Parse("[1@2000-01-01, 5@2000-01-05]", span.TypeFloat64, nil)
	require.NoError(t, err)
	box, err := temporal.NewTBox(tm)
	require.NoError(t, err)

	b, err := MarshalTBox(box, Options{Order: NDR})
	require.NoError(t, err)
	got, err := UnmarshalTBox(b)
	require.NoError(t, err)
	assert.True(t, box.ValueSpan.Equal(got.ValueSpan))
	assert.True(t, box.Period.Equal(got.Period))
}

func TestSTBoxRoundTrip(t *testing.T) {
	box := temporal.STBox{
		XMin: 1, XMax: 2, YMin: 3, YMax: 4, ZMin: -1, ZMax: 1,
		HasZ: true, SRID: 4326,
		Period: timeset.MustPeriod(ts(t, "2000-01-01"), ts(t, "2000-01-02"), true, true),
	}
	b, err := MarshalSTBox(box, Options{Order: XDR, Extended: true})
	require.NoError(t, err)
	got, err := UnmarshalSTBox(b)
	require.NoError(t, err)
	assert.Equal(t, box.XMin, got.XMin)
	assert.Equal(t, box.ZMax, got.ZMax)
	assert.Equal(t, box.SRID, got.SRID)
	assert.True(t, got.HasZ)
}

func TestDecodeErrorsCarryOffset(t *testing.T) {
	tm, err := temporal.Parse("[1@2000-01-01, 2@2000-01-02]", span.TypeFloat64, nil)
	require.NoError(t, err)
	encoded, err := MarshalTemporal(tm, Options{Order: NDR})
	require.NoError(t, err)

	// truncation is reported as a codec error with a position
	_, err = UnmarshalTemporal(encoded[:len(encoded)-3])
	require.Error(t, err)
	assert.True(t, terrors.Is(err, terrors.CodecError))
	assert.Contains(t, err.Error(), "offset")

	// a bad endian flag is rejected immediately
	bad := append([]byte{7}, encoded[1:]...)
	_, err = UnmarshalTemporal(bad)
	require.Error(t, err)
	assert.True(t, terrors.Is(err, terrors.CodecError))
}

func TestSRIDSurvivesExtended(t *testing.T) {
	in := temporal.MustInstant(
		span.NewPoint(span.TypeGeom2D, span.Point{X: 1, Y: 2, SRID: 4326}),
		ts(t, "2000-01-01"),
	)
	b, err := MarshalTemporal(in, Options{Order: NDR, Extended: true})
	require.NoError(t, err)
	got, err := UnmarshalTemporal(b)
	require.NoError(t, err)
	assert.Equal(t, int32(4326), got.InstantN(0).Value().Point().SRID)

	// the plain variant drops it
	b, err = MarshalTemporal(in, Options{Order: NDR})
	require.NoError(t, err)
	got, err = UnmarshalTemporal(b)
	require.NoError(t, err)
	assert.Equal(t, int32(0), got.InstantN(0).Value().Point().SRID)
}
