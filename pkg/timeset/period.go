// Package timeset specializes the span algebra to the time domain:
// periods, period sets and timestamp sets, which define the temporal extent
// of every temporal value.
package timeset

import (
	"time"

	"github.com/tempora-db/tempora/pkg/span"
)

// Period is a span over timestamptz; PeriodSet its normalized union. They
// are aliases so period values flow through the generic span operators
// without conversion.
type (
	Period    = span.Span
	PeriodSet = span.SpanSet
)

// NewPeriod builds a period between two timestamps.
func NewPeriod(lower, upper time.Time, lowerInc, upperInc bool) (Period, error) {
	return span.New(span.NewTimestamp(lower), span.NewTimestamp(upper), lowerInc, upperInc)
}

// InstantPeriod is the singleton period [t, t].
func InstantPeriod(t time.Time) Period {
	p, err := NewPeriod(t, t, true, true)
	if err != nil {
		panic("instant period: " + err.Error())
	}
	return p
}

// MustPeriod is NewPeriod for statically-known bounds, mainly tests.
func MustPeriod(lower, upper time.Time, lowerInc, upperInc bool) Period {
	p, err := NewPeriod(lower, upper, lowerInc, upperInc)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPeriodSet normalizes periods into a period set.
func NewPeriodSet(periods []Period) (PeriodSet, error) {
	return span.NewSpanSet(periods)
}

// PeriodDuration returns the length of the period.
func PeriodDuration(p Period) time.Duration {
	return p.Upper.Time().Sub(p.Lower.Time())
}

// PeriodSetDuration returns the summed length of all composing periods.
func PeriodSetDuration(ps PeriodSet) time.Duration {
	var d time.Duration
	for i := 0; i < ps.Len(); i++ {
		d += PeriodDuration(ps.At(i))
	}
	return d
}

// ShiftPeriod translates the period along the time axis.
func ShiftPeriod(p Period, by time.Duration) Period {
	out := p
	out.Lower = span.NewTimestamp(p.Lower.Time().Add(by))
	out.Upper = span.NewTimestamp(p.Upper.Time().Add(by))
	return out
}

// TScalePeriod stretches the period to the given duration, keeping its
// start fixed. Instant periods are returned unchanged.
func TScalePeriod(p Period, to time.Duration) Period {
	if p.Lower.Time().Equal(p.Upper.Time()) {
		return p
	}
	out := p
	out.Upper = span.NewTimestamp(p.Lower.Time().Add(to))
	return out
}

// ContainsTime reports whether t lies inside the period.
func ContainsTime(p Period, t time.Time) bool {
	return p.ContainsValue(span.NewTimestamp(t))
}
