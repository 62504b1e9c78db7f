package timeset

import (
	"sort"
	"strings"
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
)

// TimestampSet is an ordered set of distinct timestamps. The zero value is
// empty.
type TimestampSet struct {
	times []time.Time
}

// NewTimestampSet sorts and deduplicates the given timestamps.
func NewTimestampSet(times []time.Time) TimestampSet {
	if len(times) == 0 {
		return TimestampSet{}
	}
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	out := sorted[:1]
	for _, t := range sorted[1:] {
		if !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return TimestampSet{times: out}
}

func (ts TimestampSet) IsEmpty() bool     { return len(ts.times) == 0 }
func (ts TimestampSet) Len() int          { return len(ts.times) }
func (ts TimestampSet) At(i int) time.Time { return ts.times[i] }

// Times returns a copy of the composing timestamps.
func (ts TimestampSet) Times() []time.Time {
	out := make([]time.Time, len(ts.times))
	copy(out, ts.times)
	return out
}

// BoundingPeriod returns the closed period from the first to the last
// timestamp.
func (ts TimestampSet) BoundingPeriod() (Period, error) {
	if ts.IsEmpty() {
		return Period{}, terrors.New(terrors.InvalidInput, "bounding period of empty timestamp set")
	}
	return NewPeriod(ts.times[0], ts.times[len(ts.times)-1], true, true)
}

func (ts TimestampSet) Contains(t time.Time) bool {
	i := sort.Search(len(ts.times), func(i int) bool { return !ts.times[i].Before(t) })
	return i < len(ts.times) && ts.times[i].Equal(t)
}

func (ts TimestampSet) Union(o TimestampSet) TimestampSet {
	return NewTimestampSet(append(ts.Times(), o.times...))
}

func (ts TimestampSet) Intersection(o TimestampSet) TimestampSet {
	var out []time.Time
	i, j := 0, 0
	for i < len(ts.times) && j < len(o.times) {
		switch {
		case ts.times[i].Equal(o.times[j]):
			out = append(out, ts.times[i])
			i++
			j++
		case ts.times[i].Before(o.times[j]):
			i++
		default:
			j++
		}
	}
	return TimestampSet{times: out}
}

func (ts TimestampSet) Minus(o TimestampSet) TimestampSet {
	var out []time.Time
	for _, t := range ts.times {
		if !o.Contains(t) {
			out = append(out, t)
		}
	}
	return TimestampSet{times: out}
}

// MinusPeriodSet removes all timestamps covered by ps.
func (ts TimestampSet) MinusPeriodSet(ps PeriodSet) TimestampSet {
	var out []time.Time
	for _, t := range ts.times {
		if !ps.ContainsValue(span.NewTimestamp(t)) {
			out = append(out, t)
		}
	}
	return TimestampSet{times: out}
}

// ToPeriodSet converts the set into instant periods.
func (ts TimestampSet) ToPeriodSet() PeriodSet {
	periods := make([]Period, 0, len(ts.times))
	for _, t := range ts.times {
		periods = append(periods, InstantPeriod(t))
	}
	ps, err := NewPeriodSet(periods)
	if err != nil {
		panic("timestamp set to period set: " + err.Error())
	}
	return ps
}

// Distance returns the smallest gap in seconds between the two sets, zero
// when they share a timestamp.
func (ts TimestampSet) Distance(o TimestampSet) (float64, error) {
	if ts.IsEmpty() || o.IsEmpty() {
		return 0, terrors.New(terrors.InvalidInput, "distance with empty timestamp set")
	}
	best := -1.0
	i, j := 0, 0
	for i < len(ts.times) && j < len(o.times) {
		d := ts.times[i].Sub(o.times[j]).Seconds()
		if d < 0 {
			d = -d
		}
		if best < 0 || d < best {
			best = d
		}
		if ts.times[i].Before(o.times[j]) {
			i++
		} else {
			j++
		}
	}
	return best, nil
}

func (ts TimestampSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, t := range ts.times {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(span.NewTimestamp(t).String())
	}
	b.WriteByte('}')
	return b.String()
}

// Topological predicates against the other time types. Period and period
// set pairings that involve no timestamp set are already covered by the
// span operators, since Period and PeriodSet are span aliases.

// ContainsSet reports whether every timestamp of o is in ts.
func (ts TimestampSet) ContainsSet(o TimestampSet) bool {
	for _, t := range o.times {
		if !ts.Contains(t) {
			return false
		}
	}
	return true
}

// ContainedInPeriod reports whether every timestamp lies inside p.
func (ts TimestampSet) ContainedInPeriod(p Period) bool {
	if ts.IsEmpty() {
		return false
	}
	return ContainsTime(p, ts.times[0]) && ContainsTime(p, ts.times[len(ts.times)-1])
}

// ContainedInPeriodSet reports whether every timestamp lies inside ps.
func (ts TimestampSet) ContainedInPeriodSet(ps PeriodSet) bool {
	if ts.IsEmpty() {
		return false
	}
	for _, t := range ts.times {
		if !ps.ContainsValue(span.NewTimestamp(t)) {
			return false
		}
	}
	return true
}

// Overlaps reports whether the sets share a timestamp.
func (ts TimestampSet) Overlaps(o TimestampSet) bool {
	i, j := 0, 0
	for i < len(ts.times) && j < len(o.times) {
		switch {
		case ts.times[i].Equal(o.times[j]):
			return true
		case ts.times[i].Before(o.times[j]):
			i++
		default:
			j++
		}
	}
	return false
}

// OverlapsPeriod reports whether some timestamp lies inside p: the first
// timestamp not strictly before the period decides.
func (ts TimestampSet) OverlapsPeriod(p Period) bool {
	i := sort.Search(len(ts.times), func(i int) bool {
		return !p.AfterValue(span.NewTimestamp(ts.times[i]))
	})
	return i < len(ts.times) && ContainsTime(p, ts.times[i])
}

// OverlapsPeriodSet reports whether some timestamp lies inside ps.
func (ts TimestampSet) OverlapsPeriodSet(ps PeriodSet) bool {
	for _, t := range ts.times {
		if ps.ContainsValue(span.NewTimestamp(t)) {
			return true
		}
	}
	return false
}

// AdjacentPeriod reports whether the set touches p without overlapping it:
// a timestamp coincides with an exclusive bound of p.
func (ts TimestampSet) AdjacentPeriod(p Period) bool {
	if !p.LowerInc && ts.Contains(p.Lower.Time()) {
		return true
	}
	return !p.UpperInc && ts.Contains(p.Upper.Time())
}

// Positional predicates. Before/After are strict; OverBefore and OverAfter
// are their non-strict companions, all defined on the bounding extremes.

func (ts TimestampSet) Before(o TimestampSet) bool {
	if ts.IsEmpty() || o.IsEmpty() {
		return false
	}
	return ts.times[len(ts.times)-1].Before(o.times[0])
}

func (ts TimestampSet) After(o TimestampSet) bool {
	return o.Before(ts)
}

func (ts TimestampSet) OverBefore(o TimestampSet) bool {
	if ts.IsEmpty() || o.IsEmpty() {
		return false
	}
	return !ts.times[len(ts.times)-1].After(o.times[len(o.times)-1])
}

func (ts TimestampSet) OverAfter(o TimestampSet) bool {
	if ts.IsEmpty() || o.IsEmpty() {
		return false
	}
	return !ts.times[0].Before(o.times[0])
}

func (ts TimestampSet) BeforePeriod(p Period) bool {
	if ts.IsEmpty() {
		return false
	}
	return p.AfterValue(span.NewTimestamp(ts.times[len(ts.times)-1]))
}

func (ts TimestampSet) AfterPeriod(p Period) bool {
	if ts.IsEmpty() {
		return false
	}
	return p.BeforeValue(span.NewTimestamp(ts.times[0]))
}

func (ts TimestampSet) OverBeforePeriod(p Period) bool {
	if ts.IsEmpty() {
		return false
	}
	return !ts.times[len(ts.times)-1].After(p.Upper.Time())
}

func (ts TimestampSet) OverAfterPeriod(p Period) bool {
	if ts.IsEmpty() {
		return false
	}
	return span.NewTimestamp(ts.times[0]).Compare(p.Lower) >= 0
}

func (ts TimestampSet) BeforePeriodSet(ps PeriodSet) bool {
	if ps.IsEmpty() {
		return false
	}
	return ts.BeforePeriod(ps.BoundingSpan())
}

func (ts TimestampSet) AfterPeriodSet(ps PeriodSet) bool {
	if ps.IsEmpty() {
		return false
	}
	return ts.AfterPeriod(ps.BoundingSpan())
}

// Set operations against periods.

// IntersectionPeriod keeps the timestamps inside p.
func (ts TimestampSet) IntersectionPeriod(p Period) TimestampSet {
	var out []time.Time
	for _, t := range ts.times {
		if ContainsTime(p, t) {
			out = append(out, t)
		}
	}
	return TimestampSet{times: out}
}

// IntersectionPeriodSet keeps the timestamps inside ps.
func (ts TimestampSet) IntersectionPeriodSet(ps PeriodSet) TimestampSet {
	var out []time.Time
	for _, t := range ts.times {
		if ps.ContainsValue(span.NewTimestamp(t)) {
			out = append(out, t)
		}
	}
	return TimestampSet{times: out}
}

// MinusPeriod removes the timestamps covered by p.
func (ts TimestampSet) MinusPeriod(p Period) TimestampSet {
	var out []time.Time
	for _, t := range ts.times {
		if !ContainsTime(p, t) {
			out = append(out, t)
		}
	}
	return TimestampSet{times: out}
}

// Distances in seconds against the other time types, zero on contact.

func (ts TimestampSet) DistanceTime(t time.Time) (float64, error) {
	if ts.IsEmpty() {
		return 0, terrors.New(terrors.InvalidInput, "distance with empty timestamp set")
	}
	best := -1.0
	for _, x := range ts.times {
		d := x.Sub(t).Seconds()
		if d < 0 {
			d = -d
		}
		if best < 0 || d < best {
			best = d
		}
	}
	return best, nil
}

func (ts TimestampSet) DistancePeriod(p Period) (float64, error) {
	if ts.IsEmpty() {
		return 0, terrors.New(terrors.InvalidInput, "distance with empty timestamp set")
	}
	return ts.ToPeriodSet().Distance(span.FromSpan(p))
}

func (ts TimestampSet) DistancePeriodSet(ps PeriodSet) (float64, error) {
	if ts.IsEmpty() || ps.IsEmpty() {
		return 0, terrors.New(terrors.InvalidInput, "distance with empty time set")
	}
	return ts.ToPeriodSet().Distance(ps)
}
