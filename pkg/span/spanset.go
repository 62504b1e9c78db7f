package span

import (
	"sort"
	"strings"

	"github.com/tempora-db/tempora/pkg/terrors"
)

// SpanSet is an ordered set of pairwise-disjoint, non-mergeable spans with a
// precomputed bounding span. The zero SpanSet is empty.
type SpanSet struct {
	spans []Span
	bound Span
}

// NewSpanSet normalizes the given spans into a canonical set: sorted by
// lower bound, with every overlapping or compatibly-touching pair merged.
// The input slice is not retained.
func NewSpanSet(spans []Span) (SpanSet, error) {
	if len(spans) == 0 {
		return SpanSet{}, nil
	}
	typ := spans[0].Type()
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	for _, s := range sorted {
		if s.Type() != typ {
			return SpanSet{}, terrors.New(terrors.InvalidInput, "span set mixes %s and %s spans", typ, s.Type())
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })

	norm := sorted[:1]
	for _, next := range sorted[1:] {
		cur := &norm[len(norm)-1]
		if cur.mergeable(next) {
			cur.ExtendToInclude(next)
			continue
		}
		norm = append(norm, next)
	}
	return newSpanSetNormalized(norm), nil
}

// newSpanSetNormalized wraps spans that are already sorted, disjoint and
// non-mergeable.
func newSpanSetNormalized(spans []Span) SpanSet {
	if len(spans) == 0 {
		return SpanSet{}
	}
	bound := spans[0]
	bound.Upper, bound.UpperInc = spans[len(spans)-1].Upper, spans[len(spans)-1].UpperInc
	return SpanSet{spans: spans, bound: bound}
}

// FromSpan wraps a single span.
func FromSpan(s Span) SpanSet {
	return newSpanSetNormalized([]Span{s})
}

func (ss SpanSet) IsEmpty() bool { return len(ss.spans) == 0 }
func (ss SpanSet) Len() int      { return len(ss.spans) }
func (ss SpanSet) At(i int) Span { return ss.spans[i] }

// Spans returns a copy of the composing spans.
func (ss SpanSet) Spans() []Span {
	out := make([]Span, len(ss.spans))
	copy(out, ss.spans)
	return out
}

// BoundingSpan returns the span from the first lower bound to the last
// upper bound. Calling it on an empty set is invalid.
func (ss SpanSet) BoundingSpan() Span { return ss.bound }

func (ss SpanSet) Type() BaseType {
	if len(ss.spans) == 0 {
		return TypeUnknown
	}
	return ss.bound.Type()
}

func (ss SpanSet) Equal(o SpanSet) bool {
	if len(ss.spans) != len(o.spans) {
		return false
	}
	for i := range ss.spans {
		if !ss.spans[i].Equal(o.spans[i]) {
			return false
		}
	}
	return true
}

// locate returns the index of the first span whose upper bound does not lie
// before v, i.e. the only span that could contain v.
func (ss SpanSet) locate(v Value) int {
	return sort.Search(len(ss.spans), func(i int) bool {
		return !ss.spans[i].BeforeValue(v)
	})
}

func (ss SpanSet) ContainsValue(v Value) bool {
	if ss.IsEmpty() || !ss.bound.ContainsValue(v) {
		return false
	}
	i := ss.locate(v)
	return i < len(ss.spans) && ss.spans[i].ContainsValue(v)
}

func (ss SpanSet) ContainsSpan(s Span) bool {
	if ss.IsEmpty() || !ss.bound.Contains(s) {
		return false
	}
	i := ss.locate(s.Lower)
	return i < len(ss.spans) && ss.spans[i].Contains(s)
}

func (ss SpanSet) Contains(o SpanSet) bool {
	if o.IsEmpty() {
		return true
	}
	if ss.IsEmpty() || !ss.bound.Contains(o.bound) {
		return false
	}
	for _, s := range o.spans {
		if !ss.ContainsSpan(s) {
			return false
		}
	}
	return true
}

func (ss SpanSet) OverlapsSpan(s Span) bool {
	if ss.IsEmpty() || !ss.bound.Overlaps(s) {
		return false
	}
	i := ss.locate(s.Lower)
	return i < len(ss.spans) && ss.spans[i].Overlaps(s)
}

func (ss SpanSet) Overlaps(o SpanSet) bool {
	if ss.IsEmpty() || o.IsEmpty() || !ss.bound.Overlaps(o.bound) {
		return false
	}
	i, j := 0, 0
	for i < len(ss.spans) && j < len(o.spans) {
		if ss.spans[i].Overlaps(o.spans[j]) {
			return true
		}
		if ss.spans[i].Before(o.spans[j]) {
			i++
		} else {
			j++
		}
	}
	return false
}

// Before reports whether every value of ss lies before every value of o.
func (ss SpanSet) Before(o SpanSet) bool {
	if ss.IsEmpty() || o.IsEmpty() {
		return false
	}
	return ss.bound.Before(o.bound)
}

func (ss SpanSet) After(o SpanSet) bool { return o.Before(ss) }

func (ss SpanSet) OverBefore(o SpanSet) bool {
	if ss.IsEmpty() || o.IsEmpty() {
		return false
	}
	return ss.bound.OverBefore(o.bound)
}

func (ss SpanSet) OverAfter(o SpanSet) bool {
	if ss.IsEmpty() || o.IsEmpty() {
		return false
	}
	return ss.bound.OverAfter(o.bound)
}

// Union merges the two sets.
func (ss SpanSet) Union(o SpanSet) SpanSet {
	if ss.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return ss
	}
	all := make([]Span, 0, len(ss.spans)+len(o.spans))
	all = append(all, ss.spans...)
	all = append(all, o.spans...)
	out, err := NewSpanSet(all)
	if err != nil {
		panic("span set union: " + err.Error())
	}
	return out
}

func (ss SpanSet) UnionSpan(s Span) SpanSet {
	return ss.Union(FromSpan(s))
}

// Intersection computes the common sub-domain with a two-pointer sweep.
func (ss SpanSet) Intersection(o SpanSet) SpanSet {
	if ss.IsEmpty() || o.IsEmpty() || !ss.bound.Overlaps(o.bound) {
		return SpanSet{}
	}
	var out []Span
	i, j := 0, 0
	for i < len(ss.spans) && j < len(o.spans) {
		if inter, ok := ss.spans[i].Intersection(o.spans[j]); ok {
			out = append(out, inter)
		}
		// advance whichever span ends first
		if cmpUpper(ss.spans[i].Upper, ss.spans[i].UpperInc, o.spans[j].Upper, o.spans[j].UpperInc) < 0 {
			i++
		} else {
			j++
		}
	}
	return newSpanSetNormalized(out)
}

func (ss SpanSet) IntersectionSpan(s Span) SpanSet {
	return ss.Intersection(FromSpan(s))
}

// Minus removes the values of o from ss.
func (ss SpanSet) Minus(o SpanSet) SpanSet {
	if ss.IsEmpty() {
		return SpanSet{}
	}
	if o.IsEmpty() || !ss.bound.Overlaps(o.bound) {
		return ss
	}
	var out []Span
	for _, s := range ss.spans {
		rest := []Span{s}
		for _, sub := range o.spans {
			if sub.After(s) {
				break
			}
			var next []Span
			for _, r := range rest {
				next = append(next, r.Minus(sub)...)
			}
			rest = next
		}
		out = append(out, rest...)
	}
	return newSpanSetNormalized(out)
}

func (ss SpanSet) MinusSpan(s Span) SpanSet {
	return ss.Minus(FromSpan(s))
}

// Distance returns the scalar gap between the sets, zero when they overlap
// or touch.
func (ss SpanSet) Distance(o SpanSet) (float64, error) {
	if ss.IsEmpty() || o.IsEmpty() {
		return 0, terrors.New(terrors.InvalidInput, "distance with empty span set")
	}
	if ss.Overlaps(o) {
		return 0, nil
	}
	best := -1.0
	i, j := 0, 0
	for i < len(ss.spans) && j < len(o.spans) {
		d, err := ss.spans[i].Distance(o.spans[j])
		if err != nil {
			return 0, err
		}
		if best < 0 || d < best {
			best = d
		}
		if ss.spans[i].Before(o.spans[j]) {
			i++
		} else {
			j++
		}
	}
	return best, nil
}

func (ss SpanSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, s := range ss.spans {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.String())
	}
	b.WriteByte('}')
	return b.String()
}
