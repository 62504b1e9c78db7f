// Package span implements bounded intervals and interval sets over the
// ordered base types, together with their topological, positional and set
// operations. Spans are canonicalized at construction so that structural
// equality coincides with mathematical equality.
package span

import (
	"fmt"
	"strings"

	"github.com/tempora-db/tempora/pkg/terrors"
)

// Span is an interval over an ordered base type. Each bound is inclusive or
// exclusive independently. For unit-step discrete types the constructor
// rewrites exclusive bounds to their inclusive canonical form, so a
// canonical discrete span always has both bounds inclusive.
type Span struct {
	Lower    Value
	Upper    Value
	LowerInc bool
	UpperInc bool
}

// New builds a canonical span. Lower and upper must share an ordered base
// type and satisfy lower <= upper; an empty interval is rejected.
func New(lower, upper Value, lowerInc, upperInc bool) (Span, error) {
	if lower.Type() != upper.Type() {
		return Span{}, terrors.New(terrors.InvalidInput, "span bounds of different types %s and %s", lower.Type(), upper.Type())
	}
	if !lower.Type().Ordered() {
		return Span{}, terrors.New(terrors.UnsupportedOperation, "span over unordered type %s", lower.Type())
	}
	if _, ok := lower.Type().step(); ok {
		if !lowerInc {
			lower = lower.succ()
			lowerInc = true
		}
		if !upperInc {
			upper = upper.pred()
			upperInc = true
		}
	}
	if c := lower.Compare(upper); c > 0 {
		return Span{}, terrors.New(terrors.InvalidInput, "span lower bound %s greater than upper bound %s", lower, upper)
	} else if c == 0 && (!lowerInc || !upperInc) {
		return Span{}, terrors.New(terrors.InvalidInput, "empty span: equal bounds must both be inclusive")
	}
	return Span{Lower: lower, Upper: upper, LowerInc: lowerInc, UpperInc: upperInc}, nil
}

// NewValue builds the singleton span [v, v].
func NewValue(v Value) (Span, error) {
	return New(v, v, true, true)
}

func (s Span) Type() BaseType { return s.Lower.Type() }

// IsSingleton reports whether the span contains exactly one value.
func (s Span) IsSingleton() bool {
	return s.Lower.Equal(s.Upper)
}

// cmpLower orders lower bounds: smaller value first; at equal values an
// inclusive lower bound starts before an exclusive one.
func cmpLower(av Value, ainc bool, bv Value, binc bool) int {
	if c := av.Compare(bv); c != 0 {
		return c
	}
	switch {
	case ainc == binc:
		return 0
	case ainc:
		return -1
	}
	return 1
}

// cmpUpper orders upper bounds: smaller value first; at equal values an
// exclusive upper bound ends before an inclusive one.
func cmpUpper(av Value, ainc bool, bv Value, binc bool) int {
	if c := av.Compare(bv); c != 0 {
		return c
	}
	switch {
	case ainc == binc:
		return 0
	case ainc:
		return 1
	}
	return -1
}

// Compare gives a total order over spans of one type: by lower bound, then
// by upper bound. Used for sorting during span-set normalization.
func (s Span) Compare(o Span) int {
	if c := cmpLower(s.Lower, s.LowerInc, o.Lower, o.LowerInc); c != 0 {
		return c
	}
	return cmpUpper(s.Upper, s.UpperInc, o.Upper, o.UpperInc)
}

func (s Span) Equal(o Span) bool {
	return s.Lower.Equal(o.Lower) && s.Upper.Equal(o.Upper) &&
		s.LowerInc == o.LowerInc && s.UpperInc == o.UpperInc
}

// ContainsValue reports whether v lies inside the span.
func (s Span) ContainsValue(v Value) bool {
	if c := s.Lower.Compare(v); c > 0 || (c == 0 && !s.LowerInc) {
		return false
	}
	if c := s.Upper.Compare(v); c < 0 || (c == 0 && !s.UpperInc) {
		return false
	}
	return true
}

// Contains reports whether o lies fully inside s.
func (s Span) Contains(o Span) bool {
	return cmpLower(s.Lower, s.LowerInc, o.Lower, o.LowerInc) <= 0 &&
		cmpUpper(s.Upper, s.UpperInc, o.Upper, o.UpperInc) >= 0
}

// ContainedIn reports whether s lies fully inside o.
func (s Span) ContainedIn(o Span) bool {
	return o.Contains(s)
}

// Overlaps reports whether the spans share at least one value.
func (s Span) Overlaps(o Span) bool {
	if c := s.Lower.Compare(o.Upper); c > 0 || (c == 0 && !(s.LowerInc && o.UpperInc)) {
		return false
	}
	if c := o.Lower.Compare(s.Upper); c > 0 || (c == 0 && !(o.LowerInc && s.UpperInc)) {
		return false
	}
	return true
}

// Adjacent reports whether the spans touch without sharing a value: their
// meeting bounds are equal with exactly one side inclusive.
func (s Span) Adjacent(o Span) bool {
	if s.Upper.Equal(o.Lower) {
		return s.UpperInc != o.LowerInc
	}
	if o.Upper.Equal(s.Lower) {
		return o.UpperInc != s.LowerInc
	}
	return false
}

// Positional predicates. Before/After are strict; OverBefore ("does not
// extend to the right of") and OverAfter are their non-strict companions.

func (s Span) Before(o Span) bool {
	c := s.Upper.Compare(o.Lower)
	return c < 0 || (c == 0 && !(s.UpperInc && o.LowerInc))
}

func (s Span) After(o Span) bool {
	return o.Before(s)
}

func (s Span) OverBefore(o Span) bool {
	return cmpUpper(s.Upper, s.UpperInc, o.Upper, o.UpperInc) <= 0
}

func (s Span) OverAfter(o Span) bool {
	return cmpLower(s.Lower, s.LowerInc, o.Lower, o.LowerInc) >= 0
}

func (s Span) BeforeValue(v Value) bool {
	c := s.Upper.Compare(v)
	return c < 0 || (c == 0 && !s.UpperInc)
}

func (s Span) AfterValue(v Value) bool {
	c := s.Lower.Compare(v)
	return c > 0 || (c == 0 && !s.LowerInc)
}

// mergeable reports whether two spans with s.Compare(o) <= 0 can be fused
// into a single span: they overlap, or they touch with at least one
// inclusive bound at the meeting point.
func (s Span) mergeable(o Span) bool {
	if s.Overlaps(o) {
		return true
	}
	return s.Upper.Equal(o.Lower) && (s.UpperInc || o.LowerInc)
}

// Intersection returns the common sub-span, or false when the spans are
// disjoint.
func (s Span) Intersection(o Span) (Span, bool) {
	if !s.Overlaps(o) {
		return Span{}, false
	}
	out := s
	if cmpLower(o.Lower, o.LowerInc, out.Lower, out.LowerInc) > 0 {
		out.Lower, out.LowerInc = o.Lower, o.LowerInc
	}
	if cmpUpper(o.Upper, o.UpperInc, out.Upper, out.UpperInc) < 0 {
		out.Upper, out.UpperInc = o.Upper, o.UpperInc
	}
	return out, true
}

// Union returns the set union as a span set: one span when the inputs merge,
// two when they are disjoint.
func (s Span) Union(o Span) SpanSet {
	ss, err := NewSpanSet([]Span{s, o})
	if err != nil {
		// both operands are already valid spans of one type
		panic(fmt.Sprintf("span union: %v", err))
	}
	return ss
}

// Minus returns s with the values of o removed: zero, one or two spans.
func (s Span) Minus(o Span) []Span {
	inter, ok := s.Intersection(o)
	if !ok {
		return []Span{s}
	}
	var out []Span
	if c := cmpLower(s.Lower, s.LowerInc, inter.Lower, inter.LowerInc); c < 0 {
		left, err := New(s.Lower, inter.Lower, s.LowerInc, !inter.LowerInc)
		if err == nil {
			out = append(out, left)
		}
	}
	if c := cmpUpper(s.Upper, s.UpperInc, inter.Upper, inter.UpperInc); c > 0 {
		right, err := New(inter.Upper, s.Upper, !inter.UpperInc, s.UpperInc)
		if err == nil {
			out = append(out, right)
		}
	}
	return out
}

// Distance returns the scalar gap between the spans: zero when they
// intersect or touch, otherwise the distance between the facing bounds.
func (s Span) Distance(o Span) (float64, error) {
	if s.Overlaps(o) || s.Adjacent(o) {
		return 0, nil
	}
	if s.Before(o) {
		return s.Upper.Distance(o.Lower)
	}
	return s.Lower.Distance(o.Upper)
}

// DistanceValue returns the gap between the span and a value.
func (s Span) DistanceValue(v Value) (float64, error) {
	if s.ContainsValue(v) {
		return 0, nil
	}
	if s.BeforeValue(v) {
		return s.Upper.Distance(v)
	}
	return s.Lower.Distance(v)
}

// ExtendToInclude grows the span in place to cover o. Used while building
// bounding spans.
func (s *Span) ExtendToInclude(o Span) {
	if cmpLower(o.Lower, o.LowerInc, s.Lower, s.LowerInc) < 0 {
		s.Lower, s.LowerInc = o.Lower, o.LowerInc
	}
	if cmpUpper(o.Upper, o.UpperInc, s.Upper, s.UpperInc) > 0 {
		s.Upper, s.UpperInc = o.Upper, o.UpperInc
	}
}

func (s Span) String() string {
	var b strings.Builder
	if s.LowerInc {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	b.WriteString(s.Lower.String())
	b.WriteString(", ")
	b.WriteString(s.Upper.String())
	if s.UpperInc {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}
