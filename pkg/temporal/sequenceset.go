package temporal

import (
	"sort"
	"strings"
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// SequenceSet is an ordered set of disjoint sequences sharing base type and
// interpolation. Construction normalizes: neighbours that continue each
// other seamlessly are spliced into one sequence.
type SequenceSet struct {
	seqs []Sequence
}

// NewSequenceSet sorts, validates and normalizes the given sequences. The
// input slice is not retained.
func NewSequenceSet(seqs []Sequence) (SequenceSet, error) {
	if len(seqs) == 0 {
		return SequenceSet{}, terrors.New(terrors.InvalidInput, "sequence set needs at least one sequence")
	}
	sorted := make([]Sequence, len(seqs))
	copy(sorted, seqs)
	bt, interp := sorted[0].BaseType(), sorted[0].interp
	for _, s := range sorted {
		if s.BaseType() != bt {
			return SequenceSet{}, terrors.New(terrors.InvalidInput, "sequence set mixes base types %s and %s", bt, s.BaseType())
		}
		if s.interp != interp {
			return SequenceSet{}, terrors.New(terrors.InvalidInput, "sequence set mixes %s and %s interpolation", interp, s.interp)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].instants[0].t.Before(sorted[j].instants[0].t)
	})
	norm, err := normalizeSequences(sorted)
	if err != nil {
		return SequenceSet{}, err
	}
	return SequenceSet{seqs: norm}, nil
}

// MustSequenceSet is NewSequenceSet for statically-known inputs, mainly tests.
func MustSequenceSet(seqs []Sequence) SequenceSet {
	ss, err := NewSequenceSet(seqs)
	if err != nil {
		panic(err)
	}
	return ss
}

func (ss SequenceSet) Subtype() Subtype        { return SubSequenceSet }
func (ss SequenceSet) BaseType() span.BaseType { return ss.seqs[0].BaseType() }
func (ss SequenceSet) Interp() Interp          { return ss.seqs[0].interp }
func (ss SequenceSet) Flags() Flags            { return ss.seqs[0].Flags() }
func (ss SequenceSet) NumSequences() int       { return len(ss.seqs) }
func (ss SequenceSet) SequenceN(i int) Sequence { return ss.seqs[i] }
func (ss SequenceSet) StartValue() span.Value  { return ss.seqs[0].StartValue() }
func (ss SequenceSet) EndValue() span.Value    { return ss.seqs[len(ss.seqs)-1].EndValue() }

// Sequences returns a copy of the composing sequences.
func (ss SequenceSet) Sequences() []Sequence {
	out := make([]Sequence, len(ss.seqs))
	copy(out, ss.seqs)
	return out
}

func (ss SequenceSet) NumInstants() int {
	n := 0
	for _, s := range ss.seqs {
		n += len(s.instants)
	}
	return n
}

func (ss SequenceSet) InstantN(i int) Instant {
	for _, s := range ss.seqs {
		if i < len(s.instants) {
			return s.instants[i]
		}
		i -= len(s.instants)
	}
	panic("sequence set instant index out of range")
}

func (ss SequenceSet) Period() timeset.Period {
	first, last := ss.seqs[0].Period(), ss.seqs[len(ss.seqs)-1].Period()
	p := first
	p.Upper, p.UpperInc = last.Upper, last.UpperInc
	return p
}

// PeriodSet returns the exact time domain as a normalized period set.
func (ss SequenceSet) PeriodSet() timeset.PeriodSet {
	periods := make([]timeset.Period, len(ss.seqs))
	for i, s := range ss.seqs {
		periods[i] = s.Period()
	}
	ps, err := timeset.NewPeriodSet(periods)
	if err != nil {
		panic("sequence set period set: " + err.Error())
	}
	return ps
}

func (ss SequenceSet) Timestamps() []time.Time {
	var out []time.Time
	for _, s := range ss.seqs {
		for _, in := range s.instants {
			if len(out) == 0 || out[len(out)-1].Before(in.t) {
				out = append(out, in.t)
			}
		}
	}
	return out
}

// locateSequence returns the index of the first sequence whose period does
// not end before t.
func (ss SequenceSet) locateSequence(t time.Time) int {
	return sort.Search(len(ss.seqs), func(i int) bool {
		last := ss.seqs[i].instants[len(ss.seqs[i].instants)-1].t
		return !last.Before(t)
	})
}

func (ss SequenceSet) ValueAt(t time.Time) (span.Value, bool) {
	i := ss.locateSequence(t)
	if i >= len(ss.seqs) {
		return span.Value{}, false
	}
	return ss.seqs[i].ValueAt(t)
}

func (ss SequenceSet) Shift(by time.Duration) Temporal {
	out := make([]Sequence, len(ss.seqs))
	for i, s := range ss.seqs {
		out[i] = s.shiftSeq(by)
	}
	return SequenceSet{seqs: out}
}

// Duration returns the summed length of the composing sequences.
func (ss SequenceSet) Duration() time.Duration {
	var d time.Duration
	for _, s := range ss.seqs {
		d += s.Duration()
	}
	return d
}

func (ss SequenceSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, s := range ss.seqs {
		if i > 0 {
			b.WriteString(", ")
		}
		// the set-level interpolation suffix covers all members
		str := s.String()
		str = strings.TrimSuffix(str, "@step")
		b.WriteString(str)
	}
	b.WriteByte('}')
	if ss.Interp() == InterpStep && ss.BaseType().Continuous() {
		b.WriteString("@step")
	}
	return b.String()
}
