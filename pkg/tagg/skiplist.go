// Package tagg implements merge-based temporal aggregation: the
// transition / combine / final triple for tmin, tmax, tsum, tcount, tavg,
// tand and tor, over a probabilistic-skiplist accumulator keyed by the
// time span of each stored piece.
package tagg

import (
	"math/bits"
	"math/rand"
	"time"

	"github.com/tempora-db/tempora/pkg/temporal"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

const (
	maxHeight = 32
	headIdx   = 0
	tailIdx   = 1
)

// skipElem is a slot in the skiplist arena. Sentinels carry a nil value.
// Deallocated slots are chained through the free list and reused.
type skipElem struct {
	value  temporal.Temporal
	height int
	next   [maxHeight]int
}

// skipList stores disjoint temporal pieces ordered by the lower bound of
// their period. Elements live in a slot arena so that splices move
// indices, not values.
type skipList struct {
	elems  []skipElem
	free   []int
	height int
	length int
	rng    *rand.Rand
}

func newSkipList(seed int64) *skipList {
	sl := &skipList{
		elems:  make([]skipElem, 2, 16),
		height: 1,
		rng:    rand.New(rand.NewSource(seed)),
	}
	head := &sl.elems[headIdx]
	head.height = maxHeight
	for i := range head.next {
		head.next[i] = tailIdx
	}
	tail := &sl.elems[tailIdx]
	tail.height = maxHeight
	for i := range tail.next {
		tail.next[i] = -1
	}
	return sl
}

// randomHeight approximates geometric coin flips with a single draw: the
// count of trailing zero bits of a random word.
func (sl *skipList) randomHeight() int {
	h := bits.TrailingZeros64(sl.rng.Uint64()) + 1
	if h > maxHeight {
		h = maxHeight
	}
	return h
}

func (sl *skipList) alloc(v temporal.Temporal, height int) int {
	if n := len(sl.free); n > 0 {
		idx := sl.free[n-1]
		sl.free = sl.free[:n-1]
		sl.elems[idx] = skipElem{value: v, height: height}
		return idx
	}
	sl.elems = append(sl.elems, skipElem{value: v, height: height})
	return len(sl.elems) - 1
}

func (sl *skipList) dealloc(idx int) {
	sl.elems[idx] = skipElem{}
	sl.free = append(sl.free, idx)
}

func lowerBound(v temporal.Temporal) time.Time {
	return v.Period().Lower.Time()
}

// findPath fills update with, per level, the last element strictly before
// t, and returns the first element at level 0 not before t.
func (sl *skipList) findPath(t time.Time, update *[maxHeight]int) int {
	cur := headIdx
	for level := sl.height - 1; level >= 0; level-- {
		for {
			next := sl.elems[cur].next[level]
			if next == tailIdx || !lowerBound(sl.elems[next].value).Before(t) {
				break
			}
			cur = next
		}
		update[level] = cur
	}
	return sl.elems[cur].next[0]
}

// extractOverlapping removes and returns, in order, every element whose
// period may overlap p: elements are scanned from the first one whose
// period does not end before p's start, up to the last one starting before
// p's end.
func (sl *skipList) extractOverlapping(p timeset.Period) []temporal.Temporal {
	var update [maxHeight]int
	cur := headIdx
	for level := sl.height - 1; level >= 0; level-- {
		for {
			next := sl.elems[cur].next[level]
			if next == tailIdx || !sl.elems[next].value.Period().Before(p) {
				break
			}
			cur = next
		}
		update[level] = cur
	}

	var out []temporal.Temporal
	idx := sl.elems[cur].next[0]
	for idx != tailIdx {
		ep := sl.elems[idx].value.Period()
		if p.Before(ep) {
			break
		}
		out = append(out, sl.elems[idx].value)
		next := sl.elems[idx].next[0]
		sl.unlink(idx, &update)
		idx = next
	}
	return out
}

// unlink removes idx, repairing every level of the update path.
func (sl *skipList) unlink(idx int, update *[maxHeight]int) {
	for level := 0; level < sl.elems[idx].height; level++ {
		prev := update[level]
		if sl.elems[prev].next[level] == idx {
			sl.elems[prev].next[level] = sl.elems[idx].next[level]
		}
	}
	sl.dealloc(idx)
	sl.length--
}

// insert links a new element at its ordered position.
func (sl *skipList) insert(v temporal.Temporal) {
	var update [maxHeight]int
	for i := range update {
		update[i] = headIdx
	}
	sl.findPath(lowerBound(v), &update)
	h := sl.randomHeight()
	if h > sl.height {
		sl.height = h
	}
	idx := sl.alloc(v, h)
	for level := 0; level < h; level++ {
		prev := update[level]
		sl.elems[idx].next[level] = sl.elems[prev].next[level]
		sl.elems[prev].next[level] = idx
	}
	sl.length++
}

// values returns the stored pieces in time order.
func (sl *skipList) values() []temporal.Temporal {
	out := make([]temporal.Temporal, 0, sl.length)
	for idx := sl.elems[headIdx].next[0]; idx != tailIdx; idx = sl.elems[idx].next[0] {
		out = append(out, sl.elems[idx].value)
	}
	return out
}

// splice merges the incoming pieces into the list: every stored element
// overlapping the incoming time range is pulled out, merged with the
// incoming run under the reducer kernel, and the merged pieces are
// reinserted.
func (sl *skipList) splice(incoming []temporal.Temporal, merge mergeFunc) error {
	if len(incoming) == 0 {
		return nil
	}
	lo := incoming[0].Period()
	hi := incoming[len(incoming)-1].Period()
	cover := lo
	cover.Upper, cover.UpperInc = hi.Upper, hi.UpperInc

	existing := sl.extractOverlapping(cover)
	merged, err := merge(existing, incoming)
	if err != nil {
		// reinsert what was pulled out so the state stays consistent
		for _, v := range existing {
			sl.insert(v)
		}
		return err
	}
	for _, v := range merged {
		sl.insert(v)
	}
	return nil
}

// mergeFunc folds two ordered runs of disjoint temporal pieces into one
// ordered disjoint run, combining overlaps under the reducer.
type mergeFunc func(a, b []temporal.Temporal) ([]temporal.Temporal, error)

func checkNotEmpty(vs []temporal.Temporal) error {
	for _, v := range vs {
		if v == nil {
			return terrors.New(terrors.Internal, "nil temporal piece in aggregation state")
		}
	}
	return nil
}
