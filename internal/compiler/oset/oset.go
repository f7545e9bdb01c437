// Package oset implements the insertion-ordered index set and
// dedup work-queue (C3) that the rest of the compiler uses wherever
// spec §5 requires deterministic, insertion-order iteration instead
// of Go's randomized map order. Grounded on original_source's
// pre_processing/queue.rs (PersistentDedupQueue, itself backed by
// Rust's indexmap::IndexSet) — here backed by
// github.com/emirpasic/gods's linkedhashset, which is the ordered-set
// analog available in the Go ecosystem.
package oset

import "github.com/emirpasic/gods/sets/linkedhashset"

// IndexSet is an insertion-ordered set of ints with O(1) membership
// test and removal.
type IndexSet struct {
	set *linkedhashset.Set
}

// NewIndexSet returns an empty IndexSet.
func NewIndexSet() *IndexSet {
	return &IndexSet{set: linkedhashset.New()}
}

// Add inserts n, returning true if it was not already present.
func (s *IndexSet) Add(n int) bool {
	if s.set.Contains(n) {
		return false
	}
	s.set.Add(n)
	return true
}

// Remove deletes n from the set, if present.
func (s *IndexSet) Remove(n int) {
	s.set.Remove(n)
}

// Contains reports whether n is a member.
func (s *IndexSet) Contains(n int) bool {
	return s.set.Contains(n)
}

// Len returns the number of members.
func (s *IndexSet) Len() int {
	return s.set.Size()
}

// Empty reports whether the set has no members.
func (s *IndexSet) Empty() bool {
	return s.set.Empty()
}

// Values returns the members in insertion order.
func (s *IndexSet) Values() []int {
	raw := s.set.Values()
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = v.(int)
	}
	return out
}

// First returns the first-inserted member still present, if any.
func (s *IndexSet) First() (int, bool) {
	vals := s.set.Values()
	if len(vals) == 0 {
		return 0, false
	}
	return vals[0].(int), true
}

// DedupQueue is a FIFO work queue that refuses to re-insert any item
// it has ever seen, even after that item has been popped. Used by C7
// step 3/4 to seed and drain the block-analysis work list: every
// reachable block (by #[main]/#[keep]/#[last] seed or weak reference)
// is analyzed exactly once, in deterministic insertion order.
type DedupQueue struct {
	queue []int
	seen  *linkedhashset.Set
	head  int
}

// NewDedupQueue returns an empty DedupQueue.
func NewDedupQueue() *DedupQueue {
	return &DedupQueue{seen: linkedhashset.New()}
}

// InsertIfNeeded enqueues item if it has never been seen before,
// returning true if it was newly enqueued.
func (q *DedupQueue) InsertIfNeeded(item int) bool {
	if q.seen.Contains(item) {
		return false
	}
	q.seen.Add(item)
	q.queue = append(q.queue, item)
	return true
}

// Pop removes and returns the oldest enqueued item not yet popped.
func (q *DedupQueue) Pop() (int, bool) {
	if q.head >= len(q.queue) {
		return 0, false
	}
	item := q.queue[q.head]
	q.head++
	return item, true
}

// Seen reports whether item has ever been inserted, whether or not it
// has since been popped.
func (q *DedupQueue) Seen(item int) bool {
	return q.seen.Contains(item)
}
