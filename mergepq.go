// Package mergepq implements a mergeable, concurrent priority queue: a
// collection of sequential priority queues ("slots") spread across a bag,
// with a try-lock guarding each slot so that Insert, TryRemoveAny, and
// RemoveAny can proceed on whichever slot is free rather than queue up
// behind a single lock. Two PriorityQueue values of equal width can be
// fused by Merge without copying any elements: the operation links a
// handle-chain node and queues each of the losing side's slots onto the
// matching slot's pending-merge list, and later operations fold those
// slots' contents in lazily, one at a time, as they happen to be touched.
//
// The zero value of PriorityQueue is not usable; construct one with New.
package mergepq

import (
	"runtime"
	"unsafe"

	"github.com/loov/mergepq/alloc"
	"github.com/loov/mergepq/seqpq"
)

// PriorityQueue is a handle onto a (possibly merged-away) bag of slots. Its
// methods are safe for concurrent use by multiple goroutines sharing the
// same *PriorityQueue, and the value itself may be copied freely -- ptr is
// the only field, and every access to it goes through the atomic helpers
// below.
type PriorityQueue[T any] struct {
	ptr unsafe.Pointer // *handleNode[T]
}

// New creates a priority queue with the given id and width. id must be
// unique among any queues that might later be merged with one another: it
// breaks ties in the handle-chain union so merges always link the
// higher id's chain under the lower one, and a clash is reported back as
// MergeIDClash rather than silently merging the wrong queues together.
// newSeq builds the sequential priority queue backing each of the width
// slots; it is called width times and must produce independently usable
// values (seqpq.NewOrdered is the default choice for ordered element
// types).
//
// width governs concurrency, not capacity: every slot can hold any number
// of elements, but only width goroutines can make progress on this queue
// (pre-merge) at once without contending. Two queues can only be merged if
// they share the same width.
func New[T any](id uint64, width int, newSeq seqpq.Factory[T]) *PriorityQueue[T] {
	return newQueue(id, width, newSeq, func() *handleNode[T] { return &handleNode[T]{} },
		func() *slotNode[T] { return &slotNode[T]{} })
}

// NewWithAllocator is like New, but attributes the handle node and every
// slot node built for this queue to a, so a.Objects() accounts for them.
// Useful alongside a newSeq that itself allocates through a, to keep an
// entire queue's bookkeeping under one Arena.
func NewWithAllocator[T any](id uint64, width int, newSeq seqpq.Factory[T], a *alloc.Arena) *PriorityQueue[T] {
	defer alloc.Scope(a, width*64)()
	return newQueue(id, width, newSeq, func() *handleNode[T] { return alloc.New[handleNode[T]](a) },
		func() *slotNode[T] { return alloc.New[slotNode[T]](a) })
}

func newQueue[T any](id uint64, width int, newSeq seqpq.Factory[T], newHandle func() *handleNode[T], newNode func() *slotNode[T]) *PriorityQueue[T] {
	if width <= 0 {
		panic("mergepq: width must be positive")
	}

	h := newHandle()
	h.id = id
	b := newSlotBag[T](h, width, newSeq, newNode)
	atomicStorePtr(&h.bag, unsafe.Pointer(b))

	q := &PriorityQueue[T]{}
	atomicStorePtr(&q.ptr, unsafe.Pointer(h))
	return q
}

func (q *PriorityQueue[T]) currentHandle() *handleNode[T] {
	return (*handleNode[T])(atomicLoadPtr(&q.ptr))
}

// resolve returns q's current representative handle node and its live bag,
// opportunistically advancing q's own cached pointer if the handle chain
// has compressed past it since the last call. This is purely an
// optimization for repeated use of the same *PriorityQueue value -- it does
// not affect correctness, since every slot operation re-checks its owning
// handle's bag regardless.
func (q *PriorityQueue[T]) resolve() (*handleNode[T], *slotBag[T]) {
	h := q.currentHandle()
	cur, b := h.findClosestBag()
	if cur != h {
		atomicCASPtr(&q.ptr, unsafe.Pointer(h), unsafe.Pointer(cur))
	}
	return cur, b
}

// apply repeatedly resolves q to its current bag and tries dg against it
// until dg reports success on some slot. A bag that turns out to be stale
// mid-scan, or one where dg found no success anywhere in a full pass, both
// just cause a fresh resolve and another pass -- the caller's dg is
// responsible for deciding when to give up (see TryRemoveAny).
func (q *PriorityQueue[T]) apply(dg func(*slotNode[T]) bool) {
	for {
		_, b := q.resolve()
		if b.tryApplyUntil(dg) {
			return
		}
		runtime.Gosched()
	}
}

// Insert adds v to whichever slot's try-lock this goroutine manages to
// acquire first. Always succeeds; a sequential priority queue has no
// capacity limit of its own.
func (q *PriorityQueue[T]) Insert(v T) {
	q.apply(func(s *slotNode[T]) bool {
		s.elem.Insert(v)
		s.bumpVersion()
		return true
	})
}

// TryRemoveAny removes and returns some minimal element from whichever
// slot's try-lock this goroutine manages to acquire, giving up after
// roughly maxRetries unsuccessful slot attempts (spread across possibly
// several full passes, if the underlying bag is itself being merged away
// concurrently). found is false if it gave up with nothing removed.
func (q *PriorityQueue[T]) TryRemoveAny(maxRetries int) (result T, found bool) {
	retries := 0
	q.apply(func(s *slotNode[T]) bool {
		if v, ok := s.elem.DeleteMin(); ok {
			result, found = v, true
			s.bumpVersion()
			return true
		}
		retries++
		return retries > maxRetries
	})
	return result, found
}

// RemoveAny removes and returns some minimal element, blocking (spinning,
// with backoff) until one becomes available. Equivalent to TryRemoveAny
// with an unbounded retry count.
func (q *PriorityQueue[T]) RemoveAny() T {
	var result T
	q.apply(func(s *slotNode[T]) bool {
		if v, ok := s.elem.DeleteMin(); ok {
			result = v
			s.bumpVersion()
			return true
		}
		return false
	})
	return result
}

// SwapEmptyWith blocks until it finds a slot whose sequential queue is
// empty, then swaps that slot's queue with *src in place -- constant time,
// since the swap is just an interface-value exchange, not a drain-and-copy
// of either side's contents. Typical use is reclaiming a pre-built,
// already-populated seqpq.SeqPQ[T] into a live slot in one step instead of
// inserting its elements one at a time.
func (q *PriorityQueue[T]) SwapEmptyWith(src *seqpq.SeqPQ[T]) {
	q.apply(func(s *slotNode[T]) bool {
		if !s.elem.Empty() {
			return false
		}
		s.elem, *src = *src, s.elem
		s.bumpVersion()
		return true
	})
}

// MergeResult reports the outcome of a Merge call.
type MergeResult int

const (
	// MergeSuccess means q and other now refer to the same fused queue.
	MergeSuccess MergeResult = iota
	// MergeWereAlreadyEqual means q and other already referred to the same
	// queue (possibly due to an earlier merge, direct or transitive); no
	// further chain mutation was made or needed.
	MergeWereAlreadyEqual
	// MergeIDClash means q and other's current representatives carry the
	// same id without already being the same node -- a programmer error,
	// since ids are only meant to collide when two handles really are the
	// same queue. Merge makes no changes to either queue when this happens.
	MergeIDClash
	// MergeIncompatible means q and other have different widths and can
	// never be merged.
	MergeIncompatible
)

// Merge fuses q and other into a single queue: after a successful call,
// operations on either *PriorityQueue value observe elements inserted
// through the other. Merge queues each of the losing side's slots onto the
// matching slot's pending-merge list on the winning side; the elements
// themselves are folded in lazily, by whichever operations touch those
// slots afterward. Merge itself therefore takes time proportional to the
// width plus the length of each side's handle chain, not to either queue's
// element count.
//
// q and other must have been constructed with the same width, or Merge
// returns MergeIncompatible without touching either queue. Merging a queue
// with itself (directly, or transitively through a prior merge) returns
// MergeWereAlreadyEqual.
func (q *PriorityQueue[T]) Merge(other *PriorityQueue[T]) MergeResult {
	h, _ := q.resolve()
	oh, _ := other.resolve()

	if !h.canMergeWith(oh) {
		return MergeIncompatible
	}

	result, _ := h.tryUnion(oh)

	// Refresh both queues' cached entry points now, while the winning
	// representative is cheap to find, so a later call doesn't have to
	// re-walk the chain from scratch.
	q.resolve()
	other.resolve()
	return result
}

// IsEmpty reports whether the queue held no elements at some instant
// during the call. It works by taking two successive full passes over the
// current bag, recording each slot's version in the first pass and
// confirming both emptiness and an unchanged version in the second; slot
// agreement across both passes certifies that nothing was inserted into or
// removed from that slot in the window between them, so the queue really
// was empty throughout it. A version mismatch, or any slot found
// non-empty, is treated conservatively as "not confirmed empty".
func (q *PriorityQueue[T]) IsEmpty() bool {
	for {
		_, b := q.resolve()
		versions := make([]int64, len(b.nodes))

		pass1, valid := b.checkPass(func(i int, s *slotNode[T]) bool {
			versions[i] = s.loadVersion()
			return s.elem.Empty()
		})
		if !valid {
			continue
		}
		if !pass1 {
			return false
		}

		pass2, valid := b.checkPass(func(i int, s *slotNode[T]) bool {
			return s.elem.Empty() && s.loadVersion() == versions[i]
		})
		if !valid {
			continue
		}
		return pass2
	}
}
