package mergepq

import (
	"sync/atomic"
	"unsafe"

	"github.com/loov/mergepq/internal/assert"
	"github.com/loov/mergepq/seqpq"
	"github.com/loov/mergepq/trylock"
)

// slotNode is one entry in a bag. It carries a sequential PQ guarded by a
// try-lock, and doubles as both a union-find element (owner) and an
// intrusive pending-merge list node (mergeHead/next/skip) so that slots
// from two different bags can be fused without ever taking two slot locks
// at once.
type slotNode[T any] struct {
	lock trylock.Mutex
	elem seqpq.SeqPQ[T]

	// version counts successful mutations of elem. Always maintained,
	// unconditionally, rather than behind a build-time switch: the extra
	// atomic increment per Insert/DeleteMin/SwapEmptyWith is cheap next to
	// the lock acquisition around it, and IsEmpty's two-pass snapshot probe
	// needs it on every slot to detect a mutation racing between its two
	// passes.
	version int64

	// owner is set, once and monotonically, to the slot node that has
	// claimed this node after it was linked into a pending-merge list.
	// nil means unclaimed.
	owner unsafe.Pointer // *slotNode[T]

	// mergeHead is the head of this slot's own pending-merge list: other
	// slot nodes waiting to be drained into elem. nilMark means "empty
	// list"; Go nil means this slot node has itself been drained and
	// moved elsewhere -- terminal, asserted against by evaluateMerges.
	mergeHead unsafe.Pointer // *slotNode[T]

	// next links this node into some other slot's pending-merge list.
	// nilMark means "tail, nothing appended yet"; dummyMark is a terminal
	// tombstone meaning the list was drained through this link and any
	// appender must restart from the list head.
	next unsafe.Pointer // *slotNode[T]

	// skip is a one-step tail-skip hint along the pending-merge list this
	// node is linked into via next; findAppendableTail sets it on the
	// list's head node. Purely optimizational: a stale skip only costs
	// an extra scan, since findAppendableTail re-validates whatever it
	// finds.
	skip unsafe.Pointer // *slotNode[T]

	// handle identifies which handle node's bag this slot belongs to, so
	// evaluateMerges can linearize the cross-bag merge that enqueued a
	// pending node before folding its contents in.
	handle *handleNode[T]
}

// newSlotNode builds one slot, obtaining the node's own storage from
// newNode -- ordinary heap allocation by default (see newSlotBag), or an
// alloc.Arena-backed allocator when the queue was built with
// NewWithAllocator.
func newSlotNode[T any](h *handleNode[T], newSeq seqpq.Factory[T], newNode func() *slotNode[T]) *slotNode[T] {
	n := newNode()
	n.elem = newSeq()
	n.handle = h
	n.mergeHead = nilMark
	n.next = nilMark
	return n
}

func (n *slotNode[T]) bumpVersion() {
	atomic.AddInt64(&n.version, 1)
}

func (n *slotNode[T]) loadVersion() int64 {
	return atomic.LoadInt64(&n.version)
}

// ownerPtr returns the slot node that has claimed n, or nil if unclaimed.
func (n *slotNode[T]) ownerPtr() *slotNode[T] {
	return (*slotNode[T])(atomicLoadPtr(&n.owner))
}

// claimBy attempts the one-shot monotonic owner transition: nil -> by.
// Returns whichever slot node actually ended up owning n -- by, if this
// call won the race, or an earlier winner otherwise.
func (n *slotNode[T]) claimBy(by *slotNode[T]) *slotNode[T] {
	if atomicCASPtr(&n.owner, nil, unsafe.Pointer(by)) {
		return by
	}
	return n.ownerPtr()
}

// evaluateMerges drains n's pending-merge list into n.elem. Must be called
// with n.lock held. Returns false on bailout: a nested try-lock failed, and
// the caller must release n.lock and retry on a different slot rather than
// wait -- this is what keeps the remove-any path deadlock-free.
func (n *slotNode[T]) evaluateMerges() bool {
	for {
		raw := atomicLoadPtr(&n.mergeHead)
		if raw == nilMark {
			return true
		}
		assert.Invariant(raw != nil, "evaluate-merges-on-drained-slot", nil)
		cur := (*slotNode[T])(raw)

		// cur is owned by n; linearize the cross-bag merge that produced
		// it before folding its contents in.
		cur.handle.ensureMerged()

		if !cur.lock.TryLock() {
			return false
		}
		if !cur.evaluateMerges() {
			cur.lock.Unlock()
			return false
		}
		n.elem.MergeSteal(cur.elem)
		cur.lock.Unlock()

		n.drainHead(cur)
	}
}

// drainHead unlinks a just-merged cur from the head of n's own
// pending-merge list. Must be called with n.lock held and after cur's own
// lock has already been released; n.mergeHead is mutated only by the
// goroutine holding n.lock, so the final CAS here cannot lose a race.
func (n *slotNode[T]) drainHead(cur *slotNode[T]) {
	atomicStorePtr(&cur.mergeHead, nil) // terminal: cur is drained

	for {
		next := atomicLoadPtr(&cur.next)
		switch next {
		case nilMark:
			if !atomicCASPtr(&cur.next, nilMark, dummyMark) {
				continue // a concurrent appender linked in; re-read next
			}
			next = nilMark
		case dummyMark:
			next = nilMark
		}

		ok := atomicCASPtr(&n.mergeHead, unsafe.Pointer(cur), next)
		assert.Invariant(ok, "merge-head-owned-by-lock-holder", nil)
		return
	}
}

// applyOutcome is the result of trying a single slot.
type applyOutcome int

const (
	outcomeFinished applyOutcome = iota
	outcomeNextElem
	outcomeNextBag
)

// tryEvaluateAndApply is the single-slot step shared by every public
// operation. It try-locks n, makes sure n hasn't gone stale (its owning
// handle merged away), drains any pending cross-bag merges into it, and
// then hands it to dg. The lock is always released before returning.
func tryEvaluateAndApply[T any](n *slotNode[T], dg func(*slotNode[T]) bool) applyOutcome {
	if !n.lock.TryLock() {
		return outcomeNextElem
	}
	defer n.lock.Unlock()

	if n.handle.loadBag() == nil {
		return outcomeNextBag
	}

	if !n.evaluateMerges() {
		return outcomeNextElem
	}

	if dg(n) {
		return outcomeFinished
	}
	return outcomeNextElem
}
