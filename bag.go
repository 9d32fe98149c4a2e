package mergepq

import (
	"unsafe"

	"github.com/loov/mergepq/seqpq"
)

// slotBag is the width-sized array of slot nodes owned by one handle node.
// Two bags are merge-compatible only if their widths are equal.
type slotBag[T any] struct {
	width int
	nodes []*slotNode[T]
}

// newSlotBag builds a width-sized bag, obtaining each slot's storage from
// newNode (see newSlotNode).
func newSlotBag[T any](h *handleNode[T], width int, newSeq seqpq.Factory[T], newNode func() *slotNode[T]) *slotBag[T] {
	b := &slotBag[T]{width: width, nodes: make([]*slotNode[T], width)}
	for i := range b.nodes {
		b.nodes[i] = newSlotNode[T](h, newSeq, newNode)
	}
	return b
}

// tryApplyUntil visits every slot in a uniformly random cyclic order and
// calls dg under that slot's lock once any pending cross-bag merge has
// been drained into it. Returns true as soon as dg reports success on some
// slot. Returns false if the whole width was tried without success, or if
// some slot reported that this bag itself has been merged away mid-scan
// (the caller should re-resolve its handle's bag and retry).
func (b *slotBag[T]) tryApplyUntil(dg func(*slotNode[T]) bool) bool {
	start, stride := cyclicOrder(b.width)
	idx := start
	for i := 0; i < b.width; i++ {
		switch tryEvaluateAndApply(b.nodes[idx], dg) {
		case outcomeFinished:
			return true
		case outcomeNextBag:
			return false
		}
		idx = (idx + stride) % b.width
	}
	return false
}

// checkPass is like tryApplyUntil, but visits every slot exactly once
// regardless of per-slot outcome instead of stopping at the first success,
// and passes each slot's index in b.nodes to dg -- used by IsEmpty's
// two-pass snapshot probe, which must correlate what it saw at a given slot
// across both passes. ok reports whether dg returned true for every slot
// reached; valid is false if the bag itself turned out to be stale partway
// through, in which case ok is meaningless and the caller must re-resolve
// and restart the whole probe from pass one.
func (b *slotBag[T]) checkPass(dg func(i int, s *slotNode[T]) bool) (ok, valid bool) {
	start, stride := cyclicOrder(b.width)
	idx := start
	ok = true
	for i := 0; i < b.width; i++ {
		slotIdx := idx
		switch tryEvaluateAndApply(b.nodes[idx], func(s *slotNode[T]) bool {
			return dg(slotIdx, s)
		}) {
		case outcomeNextBag:
			return false, false
		case outcomeNextElem:
			ok = false
		}
		idx = (idx + stride) % b.width
	}
	return ok, true
}

// mergePerElementInto drives a cross-bag merge: every slot in b is queued
// onto the matching slot index's pending-merge list in whatever bag
// destHandle currently resolves to. Lock-free: it only CASes pointers,
// relying on readers (slotNode.evaluateMerges) to do the actual draining
// under their own slot lock.
func (b *slotBag[T]) mergePerElementInto(destHandle *handleNode[T]) {
	start, stride := cyclicOrder(b.width)
	idx := start
	for i := 0; i < b.width; i++ {
		b.insertIndexInto(idx, destHandle)
		idx = (idx + stride) % b.width
	}
}

// insertIndexInto inserts b.nodes[i] into the pending-merge list of slot i
// of destHandle's current bag, retrying against a freshly-resolved
// destination bag until the node is owned by *some* destination slot --
// not necessarily this one, if a racing merge claimed it first.
func (b *slotBag[T]) insertIndexInto(i int, destHandle *handleNode[T]) {
	src := b.nodes[i]
	for {
		if src.ownerPtr() != nil {
			return
		}

		_, destBag := destHandle.findClosestBag()
		dest := destBag.nodes[i]

		if b.appendToList(dest, src) {
			return
		}
	}
}

// appendToList tries to link src onto dest's pending-merge list. Returns
// true once src has become owned by some destination slot (see
// confirmOwnership); false means the caller must retry insertIndexInto
// from scratch against a freshly-resolved destination.
func (b *slotBag[T]) appendToList(dest, src *slotNode[T]) bool {
	head := atomicLoadPtr(&dest.mergeHead)
	switch head {
	case nil:
		// dest has itself been drained elsewhere; re-resolve and retry.
		return false
	case unsafe.Pointer(src):
		// Already linked at the head by an earlier attempt.
		return confirmOwnership(dest, src, nil)
	case nilMark:
		if !atomicCASPtr(&dest.mergeHead, nilMark, unsafe.Pointer(src)) {
			return false // raced with another inserter at an empty list
		}
		return confirmOwnership(dest, src, nil)
	}

	tail, ok := findAppendableTail(dest, head)
	if !ok {
		// The list ended in a tombstone (it was drained and possibly
		// reinserted elsewhere while we walked it), or its tail is not
		// owned by dest. Restart from head.
		return false
	}
	if !atomicCASPtr(&tail.next, nilMark, unsafe.Pointer(src)) {
		return false // someone else appended first, or the tail drained
	}
	return confirmOwnership(dest, src, tail)
}

// findAppendableTail walks dest's pending-merge list from head, using the
// skip hint as a starting point, looking for a node whose next is nilMark
// (the current tail) and whose owner still matches dest. ok is false if
// the walk hits a dummyMark tombstone first, or if the tail it reaches is
// not owned by dest.
func findAppendableTail[T any](dest *slotNode[T], head unsafe.Pointer) (*slotNode[T], bool) {
	start := (*slotNode[T])(head)
	cur := start
	if skip := atomicLoadPtr(&start.skip); skip != nil && skip != nilMark && skip != dummyMark {
		cur = (*slotNode[T])(skip)
	}

	for {
		next := atomicLoadPtr(&cur.next)
		switch next {
		case nilMark:
			if cur.ownerPtr() != dest {
				return nil, false
			}
			if cur != start {
				atomicStorePtr(&start.skip, unsafe.Pointer(cur))
			}
			return cur, true
		case dummyMark:
			return nil, false
		default:
			cur = (*slotNode[T])(next)
		}
	}
}

// confirmOwnership claims src for dest. If some other destination slot
// already won that race, it tries to unlink src from the link we just
// created (link == nil means dest.mergeHead itself, otherwise link.next).
// If that undo CAS also loses a race, src is left linked but unowned by
// dest -- left alone rather than retried, because a later appender walking
// this list already has to handle a stale link (findAppendableTail
// re-validates the owner of the tail it reaches), so it will notice the
// mismatch and restart from head on its own. Either way the node has
// become owned by *some* slot, so this always reports success to the
// caller.
func confirmOwnership[T any](dest, src *slotNode[T], link *slotNode[T]) bool {
	if src.claimBy(dest) == dest {
		return true
	}
	if link == nil {
		atomicCASPtr(&dest.mergeHead, unsafe.Pointer(src), nilMark)
	} else {
		atomicCASPtr(&link.next, unsafe.Pointer(src), nilMark)
	}
	return true
}
