package mergepq

import (
	"unsafe"

	"github.com/loov/mergepq/internal/assert"
	"github.com/sirupsen/logrus"
)

// handleNode is one link in the acyclic, strictly-decreasing-id handle
// chain that records the history of Merge operations. For every node,
// either bag != nil and next == nil (a leaf: the live representative), or
// eventually bag == nil and next != nil with next.id < id.
type handleNode[T any] struct {
	id uint64

	bag  unsafe.Pointer // *slotBag[T]; nil once fully merged elsewhere
	next unsafe.Pointer // *handleNode[T]; nil until unioned into another
}

func (h *handleNode[T]) loadBag() *slotBag[T] {
	return (*slotBag[T])(atomicLoadPtr(&h.bag))
}

func (h *handleNode[T]) loadNext() *handleNode[T] {
	return (*handleNode[T])(atomicLoadPtr(&h.next))
}

// findClosestBag walks the chain from h until it finds a node with a live
// bag, path-compressing every intermediate node's next pointer directly to
// that node. Safe under concurrent merges because every observed next
// points to a strictly smaller id, so compressing to a further descendant
// can never introduce a cycle or point backwards.
func (h *handleNode[T]) findClosestBag() (*handleNode[T], *slotBag[T]) {
	var visited []*handleNode[T]
	cur := h
	for {
		if b := cur.loadBag(); b != nil {
			for _, mid := range visited {
				if old := mid.loadNext(); old != cur {
					atomicCASPtr(&mid.next, unsafe.Pointer(old), unsafe.Pointer(cur))
				}
			}
			return cur, b
		}
		next := cur.loadNext()
		assert.Invariant(next != nil, "chain-node-has-neither-bag-nor-next", logrus.Fields{"id": cur.id})
		visited = append(visited, cur)
		cur = next
	}
}

// descendMerging behaves like findClosestBag, but additionally linearizes
// (ensureMergedInto) every intermediate node's merge before advancing past
// it, so by the time it returns, every slot along the walked prefix has
// already had its contents handed off toward the final representative.
func (h *handleNode[T]) descendMerging() (*handleNode[T], *slotBag[T]) {
	cur := h
	for {
		if b := cur.loadBag(); b != nil {
			return cur, b
		}
		next := cur.loadNext()
		assert.Invariant(next != nil, "chain-node-has-neither-bag-nor-next", logrus.Fields{"id": cur.id})
		cur.ensureMergedInto(next)
		cur = next
	}
}

// ensureMergedInto linearizes the merge of h's bag into next's, if that
// hasn't happened yet. Idempotent: once h.bag is nil, further calls are a
// no-op, and mergePerElementInto itself tolerates being re-run by a helper
// that raced in (each slot index short-circuits once already owned).
func (h *handleNode[T]) ensureMergedInto(next *handleNode[T]) {
	b := h.loadBag()
	if b == nil {
		return
	}
	b.mergePerElementInto(next)
	// Linearization point of the handle-level merge: after this CAS,
	// every reader finding h.bag == nil knows to keep descending.
	atomicCASPtr(&h.bag, unsafe.Pointer(b), nil)
}

// ensureMerged linearizes whatever merge h is currently undergoing as a
// source, following its next pointer. Called by slotNode.evaluateMerges
// before folding a pending-merge-list node's contents in, so the fold
// always sees a fully-migrated source bag.
func (h *handleNode[T]) ensureMerged() {
	if h.loadBag() != nil {
		return
	}
	next := h.loadNext()
	assert.Invariant(next != nil, "merged-handle-missing-next", logrus.Fields{"id": h.id})
	h.ensureMergedInto(next)
}

// tryUnion links h and other's chains together (the union step of the
// union-find). On success it also drains the losing side's bag into the
// winner's, since both pieces of information -- which side lost, and what
// it should drain into -- are already in hand at the point the CAS
// succeeds.
func (h *handleNode[T]) tryUnion(other *handleNode[T]) (MergeResult, *handleNode[T]) {
	a, _ := h.descendMerging()
	b, _ := other.descendMerging()

	for {
		if a == b {
			return MergeWereAlreadyEqual, nil
		}

		lo, hi := a, b
		if lo.id > hi.id {
			lo, hi = hi, lo
		}
		if lo.id == hi.id {
			return MergeIDClash, nil
		}

		if atomicCASPtr(&hi.next, nil, unsafe.Pointer(lo)) {
			hi.ensureMergedInto(lo)
			return MergeSuccess, lo
		}

		// hi was unioned by a racing merge in the meantime; re-descend
		// and retry against the new state.
		a, _ = a.descendMerging()
		b, _ = b.descendMerging()
	}
}

// canMergeWith reports whether h and other's current bags have equal
// width. Width is immutable per bag, so this check is safe to make before
// any chain mutation.
func (h *handleNode[T]) canMergeWith(other *handleNode[T]) bool {
	_, ba := h.findClosestBag()
	_, bb := other.findClosestBag()
	return ba.width == bb.width
}
