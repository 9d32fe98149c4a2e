package mergepq

import (
	"testing"
	"unsafe"

	"github.com/loov/mergepq/seqpq"
)

func newTestBag(h *handleNode[int], width int) *slotBag[int] {
	return newSlotBag[int](h, width, func() seqpq.SeqPQ[int] { return seqpq.NewOrdered[int]() },
		func() *slotNode[int] { return &slotNode[int]{} })
}

// TestMergePerElementIntoFoldsEverySlot drives the low-level per-slot
// merge directly (bypassing tryUnion) and checks that every destination
// slot ends up owning exactly the matching source slot, and that draining
// the destination picks up everything the source held.
func TestMergePerElementIntoFoldsEverySlot(t *testing.T) {
	const width = 4

	srcHandle := &handleNode[int]{id: 2}
	srcBag := newTestBag(srcHandle, width)
	atomicStorePtr(&srcHandle.bag, unsafe.Pointer(srcBag))

	dstHandle := &handleNode[int]{id: 1}
	dstBag := newTestBag(dstHandle, width)
	atomicStorePtr(&dstHandle.bag, unsafe.Pointer(dstBag))

	for i, n := range srcBag.nodes {
		n.elem.Insert(100 + i)
	}

	srcBag.mergePerElementInto(dstHandle)

	for i, n := range dstBag.nodes {
		src := srcBag.nodes[i]
		if src.ownerPtr() != n {
			t.Fatalf("slot %d: source not owned by the matching destination slot", i)
		}
		if !tryDrain(n) {
			t.Fatalf("slot %d: evaluateMerges bailed out unexpectedly", i)
		}
		if v, ok := n.elem.PeekMin(); !ok || v != 100+i {
			t.Fatalf("slot %d: after drain, PeekMin() = (%d, %v), want (%d, true)", i, v, ok, 100+i)
		}
	}
}

func tryDrain(n *slotNode[int]) bool {
	if !n.lock.TryLock() {
		return false
	}
	defer n.lock.Unlock()
	return n.evaluateMerges()
}
