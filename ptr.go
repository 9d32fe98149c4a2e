package mergepq

import (
	"sync/atomic"
	"unsafe"
)

// nilMark and dummyMark are dedicated sentinel addresses used by the
// intrusive pending-merge list (slotNode.mergeHead / slotNode.next).
// Neither is ever dereferenced; only their identity is compared. Both are
// distinct from Go's untyped nil, which is reserved for "this slot node
// has been drained" on mergeHead -- see slot.go.
//
// A dedicated static address is used instead of a tagged integer because
// the non-sentinel values of these fields are real *slotNode[T] pointers
// that must support ordinary identity comparison against one another; a
// numeric tag would need every pointer use site to mask it off first.
var (
	nilMarkElem   byte
	dummyMarkElem byte
	nilMark       = unsafe.Pointer(&nilMarkElem)
	dummyMark     = unsafe.Pointer(&dummyMarkElem)
)

func atomicLoadPtr(addr *unsafe.Pointer) unsafe.Pointer {
	return atomic.LoadPointer(addr)
}

func atomicStorePtr(addr *unsafe.Pointer, val unsafe.Pointer) {
	atomic.StorePointer(addr, val)
}

func atomicCASPtr(addr *unsafe.Pointer, old, new unsafe.Pointer) bool {
	return atomic.CompareAndSwapPointer(addr, old, new)
}
