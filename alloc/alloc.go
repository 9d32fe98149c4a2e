// Package alloc provides the allocator contract that mergepq threads
// through its constructors instead of reaching for package-level globals.
// Callers construct an Arena and pass it to mergepq.NewWithAllocator,
// and every handle node and slot node built for that queue is attributed
// to it, so its object count can be inspected for diagnostics without
// Go's GC bookkeeping in the way.
package alloc

import "sync/atomic"

// Allocator is the contract mergepq requires from a memory strategy.
//
// Enter/Exit bracket a logical allocation scope (e.g. one goroutine's slice
// of work); Alloc reserves n bytes of raw storage for an implementation
// that wants to hand out memory from a pre-reserved region rather than one
// make call per request. Implementations are not required to be safe for
// concurrent use from multiple goroutines without their own
// synchronization; the default Arena is.
type Allocator interface {
	Enter(chunkSize int)
	Exit()
	Alloc(n int) []byte
	// Objects returns the number of typed values constructed through this
	// allocator so far, for diagnostics.
	Objects() int64
}

// Arena is the default Allocator. It defers all reclamation to the Go
// garbage collector: Alloc hands out ordinary heap slices, and Enter/Exit
// only track nesting depth and the active chunk size hint. There is
// nothing to free -- an Arena that is done being used is simply left for
// the collector, the same as any other Go value.
type Arena struct {
	chunkSize int64
	depth     int32
	objects   int64
}

// NewArena creates an Arena with the given default chunk size hint.
func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	return &Arena{chunkSize: int64(chunkSize)}
}

// Enter opens a new allocation scope. chunkSize of 0 keeps the previous
// hint.
func (a *Arena) Enter(chunkSize int) {
	atomic.AddInt32(&a.depth, 1)
	if chunkSize > 0 {
		atomic.StoreInt64(&a.chunkSize, int64(chunkSize))
	}
}

// Exit closes the most recently opened scope.
func (a *Arena) Exit() {
	atomic.AddInt32(&a.depth, -1)
}

// Alloc returns n bytes of fresh storage.
func (a *Arena) Alloc(n int) []byte {
	return make([]byte, n)
}

// Objects reports how many typed values have been constructed with New.
func (a *Arena) Objects() int64 {
	return atomic.LoadInt64(&a.objects)
}

// New constructs a *T attributed to the arena's object count. The
// construction itself is an ordinary Go allocation -- a's contribution is
// the bookkeeping, not the memory itself, since mergepq's correctness must
// not depend on where its nodes happen to live.
func New[T any](a *Arena) *T {
	atomic.AddInt64(&a.objects, 1)
	return new(T)
}

// Scope opens a and returns a function that closes it, for
// defer-friendly RAII-style acquisition:
//
//	defer alloc.Scope(a, 0)()
func Scope(a *Arena, chunkSize int) func() {
	a.Enter(chunkSize)
	return a.Exit
}
