// Package seqpq supplies the default sequential priority queue plugged
// into mergepq's slots. It is an ordinary single-threaded structure; all
// synchronization lives one layer up, in the slot lock.
//
// The implementation is the usual container/heap wrapper shape: a flat
// slice plus the five container/heap.Interface methods, driven by a
// caller-supplied Less.
package seqpq

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

// Heap is a binary min-heap over T, ordered by a caller-supplied Less.
type Heap[T any] struct {
	items []T
	less  func(a, b T) bool
}

// New creates an empty Heap ordered by less.
func New[T any](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{less: less}
}

// NewOrdered creates an empty Heap over a constraints.Ordered element type,
// using the natural '<' order.
func NewOrdered[T constraints.Ordered]() *Heap[T] {
	return New[T](func(a, b T) bool { return a < b })
}

// Insert adds v to the heap.
func (h *Heap[T]) Insert(v T) {
	heap.Push(h, v)
}

// DeleteMin removes and returns the minimum element, if any.
func (h *Heap[T]) DeleteMin() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(h).(T), true
}

// PeekMin returns the minimum element without removing it, if any.
func (h *Heap[T]) PeekMin() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.items[0], true
}

// MergeSteal absorbs other's contents, leaving other empty.
//
// other must be a *Heap[T] built with a compatible Less; mergepq only ever
// calls MergeSteal between sequential PQs created by the same factory
// function, so this type assertion cannot fail in correct use.
func (h *Heap[T]) MergeSteal(other SeqPQ[T]) {
	o, ok := other.(*Heap[T])
	if !ok || o == nil {
		return
	}
	for _, v := range o.items {
		heap.Push(h, v)
	}
	o.items = o.items[:0]
}

// Empty reports whether the heap holds no elements.
func (h *Heap[T]) Empty() bool {
	return len(h.items) == 0
}

// Len, Less, Swap, Push, Pop implement container/heap.Interface.

func (h *Heap[T]) Len() int { return len(h.items) }

func (h *Heap[T]) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }

func (h *Heap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *Heap[T]) Push(x any) { h.items = append(h.items, x.(T)) }

func (h *Heap[T]) Pop() any {
	n := len(h.items)
	v := h.items[n-1]
	var zero T
	h.items[n-1] = zero
	h.items = h.items[:n-1]
	return v
}
