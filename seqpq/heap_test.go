package seqpq

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeapDeleteMinReturnsAscendingOrder(t *testing.T) {
	h := NewOrdered[int]()
	values := []int{5, 3, 8, 1, 9, 2}
	for _, v := range values {
		h.Insert(v)
	}

	var got []int
	for !h.Empty() {
		v, ok := h.DeleteMin()
		if !ok {
			t.Fatal("DeleteMin() returned ok=false while Empty() was false")
		}
		got = append(got, v)
	}

	want := append([]int(nil), values...)
	sort.Ints(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("drain order mismatch (-want +got):\n%s", diff)
	}
}

func TestHeapPeekMinDoesNotRemove(t *testing.T) {
	h := NewOrdered[int]()
	h.Insert(4)
	h.Insert(1)
	h.Insert(7)

	v, ok := h.PeekMin()
	if !ok || v != 1 {
		t.Fatalf("PeekMin() = (%d, %v), want (1, true)", v, ok)
	}
	if v, ok := h.PeekMin(); !ok || v != 1 {
		t.Fatalf("second PeekMin() = (%d, %v), want (1, true) again", v, ok)
	}
}

func TestHeapEmptyOnZeroElements(t *testing.T) {
	h := NewOrdered[int]()
	if !h.Empty() {
		t.Fatal("a freshly constructed heap must be Empty()")
	}
	if _, ok := h.DeleteMin(); ok {
		t.Fatal("DeleteMin() on an empty heap must report ok=false")
	}
}

func TestHeapMergeStealAbsorbsOtherAndEmptiesIt(t *testing.T) {
	a := NewOrdered[int]()
	a.Insert(10)
	a.Insert(20)

	b := NewOrdered[int]()
	b.Insert(5)
	b.Insert(15)

	a.MergeSteal(b)

	if !b.Empty() {
		t.Fatal("MergeSteal() must leave the source heap empty")
	}

	var got []int
	for !a.Empty() {
		v, _ := a.DeleteMin()
		got = append(got, v)
	}
	want := []int{5, 10, 15, 20}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merged drain order mismatch (-want +got):\n%s", diff)
	}
}

func TestNewWithCustomLess(t *testing.T) {
	h := New[int](func(a, b int) bool { return a > b }) // max-heap
	for _, v := range []int{3, 1, 4, 1, 5} {
		h.Insert(v)
	}
	v, _ := h.DeleteMin()
	if v != 5 {
		t.Fatalf("DeleteMin() with a descending Less = %d, want 5", v)
	}
}
