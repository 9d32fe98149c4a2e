package seqpq

// SeqPQ is the contract mergepq requires of the sequential priority queue
// stored in each slot. Implementations are single-threaded: every call
// mergepq makes into a SeqPQ happens while that slot's lock is held.
type SeqPQ[T any] interface {
	Insert(T)
	DeleteMin() (T, bool)
	PeekMin() (T, bool)
	// MergeSteal absorbs other's contents into the receiver, leaving
	// other empty. Called with the receiver and other both locked by the
	// caller (mergepq never calls it otherwise).
	MergeSteal(other SeqPQ[T])
	Empty() bool
}

// Factory builds a fresh, empty SeqPQ[T] for one bag slot.
type Factory[T any] func() SeqPQ[T]
