// Package interact turns raw pointer input into frame-coalesced store
// mutations.
package interact

import "sync"

// Slot is a single-value mailbox. Offer overwrites whatever is pending and
// never blocks; Take drains at most one value. Intermediate offers between
// two takes are dropped, which is what bounds store writes to one per frame.
type Slot[T any] struct {
	mu sync.Mutex
	ch chan T
}

// NewSlot returns an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{ch: make(chan T, 1)}
}

// Offer replaces the pending value with v.
func (s *Slot[T]) Offer(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}

// Take returns the pending value, if any.
func (s *Slot[T]) Take() (T, bool) {
	select {
	case v := <-s.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Clear drops the pending value.
func (s *Slot[T]) Clear() {
	s.Take()
}
