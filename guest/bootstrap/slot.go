package bootstrap

import (
	"fmt"
	"sync"
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotFull
	slotTaken
)

// Slot holds one value that is set exactly once and taken exactly once.
// Any other sequence is a programming error and panics.
type Slot[T any] struct {
	mu    sync.Mutex
	state slotState
	value T
}

// Set stores v. It panics if the slot was ever set before.
func (s *Slot[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != slotEmpty {
		panic(fmt.Sprintf("bootstrap: slot set twice (state %d)", s.state))
	}
	s.value = v
	s.state = slotFull
}

// Take returns the stored value and leaves the slot permanently empty. It
// panics if the slot was never set or has already been taken.
func (s *Slot[T]) Take() T {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case slotEmpty:
		panic("bootstrap: slot taken before it was set")
	case slotTaken:
		panic("bootstrap: slot taken twice")
	}

	v := s.value
	var zero T
	s.value = zero
	s.state = slotTaken
	return v
}
