package scheduler

import "fmt"

// slots is a counting semaphore backed by a buffered channel. The buffer
// size is the concurrency limit; len reports the number of held slots.
type slots chan struct{}

func newSlots(limit int) slots {
	return make(slots, limit)
}

// tryAcquire takes a slot if one is free. It never blocks.
func (s slots) tryAcquire() bool {
	select {
	case s <- struct{}{}:
		return true
	default:
		return false
	}
}

// release returns a slot. Must be called exactly once per successful
// tryAcquire.
func (s slots) release() {
	<-s
}

func (s slots) outstanding() int {
	return len(s)
}

func (s slots) String() string {
	return fmt.Sprintf("slots(%d/%d)", len(s), cap(s))
}
