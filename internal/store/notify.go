package store

import "github.com/roach88/gridfill/internal/record"

// ChangeKind distinguishes the mutations a subscriber can observe.
type ChangeKind int

const (
	ChangeInserted ChangeKind = iota + 1
	ChangeUpdated
	ChangeDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInserted:
		return "inserted"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change describes one committed mutation. Record is the state after the
// change (before it, for deletions). Update is set for ChangeUpdated.
type Change struct {
	Kind    ChangeKind
	Record  record.Record
	Update  record.Update
	Version int64
}

// Subscribe registers fn to be called after every committed mutation, in
// commit order. Callbacks run synchronously on the writer's goroutine while
// the write lock is held, so they must not call back into the store's write
// methods. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// notify delivers c to all subscribers. Callers hold s.mu.
func (s *Store) notify(c Change) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, fn := range s.subs {
		fn(c)
	}
}
