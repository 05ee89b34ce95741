package poller

import (
	"container/list"
	"sync"
)

// emittedSet is a bounded LRU of identity keys already emitted by this
// poller, evicted by size or by absence on two consecutive polls.
// Callers call Mark for each emitted identity key they see again in
// the current poll pass (Mark also adds a key not yet in the set),
// then Sweep once the pass is done; a key not marked in two
// consecutive passes is dropped.
type emittedSet struct {
	maxSize int

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
	seen    map[string]bool
	missed  map[string]bool
}

func newEmittedSet(maxSize int) *emittedSet {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &emittedSet{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		seen:    make(map[string]bool),
		missed:  make(map[string]bool),
	}
}

func (s *emittedSet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

func (s *emittedSet) Mark(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key] = true
	if el, ok := s.entries[key]; ok {
		s.order.MoveToFront(el)
		return
	}
	el := s.order.PushFront(key)
	s.entries[key] = el
	for s.order.Len() > s.maxSize {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(string))
	}
}

// Sweep runs after one poll pass over all current identity keys: any
// tracked key not re-touched this pass is marked missed; a key missed
// twice in a row is evicted.
func (s *emittedSet) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, el := range s.entries {
		if s.seen[key] {
			delete(s.missed, key)
			continue
		}
		if s.missed[key] {
			s.order.Remove(el)
			delete(s.entries, key)
			delete(s.missed, key)
			continue
		}
		s.missed[key] = true
	}
	s.seen = make(map[string]bool)
}
