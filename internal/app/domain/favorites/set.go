package favorites

import (
	"slices"
	"sync"
)

// Set is the favorite route ids of one session. It is safe for concurrent
// use. Ids are not checked against the catalog.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}

	// serializes read, persist, flip sequences of the service
	op sync.Mutex
}

func NewSet(ids ...string) *Set {
	s := &Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Toggle flips membership of id and returns the new membership.
func (s *Set) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Set) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// set makes membership of id equal to member.
func (s *Set) set(id string, member bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member {
		s.ids[id] = struct{}{}
	} else {
		delete(s.ids, id)
	}
}

// IDs returns a sorted copy of the members.
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Replace swaps the whole membership.
func (s *Set) Replace(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
