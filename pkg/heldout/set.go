package heldout

import (
	"sort"
	"sync"
)

// Excluder answers whether a row id must be kept out of retrieval results.
type Excluder interface {
	Contains(id string) bool
}

// None excludes nothing.
type None struct{}

func (None) Contains(string) bool { return false }

// Set is a mutable set of held-out row ids. Safe for concurrent use;
// every mutation is visible to the next Contains call.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func New(ids ...string) *Set {
	s := &Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	_, ok := s.ids[id]
	s.mu.RUnlock()
	return ok
}

// Add returns how many ids were not already present.
func (s *Set) Add(ids ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			s.ids[id] = struct{}{}
			added++
		}
	}
	return added
}

// Remove returns how many ids were present.
func (s *Set) Remove(ids ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			delete(s.ids, id)
			removed++
		}
	}
	return removed
}

func (s *Set) Replace(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
}

func (s *Set) Clear() {
	s.Replace(nil)
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns a sorted snapshot.
func (s *Set) IDs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
