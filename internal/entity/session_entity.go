package entity

import (
	"sync"
	"time"

	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/heldout"
)

// Session holds the rows a visitor added on top of the base dataset and their held-out ids.
type Session struct {
	Id        string
	HeldOut   *heldout.Set
	CreatedAt time.Time

	mu        sync.RWMutex
	rows      []exo.Row
	updatedAt time.Time
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{Id: id, HeldOut: heldout.New(), CreatedAt: now, updatedAt: now}
}

// Rows returns a copy of the user rows.
func (s *Session) Rows() []exo.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]exo.Row(nil), s.rows...)
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// AddRows appends rows whose id is not present yet and returns how many were skipped.
func (s *Session) AddRows(rows []exo.Row) (added, duplicates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(s.rows))
	for _, r := range s.rows {
		seen[r.ID] = struct{}{}
	}
	for _, r := range rows {
		if _, ok := seen[r.ID]; ok {
			duplicates++
			continue
		}
		seen[r.ID] = struct{}{}
		s.rows = append(s.rows, r)
		added++
	}
	s.updatedAt = time.Now()
	return added, duplicates
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.rows = nil
	s.updatedAt = time.Now()
	s.mu.Unlock()
	s.HeldOut.Clear()
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
