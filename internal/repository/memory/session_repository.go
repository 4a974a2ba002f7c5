package memory

import (
	"sync"
	"time"

	"exoplanet-classifier-be/internal/entity"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SessionRepository keeps the most recently used sessions. Sessions that fall out of the
// LRU or idle past the TTL are passed to onEvict so their bundles can be removed.
type SessionRepository struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *entity.Session]
}

func NewSessionRepository(size int, ttl time.Duration, onEvict func(sessionID string)) *SessionRepository {
	if size <= 0 {
		size = 256
	}
	evict := func(id string, _ *entity.Session) {
		if onEvict != nil {
			go onEvict(id)
		}
	}
	return &SessionRepository{
		cache: expirable.NewLRU[string, *entity.Session](size, evict, ttl),
	}
}

// GetOrCreate returns the session for id, creating an empty one on first use.
func (r *SessionRepository) GetOrCreate(id string) *entity.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.cache.Get(id); ok {
		return s
	}
	s := entity.NewSession(id)
	r.cache.Add(id, s)
	return s
}

func (r *SessionRepository) Get(id string) (*entity.Session, bool) {
	return r.cache.Get(id)
}

// Touch refreshes the session's TTL.
func (r *SessionRepository) Touch(s *entity.Session) {
	r.cache.Add(s.Id, s)
}

// Delete removes the session; onEvict fires as for any other eviction.
func (r *SessionRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(id)
}

func (r *SessionRepository) Len() int {
	return r.cache.Len()
}
