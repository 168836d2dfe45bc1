package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Session is one logical conversation's authorization state. Once
// activated it stays active until Deactivate is called.
type Session struct {
	ID string

	mu           sync.RWMutex
	active       bool
	authorizedAt time.Time
}

// NewSession returns an inactive session with a random ID.
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// Activate marks the session authorized.
func (s *Session) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		s.active = true
		s.authorizedAt = time.Now()
	}
}

// Deactivate revokes authorization.
func (s *Session) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.authorizedAt = time.Time{}
}

// Active reports whether the session is authorized.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// AuthorizedAt returns when the session was activated, or the zero time.
func (s *Session) AuthorizedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorizedAt
}

// DefaultSessionTTL is how long an idle session survives in a Registry.
const DefaultSessionTTL = 12 * time.Hour

// Registry holds sessions keyed by ID with sliding expiry.
type Registry struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRegistry returns a registry whose sessions expire after ttl of
// inactivity.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Registry{cache: cache.New(ttl, ttl*2), ttl: ttl}
}

// Create registers and returns a new inactive session.
func (r *Registry) Create() *Session {
	s := NewSession()
	r.cache.Set(s.ID, s, cache.DefaultExpiration)
	return s
}

// Get returns the session for id and refreshes its expiry.
func (r *Registry) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	v, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	s, ok := v.(*Session)
	if !ok {
		return nil, false
	}
	r.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// Remove deletes the session.
func (r *Registry) Remove(id string) {
	r.cache.Delete(id)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return r.cache.ItemCount()
}
