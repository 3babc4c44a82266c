package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxSessions = 1024
	DefaultIdleTTL     = 24 * time.Hour
)

// Registry keeps live sessions in an expiring LRU. Evicted or expired
// sessions are closed.
type Registry struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Session]
	cfg   Config
	newID func() string
}

// NewRegistry builds a registry holding at most max sessions, each released
// after ttl without access.
func NewRegistry(max int, ttl time.Duration, cfg Config) *Registry {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	onEvict := func(_ string, s *Session) {
		s.Close()
	}
	return &Registry{
		cache: expirable.NewLRU[string, *Session](max, onEvict, ttl),
		cfg:   cfg,
		newID: uuid.NewString,
	}
}

// Config returns the session template.
func (r *Registry) Config() Config { return r.cfg }

// Get returns a live session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Session, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touchLocked(id)
}

func (r *Registry) touchLocked(id string) (*Session, bool) {
	s, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	// expirable.LRU only extends the deadline on Add.
	r.cache.Add(id, s)
	return s, true
}

// Resolve returns the session for id, or creates a fresh one seeded from
// persistedModel under a new id. The bool reports creation.
func (r *Registry) Resolve(id, persistedModel string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id = strings.TrimSpace(id); id != "" {
		if s, ok := r.touchLocked(id); ok {
			return s, false
		}
	}
	s := New(r.newID(), persistedModel, r.cfg)
	r.cache.Add(s.ID(), s)
	return s, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Purge closes and drops every session.
func (r *Registry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
