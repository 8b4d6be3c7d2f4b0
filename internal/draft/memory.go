package draft

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often Save walks the map for expired drafts.
const sweepInterval = time.Minute

type memoryEntry struct {
	draft     *Draft
	expiresAt time.Time
}

// MemoryStore keeps drafts in process memory. Drafts expire ttl after their
// last save. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.Mutex
	drafts    map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore creates a MemoryStore. A zero ttl keeps drafts forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		drafts: make(map[string]memoryEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(e) {
		delete(s.drafts, id)
		return nil, ErrNotFound
	}
	return e.draft.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, d *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	d.UpdatedAt = now

	e := memoryEntry{draft: d.Clone()}
	if s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
	}
	s.drafts[d.ID] = e

	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep()
		s.lastSweep = now
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored drafts, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

// sweep requires s.mu.
func (s *MemoryStore) sweep() {
	for id, e := range s.drafts {
		if s.expired(e) {
			delete(s.drafts, id)
		}
	}
}
