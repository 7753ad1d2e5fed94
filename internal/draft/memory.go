package draft

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps drafts in process. It is used when no database is
// configured and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]Draft
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore returns an empty store whose drafts live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		drafts: make(map[uuid.UUID]Draft),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, d Draft) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	d.ID = uuid.New()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.ExpiresAt = now.Add(s.ttl)
	d.Files = append(d.Files[:0:0], d.Files...)
	s.drafts[d.ID] = d
	return d, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok || d.Expired(s.now()) {
		return Draft{}, ErrNotFound
	}
	d.Files = append(d.Files[:0:0], d.Files...)
	return d, nil
}

func (s *MemoryStore) Save(_ context.Context, d Draft) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.drafts[d.ID]
	now := s.now()
	if !ok || cur.Expired(now) {
		return Draft{}, ErrNotFound
	}
	cur.Files = append(d.Files[:0:0], d.Files...)
	cur.Address = d.Address
	cur.UpdatedAt = now
	cur.ExpiresAt = now.Add(s.ttl)
	s.drafts[d.ID] = cur
	return cur, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, cutoff time.Time) ([]Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Draft
	for id, d := range s.drafts {
		if d.ExpiresAt.Before(cutoff) {
			out = append(out, d)
			delete(s.drafts, id)
		}
	}
	return out, nil
}
