package pending

import "sync"

// Store keeps at most one Correction per actor.
type Store interface {
	Get(actor string) (Correction, bool)
	Put(actor string, c Correction)
	Delete(actor string)
}

// MemoryStore is a process-local Store. Pending corrections do not survive
// a restart.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]Correction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string]Correction{}}
}

func (s *MemoryStore) Get(actor string) (Correction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.m[actor]
	return c, ok
}

func (s *MemoryStore) Put(actor string, c Correction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[actor] = c
}

func (s *MemoryStore) Delete(actor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, actor)
}
