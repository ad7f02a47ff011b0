package position

import (
	"fmt"
	"sort"
	"sync"

	"FactionVault/internal/model"
)

// Store is keyed storage of positions by owner with create-once semantics.
type Store interface {
	Get(owner string) (*model.UserPosition, error)
	Create(pos *model.UserPosition) error
	Put(pos *model.UserPosition) error
	All() []*model.UserPosition
}

// MemoryStore keeps positions in a map. Returned values are copies.
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]*model.UserPosition
}

// NewMemoryStore creates a store, optionally seeded from a snapshot.
func NewMemoryStore(seed []*model.UserPosition) *MemoryStore {
	s := &MemoryStore{positions: make(map[string]*model.UserPosition, len(seed))}
	for _, p := range seed {
		s.positions[p.Owner] = p.Clone()
	}
	return s
}

func (s *MemoryStore) Get(owner string) (*model.UserPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[owner]
	if !ok {
		return nil, fmt.Errorf("%s: %w", owner, model.ErrNotRegistered)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Create(pos *model.UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[pos.Owner]; ok {
		return fmt.Errorf("%s: %w", pos.Owner, model.ErrAlreadyRegistered)
	}
	s.positions[pos.Owner] = pos.Clone()
	return nil
}

// Put replaces an existing position.
func (s *MemoryStore) Put(pos *model.UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[pos.Owner]; !ok {
		return fmt.Errorf("%s: %w", pos.Owner, model.ErrNotRegistered)
	}
	s.positions[pos.Owner] = pos.Clone()
	return nil
}

// All returns copies of every position sorted by owner.
func (s *MemoryStore) All() []*model.UserPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.UserPosition, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}
