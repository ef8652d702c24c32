package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps links in process memory. Data is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[string]Link
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[string]Link)}
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[id]
	return ok, nil
}

func (s *MemoryStore) Insert(ctx context.Context, link *Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link.ID]; ok {
		return ErrDuplicateKey
	}
	s.links[link.ID] = *link
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, id string) (*Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[id]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (s *MemoryStore) IncrementClicks(ctx context.Context, id string, expectedClicks int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok || link.Clicks != expectedClicks {
		return nil
	}
	link.Clicks = expectedClicks + 1
	s.links[id] = link
	return nil
}

func (s *MemoryStore) Close() error { return nil }
