package kv

import (
	"context"
	"sync"
)

type memSlot struct {
	value    []byte
	revision int64
	deleted  bool
}

// MemStore is an in-memory Store for tests and throwaway sessions.
type MemStore struct {
	mu    sync.RWMutex
	slots map[string]memSlot
}

func NewMemStore() *MemStore {
	return &MemStore{slots: make(map[string]memSlot)}
}

func (s *MemStore) Get(_ context.Context, key string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[key]
	if !ok || slot.deleted {
		return Item{}, ErrNotFound
	}
	// Copy so callers cannot mutate stored bytes.
	return Item{Value: append([]byte(nil), slot.value...), Revision: slot.revision}, nil
}

func (s *MemStore) Put(_ context.Context, key string, value []byte, revision int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.slots[key]
	switch {
	case revision == 0 && slot.revision != 0 && !slot.deleted:
		return 0, ErrConflict
	case revision != 0 && (slot.deleted || slot.revision != revision):
		return 0, ErrConflict
	}
	next := slot.revision + 1
	s.slots[key] = memSlot{value: append([]byte(nil), value...), revision: next}
	return next, nil
}

// Delete leaves a tombstone carrying a raised revision behind.
func (s *MemStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		slot, ok := s.slots[k]
		if !ok || slot.deleted {
			continue
		}
		s.slots[k] = memSlot{revision: slot.revision + 1, deleted: true}
	}
	return nil
}

func (s *MemStore) Close() error {
	return nil
}
