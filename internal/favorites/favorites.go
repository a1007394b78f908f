// Package favorites keeps the installation-local set of bookmarked recipe ids.
package favorites

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"pocketchef/internal/logger"
)

const storageKey = "favorites"

// Storage is the durable key-value store the set is written through to.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type Store struct {
	mu      sync.RWMutex
	storage Storage
	ids     map[int]struct{}
}

func New(storage Storage) *Store {
	return &Store{
		storage: storage,
		ids:     make(map[int]struct{}),
	}
}

// Load replaces the in-memory set with what is persisted. Missing or corrupt
// data loads as an empty set.
func (s *Store) Load() error {
	raw, found, err := s.storage.Get(storageKey)
	if err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}

	ids := make(map[int]struct{})
	if found {
		var list []int
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			logger.Warn("Discarding corrupt favorites", "error", err)
		} else {
			for _, id := range list {
				ids[id] = struct{}{}
			}
		}
	}

	s.mu.Lock()
	s.ids = ids
	s.mu.Unlock()
	return nil
}

// Toggle flips membership of id and persists the whole set before returning.
// It reports the new membership. If the write fails the flip is undone.
func (s *Store) Toggle(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, was := s.ids[id]
	if was {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}

	if err := s.save(); err != nil {
		if was {
			s.ids[id] = struct{}{}
		} else {
			delete(s.ids, id)
		}
		return was, err
	}

	return !was, nil
}

func (s *Store) IsFavorite(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the members in ascending order.
func (s *Store) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted()
}

// Contains is IsFavorite in the shape the recipe filter expects.
func (s *Store) Contains(id int) bool {
	return s.IsFavorite(id)
}

func (s *Store) sorted() []int {
	list := make([]int, 0, len(s.ids))
	for id := range s.ids {
		list = append(list, id)
	}
	sort.Ints(list)
	return list
}

func (s *Store) save() error {
	data, err := json.Marshal(s.sorted())
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	if err := s.storage.Set(storageKey, string(data)); err != nil {
		return fmt.Errorf("failed to save favorites: %w", err)
	}
	return nil
}
