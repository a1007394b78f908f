// Package session holds the identity the client believes is logged in.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"pocketchef/internal/logger"
	"pocketchef/internal/models"
)

const storageKey = "currentUser"

var ErrAuthRequired = errors.New("authentication required")

type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type State struct {
	mu       sync.RWMutex
	storage  Storage
	identity *models.Identity
}

func New(storage Storage) *State {
	return &State{storage: storage}
}

// Restore loads the persisted identity. Nothing stored is a valid anonymous
// state; a corrupt entry is deleted and also restores as anonymous.
func (s *State) Restore() error {
	raw, found, err := s.storage.Get(storageKey)
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	var identity *models.Identity
	if found {
		var stored models.Identity
		if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored.Username == "" {
			logger.Warn("Discarding corrupt stored session", "error", err)
			if err := s.storage.Delete(storageKey); err != nil {
				return fmt.Errorf("failed to discard corrupt session: %w", err)
			}
		} else {
			identity = &stored
		}
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	return nil
}

func (s *State) Establish(identity models.Identity) error {
	if identity.Username == "" {
		return fmt.Errorf("cannot establish a session without a username")
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.storage.Set(storageKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	s.identity = &identity
	s.mu.Unlock()

	logger.Info("Session established", "username", identity.Username, "user_id", identity.ID)
	return nil
}

func (s *State) Clear() error {
	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()

	if err := s.storage.Delete(storageKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Current returns a copy of the identity, if any.
func (s *State) Current() (*models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil, false
	}
	identity := *s.identity
	return &identity, true
}

// Require is the gate every capability that needs a login goes through.
func (s *State) Require() (*models.Identity, error) {
	identity, ok := s.Current()
	if !ok {
		return nil, ErrAuthRequired
	}
	return identity, nil
}

func (s *State) Username() string {
	if identity, ok := s.Current(); ok {
		return identity.Username
	}
	return ""
}
