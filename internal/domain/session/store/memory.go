package store

import (
	"context"
	"fmt"
	"sync"

	"clinic-server-go/internal/platform/storage"
)

type memoryStore struct {
	items map[string]Times
	mutex sync.RWMutex
}

// NewMemory builds an in-memory timestamp store, used in tests and
// single-process deployments.
func NewMemory() Store {
	return &memoryStore{
		items: make(map[string]Times),
	}
}

func key(clientID uint, group string) string {
	return fmt.Sprintf("%s:%d", group, clientID)
}

func (s *memoryStore) UpsertTimes(_ context.Context, clientID uint, group, loginAt, logoutAt string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	times := s.items[key(clientID, group)]
	if loginAt != "" {
		times.LastLoginAt = loginAt
	}
	if logoutAt != "" {
		times.LastLogoutAt = logoutAt
	}
	s.items[key(clientID, group)] = times
	return nil
}

func (s *memoryStore) ReadTimes(_ context.Context, clientID uint, group string) (Times, error) {
	s.mutex.RLock()
	times, ok := s.items[key(clientID, group)]
	s.mutex.RUnlock()

	if !ok || times.LastLogoutAt == "" {
		times.LastLogoutAt = storage.LogoutSentinel
	}
	return times, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}
