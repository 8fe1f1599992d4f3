// Package session provides persistent key-value storage for session
// state: access tokens and the active-backend marker.
package session

import "sync"

// Persisted store keys shared by the backends and the coordinator.
const (
	// ActiveBackendKey records which backend issued the live session.
	ActiveBackendKey = "authService"
)

// Store is the persistence contract. Implementations must treat a
// missing key as (value="", ok=false), never as an error.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryStore is an in-memory Store, used in tests and as a fallback
// when no durable storage is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
