package session

import "sync"

// Storage keys shared with the web client.
const (
	KeyHasSession      = "hasSession"
	KeyDashboardView   = "dashboardView"
	KeyJustLoggedIn    = "justLoggedIn"
	KeyPreventRedirect = "preventRedirect"
)

// Storage is a string key/value store. The controller uses one durable
// instance (survives restarts) and one ephemeral instance (scoped to a
// single terminal session).
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryStorage is an in-process Storage, used for tests and as a fallback
// when nothing can be persisted.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
