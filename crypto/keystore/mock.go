package keystore

import (
	"sort"
	"sync"
)

func init() {
	RegisterKeystore("memory", func(Config) (Keystore, error) {
		return NewMockKeystore(), nil
	})
}

// MockKeystore is an in-memory implementation of Keystore for testing.
// This is exported so it can be used by tests in other packages.
type MockKeystore struct {
	mu      sync.Mutex
	secrets map[string][]byte
	// Err, when set, is returned by every operation.
	Err error
}

// NewMockKeystore creates a new, empty in-memory keystore.
func NewMockKeystore() *MockKeystore {
	return &MockKeystore{secrets: make(map[string][]byte)}
}

func (m *MockKeystore) Get(id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	secret, ok := m.secrets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), secret...), nil
}

func (m *MockKeystore) Set(id string, secret []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.secrets[id] = append([]byte(nil), secret...)
	return nil
}

func (m *MockKeystore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.secrets[id]; !ok {
		return ErrNotFound
	}
	delete(m.secrets, id)
	return nil
}

func (m *MockKeystore) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	ids := make([]string, 0, len(m.secrets))
	for id := range m.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
