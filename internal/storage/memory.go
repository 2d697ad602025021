package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage is a map-backed StorageInterface used by tests and dry runs
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ StorageInterface = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Store(filename string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[filename] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Retrieve(filename string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if data, exists := m.data[filename]; exists {
		return append([]byte(nil), data...), nil
	}
	return nil, fmt.Errorf("file %s: %w", filename, ErrNotFound)
}

func (m *MemoryStorage) List(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var files []string
	for filename := range m.data {
		if strings.HasPrefix(filename, prefix) {
			files = append(files, filename)
		}
	}
	sort.Strings(files)
	return files, nil
}
