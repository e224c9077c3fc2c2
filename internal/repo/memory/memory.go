package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/endpointresolver/internal/repo"
)

// Store keeps values for the life of the process only.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (m *Store) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Store) Set(ctx context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	m.values[key] = cp
	m.mu.Unlock()
	return nil
}

var _ repo.Store = (*Store)(nil)
