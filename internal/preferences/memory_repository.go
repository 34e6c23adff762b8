package preferences

import (
	"context"
	"sync"
)

// InMemoryRepository keeps preferences in memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{values: make(map[string][]byte)}
}

// Get implements Repository.
func (r *InMemoryRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set implements Repository.
func (r *InMemoryRepository) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements Repository.
func (r *InMemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.values, key)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
