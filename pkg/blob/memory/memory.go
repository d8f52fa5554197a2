// Package memory provides an in-memory blob store for single-process
// deployments and tests.
package memory

import (
	"context"
	"sync"

	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/google/uuid"
)

type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewStore() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	id := uuid.New().String()

	copied := make([]byte, len(data))
	copy(copied, data)

	s.mu.Lock()
	s.blobs[id] = copied
	s.mu.Unlock()

	return id, nil
}

func (s *Store) Get(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, blob.ErrNotFound
	}

	copied := make([]byte, len(data))
	copy(copied, data)

	return copied, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()

	return nil
}
