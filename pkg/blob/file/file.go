// Package file provides a filesystem-backed blob store.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/google/uuid"
)

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	if err := os.MkdirAll(cleanRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", cleanRoot, err)
	}

	return &Store{root: cleanRoot}, nil
}

func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	id := uuid.New().String()

	if err := os.WriteFile(s.path(id), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", id, err)
	}

	return id, nil
}

func (s *Store) Get(_ context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, blob.ErrNotFound
		}

		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}

	return data, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", id, err)
	}

	return nil
}

func (s *Store) path(id string) string {
	// IDs are always UUIDs we generated; Base strips anything path-like
	// from identifiers that arrive via storage pointers.
	return filepath.Join(s.root, filepath.Base(id)+".blob")
}
