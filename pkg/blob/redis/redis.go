// Package redis provides a Redis-backed blob store for deployments where
// workers do not share a filesystem.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "cadenza:blob:"

type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewStore creates a store on top of an existing client. A zero ttl keeps
// blobs until deleted.
func NewStore(client *goredis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func NewStoreFromURL(url string, ttl time.Duration) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return NewStore(goredis.NewClient(opts), ttl), nil
}

func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	id := uuid.New().String()

	if err := s.client.Set(ctx, keyPrefix+id, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store blob %s: %w", id, err)
	}

	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, blob.ErrNotFound
		}

		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}

	return data, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", id, err)
	}

	return nil
}
