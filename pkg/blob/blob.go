// Package blob provides content storage abstraction for externalized
// variable payloads and connector file transfers.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound indicates no blob exists for the given identifier.
var ErrNotFound = errors.New("blob not found")

type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}
