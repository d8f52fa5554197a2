// Package variables serializes and resolves the per-execution variable
// bag, transparently externalizing oversized payloads to blob storage
// behind a storage pointer object.
package variables

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cadenzahq/cadenza/pkg/blob"
)

// StorageRefKey marks a serialized variables string as a pointer to an
// externalized blob: the whole string is `{"_storageRef": "<blob-id>"}`.
const StorageRefKey = "_storageRef"

// DefaultSizeThreshold is the serialized size past which variables are
// externalized to blob storage.
const DefaultSizeThreshold = 64 * 1024

// storagePointer is the inline stand-in for an externalized variable blob.
type storagePointer struct {
	StorageRef string `json:"_storageRef"`
}

// Resolve parses serialized execution variables into a map. Empty input
// resolves to an empty map. A storage pointer is followed through exactly
// one level of indirection; a missing blob is a hard, named error and is
// never treated as empty variables. Non-object JSON resolves to an empty
// map: variables must be dictionaries.
func Resolve(ctx context.Context, raw string, blobs blob.Store) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse execution variables: %w", err)
	}

	object, ok := parsed.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}

	ref, ok := object[StorageRefKey].(string)
	if !ok {
		return object, nil
	}

	if blobs == nil {
		return nil, fmt.Errorf("storage file not found: %s (no blob store configured)", ref)
	}

	data, err := blobs.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("storage file not found: %s: %w", ref, err)
	}

	var resolved map[string]any
	if err := json.Unmarshal(data, &resolved); err != nil {
		return nil, fmt.Errorf("failed to parse externalized variables %s: %w", ref, err)
	}

	return resolved, nil
}

// Persist serializes the variable bag, externalizing it to blob storage
// once the payload exceeds threshold bytes (DefaultSizeThreshold when
// threshold is 0). The returned string is what gets stored inline on the
// execution record.
func Persist(ctx context.Context, vars map[string]any, blobs blob.Store, threshold int) (string, error) {
	if threshold <= 0 {
		threshold = DefaultSizeThreshold
	}

	serialized, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("failed to serialize execution variables: %w", err)
	}

	if len(serialized) <= threshold || blobs == nil {
		return string(serialized), nil
	}

	id, err := blobs.Put(ctx, serialized)
	if err != nil {
		return "", fmt.Errorf("failed to externalize execution variables: %w", err)
	}

	pointer, err := json.Marshal(storagePointer{StorageRef: id})
	if err != nil {
		return "", fmt.Errorf("failed to serialize storage pointer: %w", err)
	}

	return string(pointer), nil
}
