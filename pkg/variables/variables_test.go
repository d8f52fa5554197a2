package variables

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/cadenzahq/cadenza/pkg/blob/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_EmptyAndNonObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty string", ""},
		{"json array", `[1,2,3]`},
		{"json string", `"hello"`},
		{"json number", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars, err := Resolve(context.Background(), tt.raw, nil)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{}, vars)
		})
	}
}

func TestResolve_InvalidJSON(t *testing.T) {
	_, err := Resolve(context.Background(), "{not json", nil)
	require.Error(t, err)
}

func TestPersistResolve_InlineRoundTrip(t *testing.T) {
	store := memory.NewStore()
	vars := map[string]any{"customer": "acme", "count": float64(3)}

	serialized, err := Persist(context.Background(), vars, store, 0)
	require.NoError(t, err)
	assert.NotContains(t, serialized, StorageRefKey)

	resolved, err := Resolve(context.Background(), serialized, store)
	require.NoError(t, err)
	assert.Equal(t, vars, resolved)
}

func TestPersistResolve_ExternalizedRoundTrip(t *testing.T) {
	store := memory.NewStore()
	vars := map[string]any{"payload": strings.Repeat("x", 2048)}

	serialized, err := Persist(context.Background(), vars, store, 100)
	require.NoError(t, err)

	var pointer map[string]any
	require.NoError(t, json.Unmarshal([]byte(serialized), &pointer))
	require.Contains(t, pointer, StorageRefKey)

	resolved, err := Resolve(context.Background(), serialized, store)
	require.NoError(t, err)
	assert.Equal(t, vars, resolved)
}

func TestPersist_ThresholdBoundary(t *testing.T) {
	store := memory.NewStore()
	vars := map[string]any{"k": "v"}

	serialized, err := Persist(context.Background(), vars, store, DefaultSizeThreshold)
	require.NoError(t, err)
	assert.NotContains(t, serialized, StorageRefKey, "small payloads stay inline")
}

func TestResolve_MissingBlobIsHardError(t *testing.T) {
	store := memory.NewStore()

	_, err := Resolve(context.Background(), `{"_storageRef":"gone"}`, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage file not found")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestResolve_SingleLevelIndirectionOnly(t *testing.T) {
	store := memory.NewStore()

	// A blob whose content is itself a pointer must not be chased again.
	id, err := store.Put(context.Background(), []byte(`{"_storageRef":"other"}`))
	require.NoError(t, err)

	resolved, err := Resolve(context.Background(), `{"_storageRef":"`+id+`"}`, store)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{StorageRefKey: "other"}, resolved)
}
