package registry

import (
	"log/slog"
	"testing"

	"github.com/cadenzahq/cadenza/pkg/actions/httprequest"
	"github.com/cadenzahq/cadenza/pkg/actions/transform"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/triggers/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(transform.NewActionFactory())
	reg.RegisterTrigger(schedule.NewTriggerFactory())

	return reg
}

func TestCreateAction_UnknownType(t *testing.T) {
	reg := testRegistry()

	_, err := reg.CreateAction("teleport", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action type 'teleport' not registered")
}

func TestCreateAction_ValidParameters(t *testing.T) {
	reg := testRegistry()

	action, err := reg.CreateAction("httprequest", map[string]any{
		"url":    "https://api.example.com/items",
		"method": "POST",
		"body":   map[string]any{"name": "widget"},
	})
	require.NoError(t, err)
	require.NotNil(t, action)
}

func TestCreateAction_SchemaViolations(t *testing.T) {
	reg := testRegistry()

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing required url", map[string]any{"method": "GET"}},
		{"url wrong type", map[string]any{"url": float64(42)}},
		{"method outside enum", map[string]any{"url": "https://api.example.com", "method": "YEET"}},
		{"timeout wrong type", map[string]any{"url": "https://api.example.com", "timeout": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.CreateAction("httprequest", tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid parameters for action 'httprequest'")
		})
	}
}

func TestCreateAction_SchemalessConfigPassesThrough(t *testing.T) {
	reg := testRegistry()

	// transform declares "data" with no type constraint; any shape is fine.
	for _, data := range []any{"text", float64(7), []any{"a"}, map[string]any{"k": "v"}} {
		action, err := reg.CreateAction("transform", map[string]any{"data": data})
		require.NoError(t, err)
		require.NotNil(t, action)
	}
}

func TestAvailableActions(t *testing.T) {
	reg := testRegistry()

	components := reg.AvailableActions()
	require.Len(t, components, 2)

	types := make(map[string]bool)
	for _, component := range components {
		types[component.Type] = true
		assert.NotEmpty(t, component.Name)
	}

	assert.True(t, types["httprequest"])
	assert.True(t, types["transform"])
}

func TestCreateTrigger(t *testing.T) {
	reg := testRegistry()

	trigger, err := reg.CreateTrigger("schedule", map[string]any{"cron": "*/5 * * * *"})
	require.NoError(t, err)
	require.NotNil(t, trigger)

	_, err = reg.CreateTrigger("heartbeat", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger ID 'heartbeat' not registered")
}

func TestOutputSchemaLookup(t *testing.T) {
	assert.NotNil(t, StepTypeOutputSchema(models.StepTypeLoop))
	assert.Nil(t, StepTypeOutputSchema(models.StepType("teleport")))

	// Operation-specific entries shadow the action-wide entry.
	listSchema := ActionOutputSchema("conversation", "list")
	require.NotNil(t, listSchema)
	assert.Contains(t, listSchema.Fields, "data")

	assert.NotNil(t, ActionOutputSchema("httprequest", ""))
	assert.Nil(t, ActionOutputSchema("teleport", "anything"))
}
