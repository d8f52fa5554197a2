package schedule

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrigger(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr string
	}{
		{
			name:   "valid standard expression",
			config: map[string]any{"id": "nightly", "cron": "0 2 * * *"},
		},
		{
			name:   "valid descriptor",
			config: map[string]any{"cron": "@hourly"},
		},
		{
			name:    "missing cron",
			config:  map[string]any{"id": "nightly"},
			wantErr: "cron expression is required",
		},
		{
			name:    "invalid cron",
			config:  map[string]any{"cron": "every tuesday"},
			wantErr: "invalid cron expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewTrigger(tt.config, slog.Default())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.True(t, trigger.Enabled)
		})
	}
}

func TestTriggerStart_DisabledIsNoop(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{"cron": "@hourly", "enabled": false}, slog.Default())
	require.NoError(t, err)

	err = trigger.Start(context.Background(), func(context.Context, map[string]any) error {
		t.Fatal("disabled trigger must not schedule")

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, trigger.Stop(context.Background()))
}

func TestFactory(t *testing.T) {
	factory := NewTriggerFactory()
	assert.Equal(t, "schedule", factory.ID())

	_, err := factory.Create(nil, slog.Default())
	assert.ErrorIs(t, err, ErrConfigNil)

	trigger, err := factory.Create(map[string]any{"cron": "*/10 * * * *"}, slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, trigger)
}
