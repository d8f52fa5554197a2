package protocol

import (
	"context"
	"log/slog"
)

// TriggerCallback is invoked with trigger data each time a trigger fires.
type TriggerCallback func(ctx context.Context, triggerData map[string]any) error

type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
}

type TriggerFactory interface {
	ID() string
	Create(config map[string]any, logger *slog.Logger) (Trigger, error)
}
