package schedule

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/protocol"
)

var ErrConfigNil = errors.New("config cannot be nil")

type TriggerFactory struct{}

func NewTriggerFactory() *TriggerFactory {
	return &TriggerFactory{}
}

func (f *TriggerFactory) ID() string {
	return "schedule"
}

func (f *TriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule trigger: %w", err)
	}

	return trigger, nil
}
