// Package registry holds the catalog of action and trigger factories plus
// the advisory output schema tables. The registry is an explicit value
// constructed at startup and passed by injection, never module-global
// state.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger           *slog.Logger
	actionFactories  map[string]protocol.ActionFactory
	triggerFactories map[string]protocol.TriggerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:           logger,
		actionFactories:  make(map[string]protocol.ActionFactory),
		triggerFactories: make(map[string]protocol.TriggerFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

func (r *Registry) RegisterTrigger(factory protocol.TriggerFactory) {
	r.triggerFactories[factory.ID()] = factory
}

// CreateAction validates config against the factory's parameter schema and
// builds the action. A schema violation is a structural error: it fails
// fast here, before Execute can cause side effects.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	if component := factory.Component(); component != nil && component.Schema != nil {
		if err := validateParameters(component.Schema, config); err != nil {
			return nil, fmt.Errorf("invalid parameters for action '%s': %w", actionType, err)
		}
	}

	return factory.Create(config)
}

func (r *Registry) CreateTrigger(triggerID string, config map[string]any) (protocol.Trigger, error) {
	factory, ok := r.triggerFactories[triggerID]
	if !ok {
		return nil, fmt.Errorf("trigger ID '%s' not registered", triggerID)
	}

	return factory.Create(config, r.logger)
}

// AvailableActions returns the self-descriptions of every registered
// action factory.
func (r *Registry) AvailableActions() []*models.RegisteredComponent {
	components := make([]*models.RegisteredComponent, 0, len(r.actionFactories))

	for _, factory := range r.actionFactories {
		if component := factory.Component(); component != nil {
			components = append(components, component)
		}
	}

	return components
}

func validateParameters(schema *models.JSONSchema, config map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		first := result.Errors()[0]

		return fmt.Errorf("parameter %s: %s", first.Field(), first.Description())
	}

	return nil
}
