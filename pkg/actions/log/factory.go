package logaction

import (
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) ID() string {
	return "log"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

func (f *ActionFactory) Component() *models.RegisteredComponent {
	return &models.RegisteredComponent{
		Type:        "log",
		Name:        "Log",
		Description: "Writes a message to the execution log.",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"message": {
					Description: "The message to log. Template expressions are resolved before execution.",
				},
				"level": {
					Type:        "string",
					Description: "Log level.",
					Default:     "info",
					Enum:        []any{"debug", "info", "warn", "error"},
				},
			},
			Required: []string{"message"},
		},
	}
}
