package transform

import (
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) ID() string {
	return "transform"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) Component() *models.RegisteredComponent {
	return &models.RegisteredComponent{
		Type:        "transform",
		Name:        "Transform",
		Description: "Reshapes data with template expressions and exposes the result to later steps.",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"data": {
					Description: "The value to expose as this step's output. Template expressions are resolved before execution.",
				},
			},
			Required: []string{"data"},
		},
	}
}
