package integration

import (
	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/sandbox"
)

type ActionFactory struct {
	runner *sandbox.Sandbox
	blobs  blob.Store
}

func NewActionFactory(runner *sandbox.Sandbox, blobs blob.Store) *ActionFactory {
	return &ActionFactory{runner: runner, blobs: blobs}
}

func (f *ActionFactory) ID() string {
	return "integration"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.runner, f.blobs)
}

func (f *ActionFactory) Component() *models.RegisteredComponent {
	return &models.RegisteredComponent{
		Type:        "integration",
		Name:        "Integration",
		Description: "Runs connector JavaScript in the sandbox with synchronous HTTP and file APIs.",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"code": {
					Type:        "string",
					Format:      "code",
					Description: "Connector source. Declares a connector object with operation methods, or a bare function named after the operation.",
				},
				"operation": {
					Type:        "string",
					Description: "The connector method to invoke.",
				},
				"params": {
					Type:        "object",
					Description: "Operation parameters passed to the connector as ctx.params.",
				},
				"allowedHosts": {
					Type:        "array",
					Description: "Hosts the connector may reach. Empty disables the allowlist.",
					Items:       &models.Property{Type: "string"},
				},
				"timeout": {
					Type:        "number",
					Description: "Wall-clock budget in milliseconds for the whole invocation.",
				},
			},
			Required: []string{"code", "operation"},
		},
	}
}
