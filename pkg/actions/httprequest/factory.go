package httprequest

import (
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) ID() string {
	return "httprequest"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) Component() *models.RegisteredComponent {
	return &models.RegisteredComponent{
		Type:        "httprequest",
		Name:        "HTTP Request",
		Description: "Performs an HTTP request to a URL with optional headers, body, and retry.",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"url": {
					Type:        "string",
					Description: "The URL to send the request to.",
				},
				"method": {
					Type:        "string",
					Description: "HTTP method to use.",
					Default:     "GET",
					Enum:        []any{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
				},
				"headers": {
					Type:        "object",
					Description: "HTTP headers to include in the request.",
				},
				"body": {
					Description: "Request body. Strings are sent as-is; objects are serialized as JSON.",
				},
				"timeout": {
					Type:        "number",
					Description: "Request timeout in milliseconds.",
				},
				"retry": {
					Type:        "object",
					Description: "Retry configuration for transport errors and 5xx responses.",
					Properties: map[string]*models.Property{
						"attempts": {Type: "integer", Description: "Total attempts including the first."},
						"delay":    {Type: "integer", Description: "Delay between attempts in milliseconds."},
					},
				},
			},
			Required: []string{"url"},
		},
	}
}
