package registry

import "github.com/cadenzahq/cadenza/pkg/models"

// Hand-curated output shapes used by the reference validator for advisory
// structural checks. Absence of an entry is not an error: unknown step or
// action types are simply unchecked.

var stepTypeOutputSchemas = map[models.StepType]*models.OutputSchema{
	models.StepTypeTrigger: {
		Description: "Trigger payload as received, keyed by the trigger's input fields",
	},
	models.StepTypeStart: {
		Description: "Initial input payload of the execution",
	},
	models.StepTypeCondition: {
		Fields: map[string]*models.FieldSchema{
			"result":     {Type: "boolean", Description: "Evaluated condition outcome"},
			"expression": {Type: "string", Description: "Rendered expression that was evaluated"},
		},
		Description: "Condition evaluation result",
	},
	models.StepTypeLoop: {
		Fields: map[string]*models.FieldSchema{
			"item":      {Type: "any", Nullable: true, Description: "Current iteration item"},
			"index":     {Type: "number", Description: "Zero-based iteration index"},
			"completed": {Type: "boolean", Description: "True once the loop is exhausted"},
		},
		Description: "Loop iteration state",
	},
	models.StepTypeLLM: {
		Fields: map[string]*models.FieldSchema{
			"text":  {Type: "string", Description: "Generated completion text"},
			"model": {Type: "string", Nullable: true, Description: "Model identifier used"},
		},
		Description: "LLM generation result",
	},
}

var actionOutputSchemas = map[string]*models.OutputSchema{
	"httprequest": {
		Fields: map[string]*models.FieldSchema{
			"status_code": {Type: "number", Description: "HTTP response status"},
			"body":        {Type: "object", Nullable: true, Description: "Parsed response body"},
			"headers":     {Type: "object", Description: "Response headers"},
		},
		Description: "HTTP request result",
	},
	"transform": {
		Fields: map[string]*models.FieldSchema{
			"data": {Type: "any", Nullable: true, Description: "Rendered transform output"},
		},
		Description: "Transform result",
	},
	"log": {
		Fields: map[string]*models.FieldSchema{
			"message":   {Type: "string", Description: "Logged message"},
			"logged_at": {Type: "string", Description: "RFC3339 timestamp"},
		},
		Description: "Log action result",
	},
	"conversation/create": {
		Fields: map[string]*models.FieldSchema{
			"conversation": {
				Type: "object",
				Fields: map[string]*models.FieldSchema{
					"id":              {Type: "string"},
					"organization_id": {Type: "string"},
					"subject":         {Type: "string"},
					"participants":    {Type: "string", IsArray: true},
					"created_at":      {Type: "string"},
				},
				Description: "Created conversation entity",
			},
			"approval": {
				Type:     "object",
				Nullable: true,
				Fields: map[string]*models.FieldSchema{
					"id":     {Type: "string"},
					"status": {Type: "string"},
				},
				Description: "Pending approval record when a draft message was supplied",
			},
		},
		Description: "Conversation create result",
	},
	"conversation/list": {
		Fields: map[string]*models.FieldSchema{
			"data": {
				Type:        "object",
				IsArray:     true,
				Description: "Matching conversations",
			},
		},
		Description: "Conversation list result",
	},
	"integration": {
		Fields: map[string]*models.FieldSchema{
			"result":   {Type: "any", Nullable: true, Description: "Connector return value"},
			"logs":     {Type: "string", IsArray: true, Description: "Connector log lines"},
			"duration": {Type: "number", Description: "Sandbox execution time in milliseconds"},
		},
		Description: "Integration connector result",
	},
}

// StepTypeOutputSchema returns the declared output shape for a step type,
// or nil when the type is unknown.
func StepTypeOutputSchema(stepType models.StepType) *models.OutputSchema {
	return stepTypeOutputSchemas[stepType]
}

// ActionOutputSchema returns the declared output shape for an action type
// and operation. Operation-specific entries take precedence over the
// action-wide entry.
func ActionOutputSchema(actionType, operation string) *models.OutputSchema {
	if operation != "" {
		if schema, ok := actionOutputSchemas[actionType+"/"+operation]; ok {
			return schema
		}
	}

	return actionOutputSchemas[actionType]
}
