// Package web provides the REST API for workflow management, validation,
// execution, and approval resolution.
package web

import "github.com/cadenzahq/cadenza/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow
// definition.
type CreateWorkflowRequest struct {
	OrganizationID string                   `json:"organization_id" validate:"required"`
	Name           string                   `json:"name"            validate:"required,min=3"`
	Description    string                   `json:"description"`
	WorkflowType   string                   `json:"workflow_type"   validate:"required"`
	Config         models.WorkflowConfig    `json:"config"`
	Steps          []*models.StepDefinition `json:"steps"           validate:"dive"`
}

// UpdateWorkflowRequest supports partial updates of a draft definition.
type UpdateWorkflowRequest struct {
	Name        *string                  `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string                  `json:"description,omitempty"`
	Config      *models.WorkflowConfig   `json:"config,omitempty"`
	Steps       []*models.StepDefinition `json:"steps,omitempty"       validate:"omitempty,dive"`
}

// StartExecutionRequest is the request body for triggering an execution.
type StartExecutionRequest struct {
	Input map[string]any `json:"input"`
}

// ResolveApprovalRequest resolves a pending approval request. Content
// optionally replaces the draft before it is released.
type ResolveApprovalRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Content  string `json:"content,omitempty"`
}
