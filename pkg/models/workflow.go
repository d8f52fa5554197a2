// Package models defines the core domain models for template-driven workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft       WorkflowStatus = "draft"       // Editable, not executable
	WorkflowStatusPublished   WorkflowStatus = "published"   // Current active, executable
	WorkflowStatusUnpublished WorkflowStatus = "unpublished" // Historical, not executable
)

// WorkflowConfig carries execution-level settings and the initial variable
// defaults a run starts from.
type WorkflowConfig struct {
	Timeout     int            `json:"timeout,omitempty"` // Milliseconds; 0 means engine default
	RetryPolicy string         `json:"retry_policy,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// WorkflowDefinition is the immutable workflow template. Definitions are
// versioned per organization and read-only at execution time.
type WorkflowDefinition struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id" validate:"required"`
	Name           string            `json:"name"            validate:"required,min=3"`
	Description    string            `json:"description"`
	Version        int               `json:"version"`
	WorkflowType   string            `json:"workflow_type"   validate:"required"`
	Status         WorkflowStatus    `json:"status"`
	Config         WorkflowConfig    `json:"config"`
	Steps          []*StepDefinition `json:"steps"           validate:"dive"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// StepBySlug returns the step with the given slug, or nil.
func (w *WorkflowDefinition) StepBySlug(slug string) *StepDefinition {
	for _, step := range w.Steps {
		if step.StepSlug == slug {
			return step
		}
	}

	return nil
}

// EntrySlug returns the slug of the step a new execution starts at: the
// first trigger or start step, falling back to the first step in authoring
// order.
func (w *WorkflowDefinition) EntrySlug() string {
	for _, step := range w.Steps {
		if step.StepType == StepTypeTrigger || step.StepType == StepTypeStart {
			return step.StepSlug
		}
	}

	if len(w.Steps) > 0 {
		return w.Steps[0].StepSlug
	}

	return ""
}
