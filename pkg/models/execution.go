package models

import "time"

// ExecutionStatus represents the run state of one workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusWaiting   ExecutionStatus = "waiting" // Suspended on an async boundary (approval, external call)
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Execution is a mutable run instance of a workflow definition. Workflow and
// step configuration are snapshotted at trigger time so in-flight runs are
// immune to definition edits. Variables holds the serialized variable bag,
// or a storage pointer object once the bag is externalized.
type Execution struct {
	ID                   string                     `json:"id"`
	WorkflowDefinitionID string                     `json:"workflow_definition_id"`
	RootDefinitionID     string                     `json:"root_definition_id,omitempty"`
	OrganizationID       string                     `json:"organization_id"`
	WorkflowConfig       WorkflowConfig             `json:"workflow_config"`
	StepsConfig          map[string]*StepDefinition `json:"steps_config"`
	Variables            string                     `json:"variables,omitempty"`
	Status               ExecutionStatus            `json:"status"`
	CurrentStepSlug      string                     `json:"current_step_slug,omitempty"`
	Error                string                     `json:"error,omitempty"`
	CreatedAt            time.Time                  `json:"created_at"`
	UpdatedAt            time.Time                  `json:"updated_at"`
}

// StepResult is the engine-visible outcome of one step execution. Outcome
// selects the next-step edge; Output lands in the cross-step steps map.
type StepResult struct {
	Output  any    `json:"output"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
	Waiting bool   `json:"waiting,omitempty"` // Step must suspend the execution until resumed
}

// ExecutionContext is the runtime view handed to actions: identifiers plus
// the fully resolved variable bag (workflow variables, steps map, loop
// context, secrets, system variables).
type ExecutionContext struct {
	ExecutionID          string
	WorkflowDefinitionID string
	OrganizationID       string
	StepSlug             string
	Variables            map[string]any
}
