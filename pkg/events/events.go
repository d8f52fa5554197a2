// Package events defines event types and structures for execution lifecycle notifications.
package events

import (
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
)

type EventType string

// Topic carries every execution lifecycle event.
const Topic = "cadenza.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowTriggeredEvent  EventType = "workflow.triggered"
	ExecutionStartedEvent   EventType = "execution.started"
	StepCompletedEvent      EventType = "execution.step.completed"
	ExecutionWaitingEvent   EventType = "execution.waiting"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
)

type BaseEvent struct {
	ID                   string         `json:"id"`
	Type                 EventType      `json:"type"`
	Timestamp            time.Time      `json:"timestamp"`
	OrganizationID       string         `json:"organization_id"`
	WorkflowDefinitionID string         `json:"workflow_definition_id"`
	ExecutionID          string         `json:"execution_id,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

type WorkflowTriggered struct {
	BaseEvent

	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e WorkflowTriggered) GetType() EventType { return WorkflowTriggeredEvent }

type ExecutionStarted struct {
	BaseEvent
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type StepCompleted struct {
	BaseEvent

	StepSlug string          `json:"step_slug"`
	StepType models.StepType `json:"step_type"`
	Outcome  string          `json:"outcome"`
}

func (e StepCompleted) GetType() EventType { return StepCompletedEvent }

type ExecutionWaiting struct {
	BaseEvent

	StepSlug string `json:"step_slug"`
}

func (e ExecutionWaiting) GetType() EventType { return ExecutionWaitingEvent }

type ExecutionCompleted struct {
	BaseEvent
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	StepSlug string `json:"step_slug,omitempty"`
	Error    string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }
