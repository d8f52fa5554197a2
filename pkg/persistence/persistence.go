// Package persistence provides the data storage abstraction for workflow
// definitions, executions and approval requests. The underlying document
// store is out of scope; implementations only need indexed lookups and
// whole-document writes.
package persistence

import (
	"context"

	"github.com/cadenzahq/cadenza/pkg/models"
)

type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	Save(ctx context.Context, workflow *models.WorkflowDefinition) error
	Delete(ctx context.Context, id string) error
}

type ExecutionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	Save(ctx context.Context, execution *models.Execution) error
	// UpdateVariables writes only the serialized variables and current step
	// of an execution. The engine assumes single-writer-per-execution; this
	// is not a concurrency guard, just a narrower write.
	UpdateVariables(ctx context.Context, executionID, serialized string) error
}

type ApprovalRepository interface {
	GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error)
	Save(ctx context.Context, approval *models.ApprovalRequest) error
	ListPending(ctx context.Context, organizationID string) ([]*models.ApprovalRequest, error)
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ApprovalRepository() ApprovalRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
