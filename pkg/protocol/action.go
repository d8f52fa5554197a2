// Package protocol defines the interfaces between the engine and the
// pluggable components it dispatches into.
package protocol

import (
	"context"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// Action executes one unit of step logic. Implementations receive the
// resolved variable bag through the execution context and must not mutate
// it.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error)
}

// ActionFactory builds actions of one type from rendered step parameters.
// Component describes the factory and carries the parameter schema the
// registry validates against before Create is called.
type ActionFactory interface {
	ID() string
	Component() *models.RegisteredComponent
	Create(config map[string]any) (Action, error)
}
