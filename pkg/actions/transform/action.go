// Package transform implements the transform action: it passes its
// rendered "data" parameter through as step output, which makes it the
// workhorse for reshaping upstream step results with template
// expressions.
package transform

import (
	"context"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/models"
)

type Action struct {
	Data any
}

func NewAction(config map[string]any) (*Action, error) {
	return &Action{Data: config["data"]}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger.With("module", "transform_action").InfoContext(ctx, "Executing transform")

	return &models.StepResult{
		Output:  map[string]any{"data": a.Data},
		Outcome: models.OutcomeSuccess,
	}, nil
}
