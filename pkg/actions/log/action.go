// Package logaction implements the log action, which writes a rendered
// message to the structured execution log.
package logaction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
)

type Action struct {
	Message string
	Level   string
}

func NewAction(config map[string]any) *Action {
	message := fmt.Sprintf("%v", config["message"])
	if config["message"] == nil {
		message = ""
	}

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &Action{Message: message, Level: level}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "log_action")

	switch a.Level {
	case "debug":
		logger.DebugContext(ctx, a.Message)
	case "warn":
		logger.WarnContext(ctx, a.Message)
	case "error":
		logger.ErrorContext(ctx, a.Message)
	default:
		logger.InfoContext(ctx, a.Message)
	}

	return &models.StepResult{
		Output: map[string]any{
			"message":   a.Message,
			"logged_at": time.Now().UTC().Format(time.RFC3339),
		},
		Outcome: models.OutcomeSuccess,
	}, nil
}
