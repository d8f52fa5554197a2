package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/variables"
)

// BuildStepsMap folds the just-finished step's result into the persisted
// per-step output map. The fresh result always wins over any previously
// recorded entry for the same slug, so a step revisited inside a loop
// overrides its own earlier output. Prior entries for other slugs are
// carried over from the persisted variables.
func (e *Executor) BuildStepsMap(ctx context.Context, executionID string, step *models.StepDefinition, result *models.StepResult) (map[string]any, error) {
	stepsMap := map[string]any{
		step.StepSlug: stepEntry(step, result),
	}

	execution, err := e.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	vars, err := variables.Resolve(ctx, execution.Variables, e.blobs)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, err
		}

		// Corrupt or legacy variable payloads degrade to an empty prior
		// map rather than wedging the execution.
		e.logger.WarnContext(ctx, "Discarding unreadable execution variables",
			"execution_id", executionID, "error", err)

		return stepsMap, nil
	}

	prior, ok := vars["steps"].(map[string]any)
	if !ok {
		return stepsMap, nil
	}

	for slug, entry := range prior {
		if slug == step.StepSlug {
			continue
		}

		stepsMap[slug] = entry
	}

	return stepsMap, nil
}

func stepEntry(step *models.StepDefinition, result *models.StepResult) map[string]any {
	entry := map[string]any{
		"stepType": string(step.StepType),
		"name":     step.Name,
		"output":   result.Output,
	}

	if result.Error != "" {
		entry["error"] = result.Error
	}

	return entry
}
