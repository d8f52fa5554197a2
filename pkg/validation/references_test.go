package validation

import (
	"testing"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(slug string, stepType models.StepType, config map[string]any, next map[string]string) *models.StepDefinition {
	return &models.StepDefinition{
		StepSlug:  slug,
		Name:      slug,
		StepType:  stepType,
		Config:    config,
		NextSteps: next,
	}
}

func httpStep(slug string, config map[string]any, next map[string]string) *models.StepDefinition {
	merged := map[string]any{"type": "httprequest", "parameters": config}

	return step(slug, models.StepTypeAction, merged, next)
}

func TestValidateReferences_ValidGraph(t *testing.T) {
	steps := []*models.StepDefinition{
		step("start", models.StepTypeTrigger, nil, map[string]string{"success": "fetch"}),
		httpStep("fetch", map[string]any{"url": "https://api.example.com/{{input.id}}"}, map[string]string{"success": "notify"}),
		httpStep("notify", map[string]any{
			"url":  "https://hooks.example.com",
			"body": "status was {{steps.fetch.output.status_code}}",
		}, map[string]string{"success": "end"}),
	}

	result := ValidateReferences(steps)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateReferences_NonExistentStep(t *testing.T) {
	steps := []*models.StepDefinition{
		step("start", models.StepTypeTrigger, nil, map[string]string{"success": "use"}),
		httpStep("use", map[string]any{"url": "{{steps.ghost.output.body}}"}, nil),
	}

	result := ValidateReferences(steps)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "use", result.Errors[0].StepSlug)
	assert.Contains(t, result.Errors[0].Message, `non-existent step "ghost"`)
}

func TestValidateReferences_ForwardReference(t *testing.T) {
	steps := []*models.StepDefinition{
		step("start", models.StepTypeTrigger, nil, map[string]string{"success": "early"}),
		httpStep("early", map[string]any{"url": "{{steps.late.output.body}}"}, map[string]string{"success": "late"}),
		httpStep("late", map[string]any{"url": "https://api.example.com"}, nil),
	}

	result := ValidateReferences(steps)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "executes at the same time or later")
}

func TestValidateReferences_SelfReference(t *testing.T) {
	steps := []*models.StepDefinition{
		httpStep("solo", map[string]any{"url": "{{steps.solo.output.body}}"}, nil),
	}

	result := ValidateReferences(steps)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
}

func TestValidateReferences_EdgeTargetMissing(t *testing.T) {
	steps := []*models.StepDefinition{
		step("start", models.StepTypeTrigger, nil, map[string]string{"success": "nowhere"}),
	}

	result := ValidateReferences(steps)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, `targets non-existent step "nowhere"`)
}

func TestValidateReferences_SentinelEdgesAllowed(t *testing.T) {
	for _, target := range []string{"end", "noop", "terminate", "complete", ""} {
		steps := []*models.StepDefinition{
			step("start", models.StepTypeTrigger, nil, map[string]string{"success": target}),
		}

		result := ValidateReferences(steps)
		assert.True(t, result.Valid, "target %q should be a sentinel", target)
	}
}

func TestValidateReferences_ArrayFieldAccessWarns(t *testing.T) {
	steps := []*models.StepDefinition{
		step("start", models.StepTypeTrigger, nil, map[string]string{"success": "list"}),
		step("list", models.StepTypeAction, map[string]any{
			"type":       "conversation",
			"parameters": map[string]any{"operation": "list"},
		}, map[string]string{"success": "use"}),
		httpStep("use", map[string]any{
			// data is declared as an array; named field access needs an index.
			"url": "https://api.example.com/{{steps.list.output.data.id}}",
		}, nil),
	}

	result := ValidateReferences(steps)
	assert.True(t, result.Valid, "array misuse is advisory only")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "declared as an array")
}

func TestValidateReferences_IndexedArrayAccessDoesNotWarn(t *testing.T) {
	steps := []*models.StepDefinition{
		step("start", models.StepTypeTrigger, nil, map[string]string{"success": "list"}),
		step("list", models.StepTypeAction, map[string]any{
			"type":       "conversation",
			"parameters": map[string]any{"operation": "list"},
		}, map[string]string{"success": "use"}),
		httpStep("use", map[string]any{
			"url": "https://api.example.com/{{steps.list.output.data.0.id}}",
		}, nil),
	}

	result := ValidateReferences(steps)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestValidateReferences_UnknownFieldIsSilent(t *testing.T) {
	steps := []*models.StepDefinition{
		step("start", models.StepTypeTrigger, nil, map[string]string{"success": "fetch"}),
		httpStep("fetch", map[string]any{"url": "https://api.example.com"}, map[string]string{"success": "use"}),
		httpStep("use", map[string]any{"url": "{{steps.fetch.output.undeclared.deep}}"}, nil),
	}

	result := ValidateReferences(steps)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestValidateReferences_ComplexExpressionChecksStepExistenceOnly(t *testing.T) {
	steps := []*models.StepDefinition{
		step("start", models.StepTypeTrigger, nil, map[string]string{"success": "count"}),
		httpStep("count", map[string]any{"url": "https://api.example.com"}, map[string]string{"success": "branch"}),
		step("branch", models.StepTypeCondition, map[string]any{
			"expression": "{{steps.count.output.status_code == 200 ? 1 : 0}}",
		}, nil),
	}

	result := ValidateReferences(steps)
	assert.True(t, result.Valid)

	// Same expression against a missing step still fails.
	steps[2].Config["expression"] = "{{steps.ghost.output.status_code == 200 ? 1 : 0}}"
	result = ValidateReferences(steps)
	assert.False(t, result.Valid)
}
