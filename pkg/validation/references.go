// Package validation statically checks a workflow's step graph before
// deployment: every variable reference must point at an existing step that
// executes no later than the referencing step, and field paths are checked
// against the declared output schemas.
package validation

import (
	"fmt"
	"strconv"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/template"
)

// Issue is one validation finding, with enough context for an author to
// fix the workflow without engine source access.
type Issue struct {
	StepSlug  string `json:"step_slug"`
	Reference string `json:"reference,omitempty"`
	Message   string `json:"message"`
}

// Result aggregates findings. Errors block deployment; warnings are
// advisory only and never block execution.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Result) addError(stepSlug, reference, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{StepSlug: stepSlug, Reference: reference, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) addWarning(stepSlug, reference, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{StepSlug: stepSlug, Reference: reference, Message: fmt.Sprintf(format, args...)})
}

// ValidateReferences checks every step's configuration against the whole
// graph. Ordering uses authoring order (array position) as a conservative
// proxy for runtime order: branching can reorder actual execution, so only
// references that are impossible in every order consistent with authoring
// order are rejected.
func ValidateReferences(steps []*models.StepDefinition) *Result {
	result := &Result{Errors: []Issue{}, Warnings: []Issue{}}

	orderIndex := make(map[string]int, len(steps))
	lookup := make(map[string]*models.StepDefinition, len(steps))

	for i, step := range steps {
		orderIndex[step.StepSlug] = i
		lookup[step.StepSlug] = step
	}

	for _, step := range steps {
		for outcome, target := range step.NextSteps {
			if models.IsSentinelTarget(target) {
				continue
			}

			if _, ok := lookup[target]; !ok {
				result.addError(step.StepSlug, "",
					"edge %q targets non-existent step %q", outcome, target)
			}
		}
	}

	for i, step := range steps {
		for _, ref := range template.ParseReferences(step.Config) {
			if ref.Type != models.ReferenceTypeStep {
				continue
			}

			referenced, ok := lookup[ref.StepSlug]
			if !ok {
				result.addError(step.StepSlug, ref.OriginalTemplate,
					"references non-existent step %q", ref.StepSlug)

				continue
			}

			if orderIndex[ref.StepSlug] >= i {
				result.addError(step.StepSlug, ref.OriginalTemplate,
					"references step %q which executes at the same time or later", ref.StepSlug)
			}

			if !ref.IsComplex() {
				checkPath(step, referenced, ref, result)
			}
		}
	}

	result.Valid = len(result.Errors) == 0

	return result
}

// schemaNode is the common view over OutputSchema and FieldSchema used
// while walking a reference path.
type schemaNode struct {
	isArray bool
	fields  map[string]*models.FieldSchema
	items   *models.OutputSchema
}

// checkPath resolves the reference path against the referenced step's
// declared output schema. Mismatches are warnings, never errors: the
// schema registry is best-effort documentation and authors may rely on
// runtime-dynamic access.
func checkPath(step, referenced *models.StepDefinition, ref *models.ParsedReference, result *Result) {
	var schema *models.OutputSchema

	if referenced.StepType == models.StepTypeAction {
		schema = registry.ActionOutputSchema(referenced.ActionType(), referenced.Operation())
	} else {
		schema = registry.StepTypeOutputSchema(referenced.StepType)
	}

	if schema == nil || len(ref.Path) == 0 {
		return
	}

	// The first path segment addresses the steps-map entry; only "output"
	// is described by the schema. Meta fields like stepType and name are
	// always present.
	if ref.Path[0] != "output" {
		return
	}

	node := &schemaNode{isArray: schema.IsArray, fields: schema.Fields, items: schema.Items}

	for _, segment := range ref.Path[1:] {
		if _, err := strconv.Atoi(segment); err == nil {
			// Numeric index: descend into array items when declared.
			if node.items != nil {
				node = &schemaNode{isArray: node.items.IsArray, fields: node.items.Fields, items: node.items.Items}

				continue
			}

			return
		}

		if node.isArray {
			result.addWarning(step.StepSlug, ref.OriginalTemplate,
				"accesses field %q on a value declared as an array in step %q output", segment, referenced.StepSlug)

			return
		}

		field, ok := node.fields[segment]
		if !ok {
			// Schemas are partial documentation; unknown fields end the walk.
			return
		}

		node = &schemaNode{isArray: field.IsArray, fields: field.Fields}
	}
}
