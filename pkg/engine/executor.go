// Package engine walks a workflow's step graph, resolves template
// variables against the accumulating execution-scoped variable store,
// dispatches step logic, and persists state across asynchronous action
// boundaries.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/events"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/otelhelper"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/template"
	"github.com/cadenzahq/cadenza/pkg/variables"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Executor struct {
	persistence   persistence.Persistence
	registry      *registry.Registry
	blobs         blob.Store
	logger        *slog.Logger
	secrets       protocol.SecretsProvider
	llm           protocol.LLMProvider
	publisher     eventbus.EventPublisher
	tracer        trace.Tracer
	sizeThreshold int
	interpreter   models.ConditionalInterpreter
}

type Option func(*Executor)

func WithSecretsProvider(provider protocol.SecretsProvider) Option {
	return func(e *Executor) { e.secrets = provider }
}

func WithLLMProvider(provider protocol.LLMProvider) Option {
	return func(e *Executor) { e.llm = provider }
}

func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Executor) { e.publisher = publisher }
}

func WithVariableSizeThreshold(threshold int) Option {
	return func(e *Executor) { e.sizeThreshold = threshold }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) { e.tracer = tracer }
}

func NewExecutor(p persistence.Persistence, reg *registry.Registry, blobs blob.Store, logger *slog.Logger, opts ...Option) *Executor {
	executor := &Executor{
		persistence: p,
		registry:    reg,
		blobs:       blobs,
		logger:      logger.With("module", "engine"),
		tracer:      noop.NewTracerProvider().Tracer("engine"),
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Start creates an execution record from a workflow definition and runs it
// until it completes, fails, or suspends on an async boundary. Workflow
// and step configuration are snapshotted onto the record.
func (e *Executor) Start(ctx context.Context, workflow *models.WorkflowDefinition, input map[string]any) (*models.Execution, error) {
	stepsConfig := make(map[string]*models.StepDefinition, len(workflow.Steps))
	for _, step := range workflow.Steps {
		stepsConfig[step.StepSlug] = step
	}

	initial := make(map[string]any, len(workflow.Config.Variables)+1)
	for key, value := range workflow.Config.Variables {
		initial[key] = value
	}

	if input != nil {
		initial["input"] = input
	}

	execution := &models.Execution{
		ID:                   generateExecutionID(),
		WorkflowDefinitionID: workflow.ID,
		RootDefinitionID:     workflow.ID,
		OrganizationID:       workflow.OrganizationID,
		WorkflowConfig:       workflow.Config,
		StepsConfig:          stepsConfig,
		Status:               models.ExecutionStatusRunning,
		CurrentStepSlug:      workflow.EntrySlug(),
		CreatedAt:            time.Now().UTC(),
	}

	serialized, err := variables.Persist(ctx, initial, e.blobs, e.sizeThreshold)
	if err != nil {
		return nil, err
	}

	execution.Variables = serialized

	if err := e.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	e.publish(ctx, execution, events.ExecutionStarted{BaseEvent: e.baseEvent(events.ExecutionStartedEvent, execution)})

	return execution, e.run(ctx, execution, nil)
}

// Resume re-enters a suspended execution at its current step, treating
// resumeData as that step's output (for example the resolution of a human
// approval gate).
func (e *Executor) Resume(ctx context.Context, executionID string, resumeData map[string]any) (*models.Execution, error) {
	execution, err := e.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status != models.ExecutionStatusWaiting {
		return nil, fmt.Errorf("execution %s is not waiting (status: %s)", executionID, execution.Status)
	}

	execution.Status = models.ExecutionStatusRunning
	if err := e.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return nil, err
	}

	resumed := &models.StepResult{Output: resumeData, Outcome: models.OutcomeSuccess}

	return execution, e.run(ctx, execution, resumed)
}

// run is the step loop. Steps within one execution are strictly
// sequential; edges are authoritative for ordering. The caller must
// guarantee single-writer-per-execution.
func (e *Executor) run(ctx context.Context, execution *models.Execution, resumed *models.StepResult) error {
	slug := execution.CurrentStepSlug

	for slug != "" {
		step, ok := execution.StepsConfig[slug]
		if !ok {
			return e.fail(ctx, execution, slug, fmt.Errorf("step %q not found in execution snapshot", slug))
		}

		logger := e.logger.With(
			"execution_id", execution.ID,
			"step_slug", step.StepSlug,
			"step_type", step.StepType,
		)

		vars, err := variables.Resolve(ctx, execution.Variables, e.blobs)
		if err != nil {
			return e.fail(ctx, execution, slug, err)
		}

		bag, err := e.buildVariableBag(ctx, execution, vars)
		if err != nil {
			return e.fail(ctx, execution, slug, err)
		}

		var result *models.StepResult

		if resumed != nil {
			result, resumed = resumed, nil
			logger.InfoContext(ctx, "Resuming execution with externally supplied step result")
		} else {
			logger.InfoContext(ctx, "Executing step")

			stepCtx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.step",
				attribute.String(otelhelper.ExecutionIDKey, execution.ID),
				attribute.String(otelhelper.StepSlugKey, step.StepSlug),
				attribute.String(otelhelper.StepTypeKey, string(step.StepType)),
			)

			result, err = e.executeStep(stepCtx, execution, step, bag, vars)
			if err != nil {
				otelhelper.SetError(span, err)
				span.End()

				return e.fail(ctx, execution, slug, err)
			}

			span.End()
		}

		stepsMap, err := e.BuildStepsMap(ctx, execution.ID, step, result)
		if err != nil {
			return e.fail(ctx, execution, slug, err)
		}

		vars["steps"] = stepsMap

		serialized, err := variables.Persist(ctx, vars, e.blobs, e.sizeThreshold)
		if err != nil {
			return e.fail(ctx, execution, slug, err)
		}

		execution.Variables = serialized
		execution.CurrentStepSlug = slug

		if result.Waiting {
			execution.Status = models.ExecutionStatusWaiting
			if err := e.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
				return err
			}

			e.publish(ctx, execution, events.ExecutionWaiting{
				BaseEvent: e.baseEvent(events.ExecutionWaitingEvent, execution),
				StepSlug:  step.StepSlug,
			})
			logger.InfoContext(ctx, "Execution suspended", "outcome", result.Outcome)

			return nil
		}

		e.publish(ctx, execution, events.StepCompleted{
			BaseEvent: e.baseEvent(events.StepCompletedEvent, execution),
			StepSlug:  step.StepSlug,
			StepType:  step.StepType,
			Outcome:   result.Outcome,
		})
		logger.InfoContext(ctx, "Step completed", "outcome", result.Outcome)

		target, declared := step.Next(result.Outcome)
		if !declared && result.Outcome == models.OutcomeFailure {
			return e.fail(ctx, execution, slug, fmt.Errorf("step failed with no failure edge: %s", result.Error))
		}

		if !declared || models.IsSentinelTarget(target) {
			execution.Status = models.ExecutionStatusCompleted
			if err := e.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
				return err
			}

			e.publish(ctx, execution, events.ExecutionCompleted{BaseEvent: e.baseEvent(events.ExecutionCompletedEvent, execution)})

			return nil
		}

		slug = target
		execution.CurrentStepSlug = slug

		if err := e.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
			return err
		}
	}

	execution.Status = models.ExecutionStatusCompleted

	return e.persistence.ExecutionRepository().Save(ctx, execution)
}

// buildVariableBag merges persisted variables with system variables and
// per-organization secrets into the bag template rendering resolves
// against.
func (e *Executor) buildVariableBag(ctx context.Context, execution *models.Execution, vars map[string]any) (map[string]any, error) {
	bag := make(map[string]any, len(vars)+8)
	for key, value := range vars {
		bag[key] = value
	}

	now := time.Now().UTC()
	bag["organizationId"] = execution.OrganizationID
	bag["wfDefinitionId"] = execution.WorkflowDefinitionID
	bag["rootWfDefinitionId"] = execution.RootDefinitionID
	bag["executionId"] = execution.ID
	bag["now"] = now.Format(time.RFC3339)
	bag["nowMs"] = now.UnixMilli()

	if e.secrets != nil {
		secrets, err := e.secrets.Secrets(ctx, execution.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve secrets: %w", err)
		}

		secretsBag := make(map[string]any, len(secrets))
		for key, value := range secrets {
			secretsBag[key] = value
		}

		bag["secrets"] = secretsBag
	}

	return bag, nil
}

func (e *Executor) executeStep(ctx context.Context, execution *models.Execution, step *models.StepDefinition, bag, vars map[string]any) (*models.StepResult, error) {
	switch step.StepType {
	case models.StepTypeTrigger, models.StepTypeStart:
		return &models.StepResult{Output: bag["input"], Outcome: models.OutcomeSuccess}, nil

	case models.StepTypeCondition:
		return e.executeConditionStep(step, bag)

	case models.StepTypeLoop:
		return e.executeLoopStep(step, bag, vars)

	case models.StepTypeLLM:
		return e.executeLLMStep(ctx, step, bag)

	case models.StepTypeAction:
		return e.executeActionStep(ctx, execution, step, bag)

	default:
		return nil, fmt.Errorf("unknown step type %q for step %q", step.StepType, step.StepSlug)
	}
}

func (e *Executor) executeConditionStep(step *models.StepDefinition, bag map[string]any) (*models.StepResult, error) {
	expression := step.Config["expression"]

	rendered, err := template.Render(expression, bag)
	if err != nil {
		return nil, fmt.Errorf("failed to render condition for step %q: %w", step.StepSlug, err)
	}

	value, err := e.interpreter.Evaluate(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate condition for step %q: %w", step.StepSlug, err)
	}

	outcome := models.OutcomeFalse
	if value {
		outcome = models.OutcomeTrue
	}

	return &models.StepResult{
		Output: map[string]any{
			"result":     value,
			"expression": fmt.Sprintf("%v", expression),
		},
		Outcome: outcome,
	}, nil
}

// executeLoopStep advances the loop's iteration state. Progress lives in
// the step's own output in the steps map, so a loop-back edge revisiting
// this slug sees its previous index; the loop context is exposed to body
// steps under the "loop" variable.
func (e *Executor) executeLoopStep(step *models.StepDefinition, bag, vars map[string]any) (*models.StepResult, error) {
	rendered, err := template.Render(step.Config["items"], bag)
	if err != nil {
		return nil, fmt.Errorf("failed to render loop items for step %q: %w", step.StepSlug, err)
	}

	items, ok := rendered.([]any)
	if !ok {
		return nil, fmt.Errorf("loop items for step %q must be an array, got %T", step.StepSlug, rendered)
	}

	index := priorLoopIndex(bag, step.StepSlug) + 1

	if index >= len(items) {
		delete(vars, "loop")

		return &models.StepResult{
			Output:  map[string]any{"index": index, "completed": true},
			Outcome: models.OutcomeDone,
		}, nil
	}

	state := map[string]any{}
	if loopCtx, ok := vars["loop"].(map[string]any); ok {
		if prior, ok := loopCtx["state"].(map[string]any); ok {
			state = prior
		}
	}

	vars["loop"] = map[string]any{
		"item":  items[index],
		"index": index,
		"state": state,
	}

	return &models.StepResult{
		Output:  map[string]any{"item": items[index], "index": index, "completed": false},
		Outcome: models.OutcomeLoop,
	}, nil
}

func (e *Executor) executeLLMStep(ctx context.Context, step *models.StepDefinition, bag map[string]any) (*models.StepResult, error) {
	if e.llm == nil {
		return &models.StepResult{
			Outcome: models.OutcomeFailure,
			Error:   "no llm provider configured",
		}, nil
	}

	rendered, err := template.Render(step.Config["prompt"], bag)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt for step %q: %w", step.StepSlug, err)
	}

	prompt, ok := rendered.(string)
	if !ok {
		return nil, fmt.Errorf("prompt for step %q must render to a string, got %T", step.StepSlug, rendered)
	}

	options, _ := step.Config["options"].(map[string]any)

	text, err := e.llm.Generate(ctx, prompt, options)
	if err != nil {
		return &models.StepResult{Outcome: models.OutcomeFailure, Error: err.Error()}, nil
	}

	output := map[string]any{"text": text}
	if options != nil {
		output["model"] = options["model"]
	}

	return &models.StepResult{Output: output, Outcome: models.OutcomeSuccess}, nil
}

func (e *Executor) executeActionStep(ctx context.Context, execution *models.Execution, step *models.StepDefinition, bag map[string]any) (*models.StepResult, error) {
	actionType := step.ActionType()
	if actionType == "" {
		return nil, fmt.Errorf("action step %q has no action type", step.StepSlug)
	}

	params, _ := step.Config["parameters"].(map[string]any)

	rendered, err := template.Render(params, bag)
	if err != nil {
		// Unresolved references are a runtime condition; route the failure
		// edge instead of aborting the whole execution.
		return &models.StepResult{Outcome: models.OutcomeFailure, Error: err.Error()}, nil
	}

	config, _ := rendered.(map[string]any)
	if config == nil {
		config = map[string]any{}
	}

	action, err := e.registry.CreateAction(actionType, config)
	if err != nil {
		// Structural error: parameter schema violations fail fast, before
		// any side effect.
		return nil, err
	}

	executionCtx := models.ExecutionContext{
		ExecutionID:          execution.ID,
		WorkflowDefinitionID: execution.WorkflowDefinitionID,
		OrganizationID:       execution.OrganizationID,
		StepSlug:             step.StepSlug,
		Variables:            bag,
	}

	logger := e.logger.With("execution_id", execution.ID, "step_slug", step.StepSlug, "action_type", actionType)

	result, err := action.Execute(ctx, executionCtx, logger)
	if err != nil {
		return &models.StepResult{Outcome: models.OutcomeFailure, Error: err.Error()}, nil
	}

	if result.Outcome == "" {
		result.Outcome = models.OutcomeSuccess
	}

	return result, nil
}

func (e *Executor) fail(ctx context.Context, execution *models.Execution, stepSlug string, cause error) error {
	execution.Status = models.ExecutionStatusFailed
	execution.Error = cause.Error()

	if err := e.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist failed execution", "execution_id", execution.ID, "error", err)
	}

	e.publish(ctx, execution, events.ExecutionFailed{
		BaseEvent: e.baseEvent(events.ExecutionFailedEvent, execution),
		StepSlug:  stepSlug,
		Error:     cause.Error(),
	})

	return cause
}

func (e *Executor) publish(ctx context.Context, execution *models.Execution, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, execution.ID, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Executor) baseEvent(eventType events.EventType, execution *models.Execution) events.BaseEvent {
	return events.BaseEvent{
		ID:                   uuid.New().String(),
		Type:                 eventType,
		Timestamp:            time.Now().UTC(),
		OrganizationID:       execution.OrganizationID,
		WorkflowDefinitionID: execution.WorkflowDefinitionID,
		ExecutionID:          execution.ID,
	}
}

// priorLoopIndex reads the loop step's previous iteration index from the
// steps map, or -1 on the first visit.
func priorLoopIndex(bag map[string]any, stepSlug string) int {
	steps, ok := bag["steps"].(map[string]any)
	if !ok {
		return -1
	}

	entry, ok := steps[stepSlug].(map[string]any)
	if !ok {
		return -1
	}

	output, ok := entry["output"].(map[string]any)
	if !ok {
		return -1
	}

	switch index := output["index"].(type) {
	case float64:
		return int(index)
	case int:
		return index
	default:
		return -1
	}
}

func generateExecutionID() string {
	return "exec-" + uuid.New().String()[:8]
}
