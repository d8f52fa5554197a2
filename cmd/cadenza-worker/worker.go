// Package main provides the Cadenza worker: it wires triggers for
// published workflows and runs executions off the event bus.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/cadenzahq/cadenza/pkg/engine"
	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/events"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/otelhelper"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/google/uuid"
)

type Worker struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	blobs       blob.Store
	eventBus    eventbus.EventBus
	tracing     bool

	executor *engine.Executor
	triggers []protocol.Trigger
}

func NewWorker(
	id string,
	logger *slog.Logger,
	p persistence.Persistence,
	reg *registry.Registry,
	blobs blob.Store,
	eventBus eventbus.EventBus,
	tracing bool,
) *Worker {
	return &Worker{
		id:          id,
		logger:      logger,
		persistence: p,
		registry:    reg,
		blobs:       blobs,
		eventBus:    eventBus,
		tracing:     tracing,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	opts := []engine.Option{engine.WithPublisher(w.eventBus)}

	if w.tracing {
		tracer, err := otelhelper.NewTracer(ctx, "cadenza-worker")
		if err != nil {
			return err
		}

		opts = append(opts, engine.WithTracer(tracer))
	}

	w.executor = engine.NewExecutor(w.persistence, w.registry, w.blobs, w.logger, opts...)

	if err := w.eventBus.Handle(events.WorkflowTriggeredEvent, w.handleWorkflowTriggered); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return err
	}

	if err := w.startTriggers(ctx); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.Info("Shutting down worker")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, trigger := range w.triggers {
		if err := trigger.Stop(stopCtx); err != nil {
			w.logger.Error("Failed to stop trigger", "error", err)
		}
	}

	return nil
}

// startTriggers wires one trigger per trigger step of every published
// workflow. Firing publishes a WorkflowTriggered event; execution happens
// on the event bus consumer side so multiple workers share the load.
func (w *Worker) startTriggers(ctx context.Context) error {
	workflows, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return err
	}

	for _, workflow := range workflows {
		if workflow.Status != models.WorkflowStatusPublished {
			continue
		}

		for _, step := range workflow.Steps {
			if step.StepType != models.StepTypeTrigger {
				continue
			}

			triggerID := step.ActionType()
			if triggerID == "" {
				continue
			}

			config, _ := step.Config["parameters"].(map[string]any)
			if config == nil {
				config = map[string]any{}
			}

			trigger, err := w.registry.CreateTrigger(triggerID, config)
			if err != nil {
				w.logger.WarnContext(ctx, "Skipping trigger step",
					"workflow_id", workflow.ID, "step_slug", step.StepSlug, "error", err)

				continue
			}

			if err := trigger.Start(ctx, w.triggerCallback(workflow)); err != nil {
				return err
			}

			w.triggers = append(w.triggers, trigger)
		}
	}

	return nil
}

func (w *Worker) triggerCallback(workflow *models.WorkflowDefinition) protocol.TriggerCallback {
	return func(ctx context.Context, triggerData map[string]any) error {
		event := events.WorkflowTriggered{
			BaseEvent: events.BaseEvent{
				ID:                   uuid.New().String(),
				Type:                 events.WorkflowTriggeredEvent,
				Timestamp:            time.Now().UTC(),
				OrganizationID:       workflow.OrganizationID,
				WorkflowDefinitionID: workflow.ID,
			},
			TriggerData: triggerData,
		}

		return w.eventBus.Publish(ctx, workflow.ID, event)
	}
}

func (w *Worker) handleWorkflowTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.WorkflowTriggered)
	if !ok {
		w.logger.Error("Invalid event type for WorkflowTriggered")

		return nil
	}

	logger := w.logger.With("workflow_id", triggered.WorkflowDefinitionID, "event_id", triggered.ID)
	logger.InfoContext(ctx, "Processing workflow triggered event")

	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, triggered.WorkflowDefinitionID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load workflow", "error", err)

		return err
	}

	execution, err := w.executor.Start(ctx, workflow, triggered.TriggerData)
	if err != nil {
		if execution != nil {
			logger.ErrorContext(ctx, "Execution failed", "execution_id", execution.ID, "error", err)
		}

		// The failure is recorded on the execution; do not redeliver.
		return nil
	}

	logger.InfoContext(ctx, "Execution finished", "execution_id", execution.ID, "status", execution.Status)

	return nil
}
