package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cadenzahq/cadenza/pkg/engine"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/validation"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type APIHandlers struct {
	persistence persistence.Persistence
	executor    *engine.Executor
	registry    *registry.Registry
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	p persistence.Persistence,
	executor *engine.Executor,
	reg *registry.Registry,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		executor:    executor,
		registry:    reg,
		validator:   validate,
		logger:      logger.With("module", "web"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.WorkflowRepository().GetAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	if organizationID := c.Query("organization_id"); organizationID != "" {
		filtered := make([]*models.WorkflowDefinition, 0, len(workflows))

		for _, workflow := range workflows {
			if workflow.OrganizationID == organizationID {
				filtered = append(filtered, workflow)
			}
		}

		workflows = filtered
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	workflow := &models.WorkflowDefinition{
		ID:             "wf-" + uuid.New().String()[:8],
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Version:        1,
		WorkflowType:   req.WorkflowType,
		Status:         models.WorkflowStatusDraft,
		Config:         req.Config,
		Steps:          req.Steps,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if workflow.Steps == nil {
		workflow.Steps = []*models.StepDefinition{}
	}

	if err := h.persistence.WorkflowRepository().Save(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.WorkflowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	if existing.Status != models.WorkflowStatusDraft {
		return conflict(c, "Only draft workflows can be updated")
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Config != nil {
		existing.Config = *req.Config
	}

	if req.Steps != nil {
		existing.Steps = req.Steps
	}

	existing.UpdatedAt = time.Now().UTC()

	if err := h.persistence.WorkflowRepository().Save(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.WorkflowRepository().Delete(c.Context(), c.Params("id")); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateWorkflow runs static reference validation over the definition's
// steps. Errors block publishing; warnings are advisory.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(validation.ValidateReferences(workflow.Steps))
}

// PublishWorkflow validates the definition and, if clean, marks it
// published and supersedes the previously published version.
func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	result := validation.ValidateReferences(workflow.Steps)
	if !result.Valid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}

	all, err := h.persistence.WorkflowRepository().GetAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	for _, other := range all {
		if other.ID == workflow.ID || other.OrganizationID != workflow.OrganizationID {
			continue
		}

		if other.Name == workflow.Name && other.Status == models.WorkflowStatusPublished {
			other.Status = models.WorkflowStatusUnpublished
			other.UpdatedAt = time.Now().UTC()

			if err := h.persistence.WorkflowRepository().Save(c.Context(), other); err != nil {
				return internalError(c, err)
			}
		}
	}

	workflow.Status = models.WorkflowStatusPublished
	workflow.UpdatedAt = time.Now().UTC()

	if err := h.persistence.WorkflowRepository().Save(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflow)
}

// StartExecution triggers a run of a published workflow and drives it
// until it completes, fails, or suspends.
func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	workflow, err := h.persistence.WorkflowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	if workflow.Status != models.WorkflowStatusPublished {
		return conflict(c, "Only published workflows can be executed")
	}

	execution, err := h.executor.Start(c.Context(), workflow, req.Input)
	if err != nil {
		if execution == nil {
			return internalError(c, err)
		}

		h.logger.WarnContext(c.Context(), "Execution failed", "execution_id", execution.ID, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.ExecutionRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			return notFound(c, "Execution not found")
		}

		return internalError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetPendingApprovals(c fiber.Ctx) error {
	organizationID := c.Query("organization_id")
	if organizationID == "" {
		return badRequest(c, "organization_id query parameter is required")
	}

	approvals, err := h.persistence.ApprovalRepository().ListPending(c.Context(), organizationID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"approvals": approvals})
}

// ResolveApproval records the human decision and resumes the suspended
// execution with the resolution as the gating step's output.
func (h *APIHandlers) ResolveApproval(c fiber.Ctx) error {
	var req ResolveApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	approval, err := h.persistence.ApprovalRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsApprovalNotFound(err) {
			return notFound(c, "Approval request not found")
		}

		return internalError(c, err)
	}

	if approval.Status != models.ApprovalStatusPending {
		return conflict(c, "Approval request is already resolved")
	}

	now := time.Now().UTC()
	approval.Status = models.ApprovalStatus(req.Decision)
	approval.ResolvedAt = &now

	content := approval.DraftContent
	if req.Content != "" {
		content = req.Content
	}

	if err := h.persistence.ApprovalRepository().Save(c.Context(), approval); err != nil {
		return internalError(c, err)
	}

	resumeData := map[string]any{
		"approval": map[string]any{
			"id":     approval.ID,
			"status": string(approval.Status),
		},
		"content": content,
	}

	execution, err := h.executor.Resume(c.Context(), approval.ExecutionID, resumeData)
	if err != nil {
		if execution == nil {
			return internalError(c, err)
		}

		h.logger.WarnContext(c.Context(), "Resumed execution failed", "execution_id", execution.ID, "error", err)
	}

	return c.JSON(fiber.Map{
		"approval":  approval,
		"execution": execution,
	})
}

// GetActions lists the registered action components with their parameter
// schemas.
func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": h.registry.AvailableActions()})
}
