// Package conversation implements the conversation action: creating and
// listing conversations in the messaging domain. A create carrying a
// draft message opens a human approval request and suspends the
// execution until the draft is approved or rejected.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/google/uuid"
)

const (
	OperationCreate = "create"
	OperationList   = "list"
)

var ErrOrganizationRequired = errors.New("conversation action requires an organization scope")

type Action struct {
	Operation    string
	Subject      string
	Participants []string
	DraftMessage string

	approvals persistence.ApprovalRepository
}

func NewAction(config map[string]any, approvals persistence.ApprovalRepository) (*Action, error) {
	operation, _ := config["operation"].(string)
	if operation == "" {
		operation = OperationCreate
	}

	subject, _ := config["subject"].(string)
	draft, _ := config["draftMessage"].(string)

	var participants []string

	if raw, ok := config["participants"].([]any); ok {
		for _, participant := range raw {
			if str, ok := participant.(string); ok {
				participants = append(participants, str)
			}
		}
	}

	return &Action{
		Operation:    operation,
		Subject:      subject,
		Participants: participants,
		DraftMessage: draft,
		approvals:    approvals,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "conversation_action", "operation", a.Operation)

	if executionCtx.OrganizationID == "" {
		return nil, ErrOrganizationRequired
	}

	switch a.Operation {
	case OperationCreate:
		return a.create(ctx, executionCtx, logger)
	case OperationList:
		return a.list(ctx, executionCtx, logger)
	default:
		return nil, fmt.Errorf("unknown conversation operation %q", a.Operation)
	}
}

func (a *Action) create(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	conversation := map[string]any{
		"id":              "conv-" + uuid.New().String()[:8],
		"organization_id": executionCtx.OrganizationID,
		"subject":         a.Subject,
		"participants":    a.Participants,
		"created_at":      time.Now().UTC().Format(time.RFC3339),
	}

	output := map[string]any{"conversation": conversation}

	if a.DraftMessage == "" {
		logger.InfoContext(ctx, "Conversation created", "conversation_id", conversation["id"])

		return &models.StepResult{Output: output, Outcome: models.OutcomeSuccess}, nil
	}

	if a.approvals == nil {
		return nil, errors.New("draft messages require an approval repository")
	}

	approval := &models.ApprovalRequest{
		ID:             "appr-" + uuid.New().String()[:8],
		OrganizationID: executionCtx.OrganizationID,
		ExecutionID:    executionCtx.ExecutionID,
		StepSlug:       executionCtx.StepSlug,
		EntityType:     "conversation",
		EntityID:       conversation["id"].(string),
		DraftContent:   a.DraftMessage,
		Status:         models.ApprovalStatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := a.approvals.Save(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to create approval request: %w", err)
	}

	output["approval"] = map[string]any{
		"id":     approval.ID,
		"status": string(approval.Status),
	}

	logger.InfoContext(ctx, "Conversation created with draft pending approval",
		"conversation_id", conversation["id"], "approval_id", approval.ID)

	return &models.StepResult{
		Output:  output,
		Outcome: models.OutcomeSuccess,
		Waiting: true,
	}, nil
}

func (a *Action) list(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger.InfoContext(ctx, "Listing conversations")

	// The messaging backend is external to this service; list returns the
	// organization-scoped page handed back by upstream systems through
	// variables, or an empty page.
	data, _ := executionCtx.Variables["conversations"].([]any)
	if data == nil {
		data = []any{}
	}

	return &models.StepResult{
		Output:  map[string]any{"data": data},
		Outcome: models.OutcomeSuccess,
	}, nil
}
