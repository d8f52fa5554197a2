package conversation

import (
	"context"
	"log/slog"
	"testing"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memApprovalRepo struct {
	byID map[string]*models.ApprovalRequest
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{byID: make(map[string]*models.ApprovalRequest)}
}

func (r *memApprovalRepo) GetByID(_ context.Context, id string) (*models.ApprovalRequest, error) {
	approval, ok := r.byID[id]
	if !ok {
		return nil, persistence.ErrApprovalNotFound
	}

	return approval, nil
}

func (r *memApprovalRepo) Save(_ context.Context, approval *models.ApprovalRequest) error {
	r.byID[approval.ID] = approval

	return nil
}

func (r *memApprovalRepo) ListPending(_ context.Context, organizationID string) ([]*models.ApprovalRequest, error) {
	pending := make([]*models.ApprovalRequest, 0)

	for _, approval := range r.byID {
		if approval.Status == models.ApprovalStatusPending && approval.OrganizationID == organizationID {
			pending = append(pending, approval)
		}
	}

	return pending, nil
}

func executionCtx(organizationID string) models.ExecutionContext {
	return models.ExecutionContext{
		ExecutionID:          "exec-1",
		WorkflowDefinitionID: "wf-1",
		OrganizationID:       organizationID,
		StepSlug:             "reach-out",
		Variables:            map[string]any{},
	}
}

func TestExecute_RequiresOrganization(t *testing.T) {
	action, err := NewAction(map[string]any{"operation": OperationCreate}, newMemApprovalRepo())
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), executionCtx(""), slog.Default())
	assert.ErrorIs(t, err, ErrOrganizationRequired)
}

func TestExecute_CreateWithoutDraft(t *testing.T) {
	action, err := NewAction(map[string]any{
		"subject":      "Renewal follow-up",
		"participants": []any{"ana@example.com", "sam@example.com"},
	}, newMemApprovalRepo())
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), executionCtx("org-1"), slog.Default())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.False(t, result.Waiting)

	output := result.Output.(map[string]any)
	conversation := output["conversation"].(map[string]any)
	assert.Equal(t, "org-1", conversation["organization_id"])
	assert.Equal(t, "Renewal follow-up", conversation["subject"])
	assert.Equal(t, []string{"ana@example.com", "sam@example.com"}, conversation["participants"])
	assert.NotContains(t, output, "approval")
}

func TestExecute_CreateWithDraftSuspends(t *testing.T) {
	approvals := newMemApprovalRepo()

	action, err := NewAction(map[string]any{
		"subject":      "Renewal follow-up",
		"draftMessage": "Hi Ana, checking in on the renewal.",
	}, approvals)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), executionCtx("org-1"), slog.Default())
	require.NoError(t, err)
	assert.True(t, result.Waiting)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)

	output := result.Output.(map[string]any)
	approvalOut := output["approval"].(map[string]any)
	assert.Equal(t, string(models.ApprovalStatusPending), approvalOut["status"])

	pending, err := approvals.ListPending(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "exec-1", pending[0].ExecutionID)
	assert.Equal(t, "reach-out", pending[0].StepSlug)
	assert.Equal(t, "conversation", pending[0].EntityType)
	assert.Equal(t, "Hi Ana, checking in on the renewal.", pending[0].DraftContent)
}

func TestExecute_CreateWithDraftRequiresRepository(t *testing.T) {
	action, err := NewAction(map[string]any{"draftMessage": "Hi"}, nil)
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), executionCtx("org-1"), slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approval repository")
}

func TestExecute_List(t *testing.T) {
	action, err := NewAction(map[string]any{"operation": OperationList}, newMemApprovalRepo())
	require.NoError(t, err)

	ctx := executionCtx("org-1")
	ctx.Variables["conversations"] = []any{
		map[string]any{"id": "conv-1"},
	}

	result, err := action.Execute(context.Background(), ctx, slog.Default())
	require.NoError(t, err)

	output := result.Output.(map[string]any)
	assert.Len(t, output["data"], 1)

	// Without upstream data the list is an empty page, not nil.
	result, err = action.Execute(context.Background(), executionCtx("org-1"), slog.Default())
	require.NoError(t, err)
	assert.Equal(t, []any{}, result.Output.(map[string]any)["data"])
}

func TestExecute_UnknownOperation(t *testing.T) {
	action, err := NewAction(map[string]any{"operation": "archive"}, newMemApprovalRepo())
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), executionCtx("org-1"), slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown conversation operation "archive"`)
}
