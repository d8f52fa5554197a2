package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// ApprovalRepository handles approval request file operations.
type ApprovalRepository struct {
	root string
}

func (ar *ApprovalRepository) dir() string {
	return filepath.Join(ar.root, "approvals")
}

func (ar *ApprovalRepository) path(id string) string {
	return filepath.Join(ar.dir(), filepath.Base(id)+".json")
}

func (ar *ApprovalRepository) GetByID(_ context.Context, id string) (*models.ApprovalRequest, error) {
	data, err := os.ReadFile(ar.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrApprovalNotFound
		}

		return nil, fmt.Errorf("failed to read approval %s: %w", id, err)
	}

	var approval models.ApprovalRequest
	if err := json.Unmarshal(data, &approval); err != nil {
		return nil, fmt.Errorf("failed to decode approval %s: %w", id, err)
	}

	return &approval, nil
}

func (ar *ApprovalRepository) Save(_ context.Context, approval *models.ApprovalRequest) error {
	if err := os.MkdirAll(ar.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create approvals directory: %w", err)
	}

	data, err := json.MarshalIndent(approval, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode approval %s: %w", approval.ID, err)
	}

	if err := os.WriteFile(ar.path(approval.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write approval %s: %w", approval.ID, err)
	}

	return nil
}

func (ar *ApprovalRepository) ListPending(ctx context.Context, organizationID string) ([]*models.ApprovalRequest, error) {
	if _, err := os.Stat(ar.dir()); os.IsNotExist(err) {
		return []*models.ApprovalRequest{}, nil
	}

	root := os.DirFS(ar.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list approval files: %w", err)
	}

	pending := make([]*models.ApprovalRequest, 0)

	for _, name := range jsonFiles {
		approval, err := ar.GetByID(ctx, name[:len(name)-len(".json")])
		if err != nil {
			return nil, err
		}

		if approval.Status == models.ApprovalStatusPending && approval.OrganizationID == organizationID {
			pending = append(pending, approval)
		}
	}

	return pending, nil
}
